package entity

import "time"

// LockerZone is the persisted ground truth for one gender zone's
// locker capacity. Live usage counters are kept in Redis and
// periodically reconciled against active enrollments.
type LockerZone struct {
	Gender    string    `db:"gender"`
	Capacity  int64     `db:"capacity"`
	UpdatedAt time.Time `db:"updated_at"`
}

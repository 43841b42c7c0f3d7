package locker

import "context"

// Gender keys for locker zones.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

// Availability is a point-in-time snapshot of one locker zone.
type Availability struct {
	Gender    string `json:"gender"`
	Capacity  int64  `json:"capacity"`
	Used      int64  `json:"used"`
	Available int64  `json:"available"`
}

// Inventory hands out and takes back lockers per gender zone. All
// operations are atomic with respect to concurrent callers.
type Inventory interface {
	// Allocate takes one locker. Returns false when the zone is full.
	Allocate(ctx context.Context, gender string) (bool, error)
	// Release returns one locker. Releasing below zero is clamped.
	Release(ctx context.Context, gender string) error
	// Snapshot reports current usage for one zone.
	Snapshot(ctx context.Context, gender string) (*Availability, error)
	// SetCapacity updates the total number of lockers in a zone.
	SetCapacity(ctx context.Context, gender string, capacity int64) error
	// Reconcile overwrites the used counter with an authoritative
	// count, correcting drift from best-effort allocations.
	Reconcile(ctx context.Context, gender string, used int64) error
}

package broadcast

import "context"

// CapacityUpdate is published whenever a lesson's slot usage changes,
// so downstream consumers (waitlist mailer, admin dashboard) see
// availability without polling.
type CapacityUpdate struct {
	LessonID          int64 `json:"lessonId"`
	Capacity          int   `json:"capacity"`
	PaidCount         int   `json:"paidCount"`
	UnpaidActiveCount int   `json:"unpaidActiveCount"`
}

type Broadcaster interface {
	PublishCapacity(ctx context.Context, update CapacityUpdate) error
}

// Noop discards updates. Used in tests and when no broker is configured.
type Noop struct{}

func (Noop) PublishCapacity(ctx context.Context, update CapacityUpdate) error {
	return nil
}

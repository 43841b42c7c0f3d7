package scheduler

import (
	"context"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/pkg/broadcast"

	"go.uber.org/zap"
)

const reaperBatchSize = 500

// Reaper sweeps unpaid holds whose payment window elapsed. It touches
// neither locker inventory nor the gateway, nothing was allocated for
// an unpaid hold. Re-running over already expired rows is a no-op
// because the sweep filter no longer matches them.
type Reaper struct {
	repo        *repository.Repository
	broadcaster broadcast.Broadcaster
	interval    time.Duration
	log         *zap.Logger
	now         func() time.Time
}

func NewReaper(repo *repository.Repository, broadcaster broadcast.Broadcaster, interval time.Duration, log *zap.Logger) *Reaper {
	return &Reaper{
		repo:        repo,
		broadcaster: broadcaster,
		interval:    interval,
		log:         log.With(zap.String("worker", "hold_reaper")),
		now:         time.Now,
	}
}

// Run blocks until ctx is canceled, sweeping once per interval.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("Hold reaper started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Hold reaper stopped")
			return
		case <-ticker.C:
			if n, err := r.Sweep(ctx); err != nil {
				r.log.Error("Sweep failed", zap.Error(err))
			} else if n > 0 {
				r.log.Info("Expired holds released", zap.Int("count", n))
			}
		}
	}
}

// Sweep expires all overdue holds once and returns how many it touched.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	now := r.now()

	holds, err := r.repo.Enrollment.FindExpiredHolds(ctx, now, reaperBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	touchedLessons := make(map[int64]struct{})
	for _, hold := range holds {
		hold.Status = entity.EnrollStatusExpired
		hold.PayStatus = entity.PayStatusExpired
		if err := r.repo.Enrollment.Update(ctx, hold); err != nil {
			r.log.Error("Failed to expire hold",
				zap.Error(err),
				zap.Int64("enrollment_id", hold.ID),
			)
			continue
		}
		expired++
		touchedLessons[hold.LessonID] = struct{}{}
	}

	for lessonID := range touchedLessons {
		r.broadcastLesson(ctx, lessonID, now)
	}

	return expired, nil
}

func (r *Reaper) broadcastLesson(ctx context.Context, lessonID int64, now time.Time) {
	lesson, err := r.repo.Lesson.FindByID(ctx, lessonID)
	if err != nil || lesson == nil {
		return
	}
	paid, err := r.repo.Enrollment.CountPaidByLesson(ctx, lessonID)
	if err != nil {
		return
	}
	unpaid, err := r.repo.Enrollment.CountUnpaidActiveByLesson(ctx, lessonID, now)
	if err != nil {
		return
	}

	update := broadcast.CapacityUpdate{
		LessonID:          lessonID,
		Capacity:          lesson.Capacity,
		PaidCount:         paid,
		UnpaidActiveCount: unpaid,
	}
	if err := r.broadcaster.PublishCapacity(ctx, update); err != nil {
		r.log.Warn("Capacity broadcast failed", zap.Error(err), zap.Int64("lesson_id", lessonID))
	}
}

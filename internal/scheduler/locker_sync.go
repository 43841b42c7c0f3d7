package scheduler

import (
	"context"
	"time"

	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/pkg/locker"

	"go.uber.org/zap"
)

// LockerSync periodically rebuilds the live locker counters from
// ground truth. The fast-path increments and decrements scattered
// across the webhook and cancellation flows are allowed to drift;
// this recomputation is the authority.
type LockerSync struct {
	repo      *repository.Repository
	inventory locker.Inventory
	interval  time.Duration
	log       *zap.Logger
}

func NewLockerSync(repo *repository.Repository, inventory locker.Inventory, interval time.Duration, log *zap.Logger) *LockerSync {
	return &LockerSync{
		repo:      repo,
		inventory: inventory,
		interval:  interval,
		log:       log.With(zap.String("worker", "locker_sync")),
	}
}

// Run blocks until ctx is canceled. One reconciliation runs at
// startup so the counters are usable before the first tick.
func (s *LockerSync) Run(ctx context.Context) {
	s.log.Info("Locker reconciliation started", zap.Duration("interval", s.interval))

	if err := s.Reconcile(ctx); err != nil {
		s.log.Error("Initial reconciliation failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Locker reconciliation stopped")
			return
		case <-ticker.C:
			if err := s.Reconcile(ctx); err != nil {
				s.log.Error("Reconciliation failed", zap.Error(err))
			}
		}
	}
}

// Reconcile overwrites each zone's capacity and usage counters from
// the database.
func (s *LockerSync) Reconcile(ctx context.Context) error {
	zones, err := s.repo.Locker.ListZones(ctx)
	if err != nil {
		return err
	}

	for _, zone := range zones {
		if err := s.inventory.SetCapacity(ctx, zone.Gender, zone.Capacity); err != nil {
			s.log.Error("Failed to sync zone capacity",
				zap.Error(err),
				zap.String("gender", zone.Gender),
			)
			continue
		}

		used, err := s.repo.Enrollment.CountAllocatedLockersByGender(ctx, zone.Gender)
		if err != nil {
			s.log.Error("Failed to count allocated lockers",
				zap.Error(err),
				zap.String("gender", zone.Gender),
			)
			continue
		}

		if err := s.inventory.Reconcile(ctx, zone.Gender, used); err != nil {
			s.log.Error("Failed to reconcile zone usage",
				zap.Error(err),
				zap.String("gender", zone.Gender),
			)
			continue
		}

		s.log.Debug("Zone reconciled",
			zap.String("gender", zone.Gender),
			zap.Int64("capacity", zone.Capacity),
			zap.Int64("used", used),
		)
	}

	return nil
}

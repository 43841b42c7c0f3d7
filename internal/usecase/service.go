package usecase

import (
	"context"
	"time"

	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/pkg/broadcast"
	"lesson-enrollment/pkg/gateway"
	"lesson-enrollment/pkg/locker"
	"lesson-enrollment/pkg/utils"

	"go.uber.org/zap"
)

// TxRunner executes units of work transactionally. Satisfied by
// repository.TxManager.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(r *repository.Repository) error) error
	RunSerializable(ctx context.Context, fn func(r *repository.Repository) error) error
}

type Service struct {
	Enrollment   EnrollmentService
	Webhook      WebhookService
	Cancellation CancellationService
	Lesson       LessonService
}

func NewService(repo *repository.Repository, tx *repository.TxManager, gw *gateway.Client, inventory locker.Inventory, broadcaster broadcast.Broadcaster, config *utils.Config, log *zap.Logger) *Service {
	holdTTL := time.Duration(config.Enroll.HoldTTLMinutes) * time.Minute
	policy := RefundPolicy{
		LockerFee: config.Enroll.LockerFee,
		DailyRate: config.Enroll.LessonDailyRate,
	}

	return &Service{
		Enrollment:   NewEnrollmentService(repo, tx, broadcaster, holdTTL, config.Enroll.LockerFee, log),
		Webhook:      NewWebhookService(repo, tx, gw, inventory, broadcaster, config.Enroll.LockerFee, config.App.Env, config.Kispg.AllowedIPs, log),
		Cancellation: NewCancellationService(repo, tx, gw, inventory, policy, log),
		Lesson:       NewLessonService(repo, inventory, log),
	}
}

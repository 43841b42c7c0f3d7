package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/internal/dto/request"
	"lesson-enrollment/pkg/broadcast"
	"lesson-enrollment/pkg/gateway"
	"lesson-enrollment/pkg/locker"
	"lesson-enrollment/pkg/utils"

	"go.uber.org/zap"
)

// Webhook responses expected by the gateway. Anything but OK triggers
// the gateway's own redelivery.
const (
	WebhookOK   = "OK"
	WebhookFail = "FAIL"
)

// NotificationVerifier checks the signature a gateway notification
// carries. Satisfied by gateway.Client.
type NotificationVerifier interface {
	VerifyNotification(ediDate string, amt int, encData string) bool
}

type WebhookService interface {
	// ProcessNotification applies one gateway notification and returns
	// the literal body to answer with. It never panics past this
	// boundary; internal failures become WebhookFail so the gateway
	// redelivers.
	ProcessNotification(ctx context.Context, n *request.KispgNotification, remoteIP string) string
}

type webhookService struct {
	repo        *repository.Repository
	tx          TxRunner
	verifier    NotificationVerifier
	inventory   locker.Inventory
	broadcaster broadcast.Broadcaster
	lockerFee   int
	env         string
	allowedIPs  []string
	log         *zap.Logger
	now         func() time.Time
}

func NewWebhookService(repo *repository.Repository, tx TxRunner, verifier NotificationVerifier, inventory locker.Inventory, broadcaster broadcast.Broadcaster, lockerFee int, env string, allowedIPs []string, log *zap.Logger) WebhookService {
	return &webhookService{
		repo:        repo,
		tx:          tx,
		verifier:    verifier,
		inventory:   inventory,
		broadcaster: broadcaster,
		lockerFee:   lockerFee,
		env:         env,
		allowedIPs:  allowedIPs,
		log:         log.With(zap.String("service", "webhook")),
		now:         time.Now,
	}
}

func (s *webhookService) ProcessNotification(ctx context.Context, n *request.KispgNotification, remoteIP string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Webhook processing panicked",
				zap.Any("panic", r),
				zap.String("tid", n.Tid),
				zap.String("moid", n.Moid),
			)
			result = WebhookFail
		}
	}()

	if !s.ipAllowed(remoteIP) {
		s.log.Warn("Webhook from disallowed IP", zap.String("ip", remoteIP))
		return WebhookFail
	}

	amt, err := utils.ParseInt64(strings.TrimSpace(n.Amt))
	if err != nil || amt < 0 {
		s.log.Warn("Webhook with invalid amount", zap.String("amt", n.Amt), zap.String("tid", n.Tid))
		return WebhookFail
	}

	if !s.verifier.VerifyNotification(n.EdiDate, int(amt), n.EncData) {
		s.log.Warn("Webhook signature mismatch", zap.String("tid", n.Tid), zap.String("moid", n.Moid))
		return WebhookFail
	}

	// Idempotency: a tid already processed to a terminal state is
	// acknowledged without reprocessing.
	existing, err := s.repo.Payment.FindByTid(ctx, n.Tid)
	if err != nil {
		s.log.Error("Webhook idempotency lookup failed", zap.Error(err), zap.String("tid", n.Tid))
		return WebhookFail
	}
	if existing != nil && existing.IsTerminal() {
		s.log.Info("Duplicate webhook delivery ignored", zap.String("tid", n.Tid))
		return WebhookOK
	}

	if enrollmentID, ok := utils.ParseMoidEnrollmentID(n.Moid); ok {
		return s.processEnrollScheme(ctx, n, enrollmentID, int(amt))
	}
	if strings.HasPrefix(n.Moid, "temp_") {
		return s.processTempScheme(ctx, n, int(amt))
	}

	s.log.Warn("Webhook with unrecognized moid", zap.String("moid", n.Moid))
	return WebhookFail
}

func (s *webhookService) processEnrollScheme(ctx context.Context, n *request.KispgNotification, enrollmentID int64, amt int) string {
	now := s.now()
	success := n.ResultCode == gateway.CodeApproveSuccess

	var confirmed *entity.Enrollment

	err := s.tx.RunInTx(ctx, func(r *repository.Repository) error {
		enrollment, err := r.Enrollment.FindByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return fmt.Errorf("enrollment %d not found for moid %s", enrollmentID, n.Moid)
		}

		// Second consistency check inside the transaction: a
		// concurrent duplicate delivery commits the payment row
		// first, so the loser sees it here and backs off.
		payment, err := r.Payment.FindByTid(ctx, n.Tid)
		if err != nil {
			return err
		}
		if payment != nil && payment.IsTerminal() {
			return nil
		}

		target := entity.PayStatusPaid
		if !success {
			target = entity.PayStatusFailed
		}
		if !entity.CanTransitionPayStatus(enrollment.PayStatus, target) {
			return fmt.Errorf("pay status %s cannot move to %s for enrollment %d", enrollment.PayStatus, target, enrollmentID)
		}

		status := entity.PaymentStatusPaid
		if !success {
			status = entity.PaymentStatusFailed
		}

		lockerAmount := 0
		if success && enrollment.UsesLocker {
			lockerAmount = s.lockerFee
			if lockerAmount > amt {
				lockerAmount = amt
			}
		}

		newPayment := &entity.Payment{
			Base:         entity.Base{CreatedAt: now, UpdatedAt: now},
			EnrollmentID: enrollment.ID,
			Status:       status,
			Moid:         n.Moid,
			Tid:          n.Tid,
			PaidAmt:      amt,
			LessonAmount: amt - lockerAmount,
			LockerAmount: lockerAmount,
			PayMethod:    n.PayMethod,
		}
		if err := r.Payment.Create(ctx, newPayment); err != nil {
			return err
		}

		enrollment.PayStatus = target
		if success {
			enrollment.ExpireAt = nil
		}
		if err := r.Enrollment.Update(ctx, enrollment); err != nil {
			return err
		}

		if success {
			confirmed = enrollment
		}
		return nil
	})

	if err != nil {
		s.log.Error("Webhook state transition failed",
			zap.Error(err),
			zap.String("tid", n.Tid),
			zap.String("moid", n.Moid),
		)
		return WebhookFail
	}

	if confirmed != nil {
		s.allocateLockerBestEffort(ctx, confirmed)
		s.broadcastLesson(ctx, confirmed.LessonID)
	}

	s.log.Info("Webhook processed",
		zap.String("tid", n.Tid),
		zap.String("moid", n.Moid),
		zap.Bool("success", success),
	)
	return WebhookOK
}

// processTempScheme handles the late-bound flow: no hold exists yet,
// the enrollment is created only now, already paid. A failed attempt
// creates nothing at all.
func (s *webhookService) processTempScheme(ctx context.Context, n *request.KispgNotification, amt int) string {
	if n.ResultCode != gateway.CodeApproveSuccess {
		s.log.Info("Failed late-bound payment ignored", zap.String("tid", n.Tid), zap.String("moid", n.Moid))
		return WebhookOK
	}

	parts := strings.Split(n.Moid, "_")
	if len(parts) != 4 {
		s.log.Warn("Malformed temp moid", zap.String("moid", n.Moid))
		return WebhookFail
	}
	lessonID, err := utils.ParseInt64(parts[1])
	if err != nil || lessonID <= 0 {
		s.log.Warn("Malformed temp moid lesson id", zap.String("moid", n.Moid))
		return WebhookFail
	}
	userPrefix := parts[2]

	now := s.now()

	var created *entity.Enrollment

	err = s.tx.RunInTx(ctx, func(r *repository.Repository) error {
		lesson, err := r.Lesson.FindByID(ctx, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return fmt.Errorf("lesson %d not found for moid %s", lessonID, n.Moid)
		}

		user, err := r.User.FindByIDPrefix(ctx, userPrefix)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("no user matches prefix %s for moid %s", userPrefix, n.Moid)
		}

		payment, err := r.Payment.FindByTid(ctx, n.Tid)
		if err != nil {
			return err
		}
		if payment != nil && payment.IsTerminal() {
			return nil
		}

		// Locker intent: trust the side channel when present, fall
		// back to inferring from the paid amount.
		wantsLocker := amt > lesson.Price
		membership := user.Membership
		if payload := n.ParseMbsReserved(); payload != nil {
			wantsLocker = payload.WantsLocker
			if payload.MembershipType != "" {
				membership = entity.MembershipType(payload.MembershipType)
			}
		}

		lockerAmount := 0
		if wantsLocker {
			lockerAmount = s.lockerFee
			if lockerAmount > amt {
				lockerAmount = amt
			}
		}

		enrollment := &entity.Enrollment{
			Base:            entity.Base{CreatedAt: now, UpdatedAt: now},
			UserID:          user.ID,
			LessonID:        lessonID,
			Status:          entity.EnrollStatusApplied,
			PayStatus:       entity.PayStatusPaid,
			CancelStatus:    entity.CancelStatusNone,
			UsesLocker:      wantsLocker,
			LockerGender:    user.Gender,
			Membership:      membership,
			FinalAmount:     amt,
			DiscountPercent: membership.DiscountPercent(),
		}
		if err := r.Enrollment.Create(ctx, enrollment); err != nil {
			return err
		}

		newPayment := &entity.Payment{
			Base:         entity.Base{CreatedAt: now, UpdatedAt: now},
			EnrollmentID: enrollment.ID,
			Status:       entity.PaymentStatusPaid,
			Moid:         n.Moid,
			Tid:          n.Tid,
			PaidAmt:      amt,
			LessonAmount: amt - lockerAmount,
			LockerAmount: lockerAmount,
			PayMethod:    n.PayMethod,
		}
		if err := r.Payment.Create(ctx, newPayment); err != nil {
			return err
		}

		created = enrollment
		return nil
	})

	if err != nil {
		s.log.Error("Late-bound webhook failed",
			zap.Error(err),
			zap.String("tid", n.Tid),
			zap.String("moid", n.Moid),
		)
		return WebhookFail
	}

	if created != nil {
		s.allocateLockerBestEffort(ctx, created)
		s.broadcastLesson(ctx, created.LessonID)
	}

	s.log.Info("Late-bound enrollment created from webhook",
		zap.String("tid", n.Tid),
		zap.String("moid", n.Moid),
	)
	return WebhookOK
}

// allocateLockerBestEffort takes inventory after payment confirms.
// Failure never fails the payment; the flag just stays false and the
// admin can resolve it manually.
func (s *webhookService) allocateLockerBestEffort(ctx context.Context, enrollment *entity.Enrollment) {
	if !enrollment.UsesLocker || enrollment.LockerAllocated {
		return
	}
	if enrollment.LockerGender == "" {
		s.log.Warn("Locker requested without a gender zone", zap.Int64("enrollment_id", enrollment.ID))
		return
	}

	ok, err := s.inventory.Allocate(ctx, enrollment.LockerGender)
	if err != nil {
		s.log.Error("Locker allocation errored",
			zap.Error(err),
			zap.Int64("enrollment_id", enrollment.ID),
		)
		return
	}
	if !ok {
		s.log.Warn("Locker zone full, allocation skipped",
			zap.Int64("enrollment_id", enrollment.ID),
			zap.String("gender", enrollment.LockerGender),
		)
		return
	}

	enrollment.LockerAllocated = true
	if err := s.repo.Enrollment.Update(ctx, enrollment); err != nil {
		s.log.Error("Failed to persist locker allocation",
			zap.Error(err),
			zap.Int64("enrollment_id", enrollment.ID),
		)
	}
}

func (s *webhookService) broadcastLesson(ctx context.Context, lessonID int64) {
	lesson, err := s.repo.Lesson.FindByID(ctx, lessonID)
	if err != nil || lesson == nil {
		return
	}
	paid, err := s.repo.Enrollment.CountPaidByLesson(ctx, lessonID)
	if err != nil {
		return
	}
	unpaid, err := s.repo.Enrollment.CountUnpaidActiveByLesson(ctx, lessonID, s.now())
	if err != nil {
		return
	}

	update := broadcast.CapacityUpdate{
		LessonID:          lessonID,
		Capacity:          lesson.Capacity,
		PaidCount:         paid,
		UnpaidActiveCount: unpaid,
	}
	if err := s.broadcaster.PublishCapacity(ctx, update); err != nil {
		s.log.Warn("Capacity broadcast failed", zap.Error(err), zap.Int64("lesson_id", lessonID))
	}
}

func (s *webhookService) ipAllowed(remoteIP string) bool {
	if s.env != "prod" {
		return true
	}
	for _, ip := range s.allowedIPs {
		if ip == remoteIP {
			return true
		}
	}
	return false
}

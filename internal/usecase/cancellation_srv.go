package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/internal/dto/request"
	"lesson-enrollment/internal/dto/response"
	"lesson-enrollment/pkg/gateway"
	"lesson-enrollment/pkg/locker"
	"lesson-enrollment/pkg/utils"

	"go.uber.org/zap"
)

// RefundGateway is the slice of the payment gateway the cancellation
// flow needs. Satisfied by gateway.Client.
type RefundGateway interface {
	Cancel(ctx context.Context, tid, moid string, cancelAmt int, partial bool, reason string) (*gateway.CancelResponse, error)
}

type CancellationService interface {
	RequestCancel(ctx context.Context, userID string, enrollmentID int64, req *request.CancelEnrollmentRequest) error
	AdminCancel(ctx context.Context, enrollmentID int64, req *request.AdminCancelRequest) error
	ApproveCancel(ctx context.Context, enrollmentID int64, req *request.ApproveCancelRequest) (*response.RefundPreviewResponse, error)
	DenyCancel(ctx context.Context, enrollmentID int64) error
	RefundPreview(ctx context.Context, enrollmentID int64, usedDays *int) (*response.RefundPreviewResponse, error)
}

type cancellationService struct {
	repo      *repository.Repository
	tx        TxRunner
	gateway   RefundGateway
	inventory locker.Inventory
	policy    RefundPolicy
	log       *zap.Logger
	now       func() time.Time
}

func NewCancellationService(repo *repository.Repository, tx TxRunner, gw RefundGateway, inventory locker.Inventory, policy RefundPolicy, log *zap.Logger) CancellationService {
	return &cancellationService{
		repo:      repo,
		tx:        tx,
		gateway:   gw,
		inventory: inventory,
		policy:    policy,
		log:       log.With(zap.String("service", "cancellation")),
		now:       time.Now,
	}
}

func (s *cancellationService) RequestCancel(ctx context.Context, userID string, enrollmentID int64, req *request.CancelEnrollmentRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	now := s.now()

	return s.tx.RunInTx(ctx, func(r *repository.Repository) error {
		enrollment, err := r.Enrollment.FindByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return utils.NewBusinessError(utils.CodeNotFound, fmt.Sprintf("enrollment %d not found", enrollmentID))
		}
		if enrollment.UserID != userID {
			return utils.NewBusinessError(utils.CodeForbidden, "not your enrollment")
		}

		switch enrollment.PayStatus {
		case entity.PayStatusUnpaid:
			// No payment should exist for a hold. A stray one means
			// deleting the row would orphan a payment record, so the
			// hold is closed instead.
			stray, err := r.Payment.FindByEnrollmentID(ctx, enrollmentID)
			if err != nil {
				return err
			}
			if stray == nil {
				s.log.Info("Unpaid hold deleted on user cancel", zap.Int64("enrollment_id", enrollmentID))
				return r.Enrollment.Delete(ctx, enrollmentID)
			}

			enrollment.PayStatus = entity.PayStatusCanceledUnpaid
			enrollment.Status = entity.EnrollStatusCanceled
			enrollment.CancelReason = req.Reason
			s.log.Warn("Stray payment found for unpaid hold, closing instead of deleting",
				zap.Int64("enrollment_id", enrollmentID),
				zap.String("tid", stray.Tid),
			)
			return r.Enrollment.Update(ctx, enrollment)

		case entity.PayStatusPaid, entity.PayStatusPartialRefunded:
			lesson, err := r.Lesson.FindByID(ctx, enrollment.LessonID)
			if err != nil {
				return err
			}

			snapshot := enrollment.PayStatus
			enrollment.PayStatusSnapshot = &snapshot
			enrollment.CancelStatus = entity.CancelStatusReq
			enrollment.PayStatus = entity.PayStatusRefundRequested
			enrollment.CancelReason = req.Reason
			if lesson != nil && lesson.StartedBy(now) {
				enrollment.Status = entity.EnrollStatusCanceledReq
			} else {
				enrollment.Status = entity.EnrollStatusCanceled
			}

			s.log.Info("Cancellation requested",
				zap.Int64("enrollment_id", enrollmentID),
				zap.String("status", string(enrollment.Status)),
			)
			return r.Enrollment.Update(ctx, enrollment)

		default:
			return utils.NewBusinessError(utils.CodeInvalidState,
				fmt.Sprintf("cannot cancel enrollment in pay status %s", enrollment.PayStatus))
		}
	})
}

// AdminCancel forces the enrollment into the cancellation branch. It
// never touches locker inventory and never calls the gateway; a paid
// enrollment just waits for the refund approval step.
func (s *cancellationService) AdminCancel(ctx context.Context, enrollmentID int64, req *request.AdminCancelRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	return s.tx.RunInTx(ctx, func(r *repository.Repository) error {
		enrollment, err := r.Enrollment.FindByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return utils.NewBusinessError(utils.CodeNotFound, fmt.Sprintf("enrollment %d not found", enrollmentID))
		}

		switch enrollment.PayStatus {
		case entity.PayStatusPaid, entity.PayStatusPartialRefunded:
			snapshot := enrollment.PayStatus
			enrollment.PayStatusSnapshot = &snapshot
			enrollment.PayStatus = entity.PayStatusRefundPendingAdminCancel
		case entity.PayStatusUnpaid:
			enrollment.PayStatus = entity.PayStatusCanceledUnpaid
		default:
			return utils.NewBusinessError(utils.CodeInvalidState,
				fmt.Sprintf("cannot admin-cancel enrollment in pay status %s", enrollment.PayStatus))
		}

		enrollment.CancelStatus = entity.CancelStatusAdminCanceled
		enrollment.Status = entity.EnrollStatusCanceled
		enrollment.CancelReason = req.Reason

		s.log.Info("Admin cancellation applied",
			zap.Int64("enrollment_id", enrollmentID),
			zap.String("pay_status", string(enrollment.PayStatus)),
		)
		return r.Enrollment.Update(ctx, enrollment)
	})
}

func (s *cancellationService) ApproveCancel(ctx context.Context, enrollmentID int64, req *request.ApproveCancelRequest) (*response.RefundPreviewResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	now := s.now()

	var enrollment *entity.Enrollment
	var breakdown RefundBreakdown

	err := s.tx.RunInTx(ctx, func(r *repository.Repository) error {
		// The row lock is held across the whole approval, gateway
		// round-trip included, so a concurrent approval blocks here
		// and then sees the committed refund instead of paying out a
		// second time.
		var err error
		enrollment, err = r.Enrollment.FindByIDForUpdate(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return utils.NewBusinessError(utils.CodeNotFound, fmt.Sprintf("enrollment %d not found", enrollmentID))
		}

		switch enrollment.PayStatus {
		case entity.PayStatusRefundRequested, entity.PayStatusRefundPendingAdminCancel:
		case entity.PayStatusRefunded:
			return utils.NewBusinessError(utils.CodeAlreadyRefunded, "enrollment already refunded")
		default:
			return utils.NewBusinessError(utils.CodeInvalidState,
				fmt.Sprintf("no pending cancellation for pay status %s", enrollment.PayStatus))
		}

		payment, err := r.Payment.FindByEnrollmentID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return utils.NewBusinessError(utils.CodeInvalidState, "no payment recorded for enrollment")
		}

		lesson, err := r.Lesson.FindByID(ctx, enrollment.LessonID)
		if err != nil {
			return err
		}

		breakdown = CalculateRefund(s.policy, enrollment, payment, lesson, req.UsedDays, now)

		targetPay := entity.PayStatusRefunded
		targetPayment := entity.PaymentStatusCanceled
		if !breakdown.IsFullRefund && breakdown.FinalRefund > 0 {
			targetPay = entity.PayStatusPartialRefunded
			targetPayment = entity.PaymentStatusPartialRefunded
		}
		if !entity.CanTransitionPayStatus(enrollment.PayStatus, targetPay) {
			return utils.NewBusinessError(utils.CodeInvalidState,
				fmt.Sprintf("pay status %s cannot move to %s", enrollment.PayStatus, targetPay))
		}
		if !entity.CanTransitionPaymentStatus(payment.Status, targetPayment) {
			return utils.NewBusinessError(utils.CodeInvalidState,
				fmt.Sprintf("payment status %s cannot move to %s", payment.Status, targetPayment))
		}

		// The gateway round-trip happens before any mutation so a
		// rejection or outage leaves every record untouched. Partial
		// from the gateway's point of view means anything short of
		// the transaction's full original amount.
		if breakdown.FinalRefund > 0 {
			partial := breakdown.FinalRefund < breakdown.PaidAmt
			_, err := s.gateway.Cancel(ctx, payment.Tid, payment.Moid, breakdown.FinalRefund, partial, enrollment.CancelReason)
			if err != nil {
				var gwErr *gateway.Error
				if errors.As(err, &gwErr) && gwErr.Kind == gateway.KindRejected {
					s.log.Warn("Gateway rejected refund",
						zap.Int64("enrollment_id", enrollmentID),
						zap.String("code", gwErr.Code),
					)
					return utils.NewBusinessError(utils.CodeGatewayRejected, gwErr.Message)
				}
				s.log.Error("Gateway refund call failed", zap.Error(err), zap.Int64("enrollment_id", enrollmentID))
				return utils.NewBusinessError(utils.CodeGatewayError, "payment gateway unreachable")
			}
		}

		payment.Status = targetPayment
		payment.RefundedAmt += breakdown.FinalRefund
		if err := r.Payment.Update(ctx, payment); err != nil {
			return err
		}

		enrollment.PayStatus = targetPay
		enrollment.Status = entity.EnrollStatusCanceled
		enrollment.CancelStatus = entity.CancelStatusApproved
		enrollment.DaysUsedForRefund = req.UsedDays
		enrollment.PayStatusSnapshot = nil
		return r.Enrollment.Update(ctx, enrollment)
	})
	if err != nil {
		return nil, err
	}

	if enrollment.LockerAllocated {
		if err := s.inventory.Release(ctx, enrollment.LockerGender); err != nil {
			s.log.Error("Locker release failed, reconciliation will correct",
				zap.Error(err),
				zap.Int64("enrollment_id", enrollmentID),
			)
		} else {
			enrollment.LockerAllocated = false
			if err := s.repo.Enrollment.Update(ctx, enrollment); err != nil {
				s.log.Error("Failed to persist locker release", zap.Error(err), zap.Int64("enrollment_id", enrollmentID))
			}
		}
	}

	s.log.Info("Cancellation approved",
		zap.Int64("enrollment_id", enrollmentID),
		zap.Int("final_refund", breakdown.FinalRefund),
		zap.Bool("full_refund", breakdown.IsFullRefund),
	)

	return breakdownToResponse(enrollmentID, breakdown), nil
}

// DenyCancel restores the exact pre-cancellation pay status and, if
// the user wanted a locker that was never allocated, tries to take
// one now. Allocation failure downgrades the intent instead of
// blocking the denial.
func (s *cancellationService) DenyCancel(ctx context.Context, enrollmentID int64) error {
	var reallocate *entity.Enrollment

	err := s.tx.RunInTx(ctx, func(r *repository.Repository) error {
		enrollment, err := r.Enrollment.FindByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return utils.NewBusinessError(utils.CodeNotFound, fmt.Sprintf("enrollment %d not found", enrollmentID))
		}

		switch enrollment.PayStatus {
		case entity.PayStatusRefundRequested, entity.PayStatusRefundPendingAdminCancel:
		default:
			return utils.NewBusinessError(utils.CodeInvalidState,
				fmt.Sprintf("no pending cancellation for pay status %s", enrollment.PayStatus))
		}

		restored := entity.PayStatusPaid
		if enrollment.PayStatusSnapshot != nil {
			restored = *enrollment.PayStatusSnapshot
		}
		if !entity.CanTransitionPayStatus(enrollment.PayStatus, restored) {
			return utils.NewBusinessError(utils.CodeInvalidState,
				fmt.Sprintf("pay status %s cannot restore to %s", enrollment.PayStatus, restored))
		}
		if enrollment.Status != entity.EnrollStatusApplied &&
			!entity.CanTransitionEnrollStatus(enrollment.Status, entity.EnrollStatusApplied) {
			return utils.NewBusinessError(utils.CodeInvalidState,
				fmt.Sprintf("status %s cannot restore to %s", enrollment.Status, entity.EnrollStatusApplied))
		}

		enrollment.PayStatus = restored
		enrollment.Status = entity.EnrollStatusApplied
		enrollment.CancelStatus = entity.CancelStatusDenied
		enrollment.PayStatusSnapshot = nil
		enrollment.CancelReason = ""
		enrollment.DaysUsedForRefund = nil

		if err := r.Enrollment.Update(ctx, enrollment); err != nil {
			return err
		}

		if enrollment.UsesLocker && !enrollment.LockerAllocated {
			reallocate = enrollment
		}
		return nil
	})
	if err != nil {
		return err
	}

	if reallocate != nil {
		s.reallocateLocker(ctx, reallocate)
	}

	s.log.Info("Cancellation denied, state restored", zap.Int64("enrollment_id", enrollmentID))
	return nil
}

func (s *cancellationService) reallocateLocker(ctx context.Context, enrollment *entity.Enrollment) {
	ok, err := s.inventory.Allocate(ctx, enrollment.LockerGender)
	if err != nil || !ok {
		if err != nil {
			s.log.Error("Locker re-allocation errored", zap.Error(err), zap.Int64("enrollment_id", enrollment.ID))
		}
		enrollment.UsesLocker = false
		enrollment.LockerAllocated = false
	} else {
		enrollment.LockerAllocated = true
	}

	if err := s.repo.Enrollment.Update(ctx, enrollment); err != nil {
		s.log.Error("Failed to persist locker re-allocation",
			zap.Error(err),
			zap.Int64("enrollment_id", enrollment.ID),
		)
	}
}

// RefundPreview never errors for a structurally valid enrollment id.
// States with no refund meaning return an all-zero breakdown.
func (s *cancellationService) RefundPreview(ctx context.Context, enrollmentID int64, usedDays *int) (*response.RefundPreviewResponse, error) {
	enrollment, err := s.repo.Enrollment.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, utils.NewBusinessError(utils.CodeNotFound, fmt.Sprintf("enrollment %d not found", enrollmentID))
	}

	payment, err := s.repo.Payment.FindByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.Status == entity.PaymentStatusFailed {
		return breakdownToResponse(enrollmentID, RefundBreakdown{}), nil
	}

	lesson, err := s.repo.Lesson.FindByID(ctx, enrollment.LessonID)
	if err != nil {
		return nil, err
	}

	breakdown := CalculateRefund(s.policy, enrollment, payment, lesson, usedDays, s.now())
	return breakdownToResponse(enrollmentID, breakdown), nil
}

func breakdownToResponse(enrollmentID int64, b RefundBreakdown) *response.RefundPreviewResponse {
	return &response.RefundPreviewResponse{
		EnrollmentID:    enrollmentID,
		SystemDays:      b.SystemDays,
		EffectiveDays:   b.EffectiveDays,
		PaidAmt:         b.PaidAmt,
		PaidLessonAmt:   b.PaidLessonAmt,
		PaidLockerAmt:   b.PaidLockerAmt,
		LessonDeduction: b.LessonDeduction,
		LockerDeduction: b.LockerDeduction,
		FinalRefund:     b.FinalRefund,
		IsFullRefund:    b.IsFullRefund,
	}
}

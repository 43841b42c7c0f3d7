package usecase

import (
	"context"
	"fmt"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/internal/dto/request"
	"lesson-enrollment/internal/dto/response"
	"lesson-enrollment/pkg/broadcast"
	"lesson-enrollment/pkg/database"
	"lesson-enrollment/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type EnrollmentService interface {
	CreateEnrollment(ctx context.Context, userID string, req *request.CreateEnrollmentRequest) (*response.EnrollmentResponse, error)
	CreateRenewal(ctx context.Context, userID string, req *request.RenewalEnrollmentRequest) (*response.EnrollmentResponse, error)
	CheckEligibility(ctx context.Context, userID string, lessonID int64) (*response.EligibilityResponse, error)
	GetUserEnrollments(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.EnrollmentResponse], error)
}

type enrollmentService struct {
	repo        *repository.Repository
	tx          TxRunner
	broadcaster broadcast.Broadcaster
	holdTTL     time.Duration
	lockerFee   int
	log         *zap.Logger
	now         func() time.Time
}

func NewEnrollmentService(repo *repository.Repository, tx TxRunner, broadcaster broadcast.Broadcaster, holdTTL time.Duration, lockerFee int, log *zap.Logger) EnrollmentService {
	return &enrollmentService{
		repo:        repo,
		tx:          tx,
		broadcaster: broadcaster,
		holdTTL:     holdTTL,
		lockerFee:   lockerFee,
		log:         log.With(zap.String("service", "enrollment")),
		now:         time.Now,
	}
}

func (s *enrollmentService) CreateEnrollment(ctx context.Context, userID string, req *request.CreateEnrollmentRequest) (*response.EnrollmentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create enrollment validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}
	if req.WantsLocker && req.LockerGender == "" {
		return nil, utils.NewBusinessError(utils.CodeInvalidState, "locker gender required when requesting a locker")
	}

	return s.admit(ctx, userID, req.LessonID, req.WantsLocker, req.LockerGender, false, RegistrationOpen)
}

func (s *enrollmentService) CreateRenewal(ctx context.Context, userID string, req *request.RenewalEnrollmentRequest) (*response.EnrollmentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create renewal validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	now := s.now()
	previous, err := s.repo.Enrollment.FindPaidByUserForPreviousMonth(ctx, userID, monthStart(now), monthEnd(now))
	if err != nil {
		return nil, fmt.Errorf("detect renewal eligibility: %w", err)
	}
	if len(previous) == 0 {
		return nil, utils.NewBusinessError(utils.CodeInvalidState, "no current enrollment to renew")
	}

	wantsLocker := req.WantsLocker
	lockerGender := ""
	if req.CarryLocker {
		wantsLocker = previous[0].UsesLocker
		lockerGender = previous[0].LockerGender
	}
	if wantsLocker && lockerGender == "" {
		lockerGender = previous[0].LockerGender
	}

	return s.admit(ctx, userID, req.LessonID, wantsLocker, lockerGender, true, RenewalOpen)
}

// admit runs the full admission check and hold creation inside one
// serializable transaction, retried on conflicts. The capacity
// broadcast happens after commit so subscribers never see an
// uncommitted count.
func (s *enrollmentService) admit(ctx context.Context, userID string, lessonID int64, wantsLocker bool, lockerGender string, renewal bool, windowOpen func(lessonStart, now time.Time) bool) (*response.EnrollmentResponse, error) {
	now := s.now()

	var created *entity.Enrollment
	var update broadcast.CapacityUpdate

	err := s.tx.RunSerializable(ctx, func(r *repository.Repository) error {
		lesson, err := r.Lesson.FindByIDForUpdate(ctx, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return utils.NewBusinessError(utils.CodeNotFound, fmt.Sprintf("lesson %d not found", lessonID))
		}
		if lesson.Status != entity.LessonStatusOpen {
			return utils.NewBusinessError(utils.CodeRegistrationClosed, "lesson is closed")
		}
		if !windowOpen(lesson.StartDate, now) {
			return utils.NewBusinessError(utils.CodeRegistrationClosed, "registration window is closed")
		}

		user, err := r.User.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil || !user.IsActive {
			return utils.NewBusinessError(utils.CodeNotFound, "user not found")
		}

		if err := checkAdmission(ctx, r, user, lesson, now); err != nil {
			return err
		}

		paidCount, err := r.Enrollment.CountPaidByLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		unpaidActive, err := r.Enrollment.CountUnpaidActiveByLesson(ctx, lessonID, now)
		if err != nil {
			return err
		}
		if paidCount+unpaidActive >= lesson.Capacity {
			return utils.NewBusinessError(utils.CodeCapacityExceeded, "lesson is full")
		}

		discount := user.Membership.DiscountPercent()
		finalAmount := discountedAmount(lesson.Price, discount)
		if wantsLocker {
			finalAmount += s.lockerFee
		}

		expireAt := now.Add(s.holdTTL)
		enrollment := &entity.Enrollment{
			Base:            entity.Base{CreatedAt: now, UpdatedAt: now},
			UserID:          userID,
			LessonID:        lessonID,
			Status:          entity.EnrollStatusApplied,
			PayStatus:       entity.PayStatusUnpaid,
			CancelStatus:    entity.CancelStatusNone,
			ExpireAt:        &expireAt,
			UsesLocker:      wantsLocker,
			LockerGender:    lockerGender,
			Membership:      user.Membership,
			FinalAmount:     finalAmount,
			DiscountPercent: discount,
			RenewalFlag:     renewal,
		}
		if err := r.Enrollment.Create(ctx, enrollment); err != nil {
			return err
		}

		created = enrollment
		update = broadcast.CapacityUpdate{
			LessonID:          lessonID,
			Capacity:          lesson.Capacity,
			PaidCount:         paidCount,
			UnpaidActiveCount: unpaidActive + 1,
		}
		return nil
	})

	if err != nil {
		if database.IsRetryableTxError(err) {
			return nil, utils.NewBusinessError(utils.CodeRetryExhausted, "enrollment could not be completed, please retry")
		}
		return nil, err
	}

	s.log.Info("Enrollment hold created",
		zap.Int64("enrollment_id", created.ID),
		zap.Int64("lesson_id", lessonID),
		zap.String("user_id", userID),
		zap.Bool("renewal", renewal),
	)

	if err := s.broadcaster.PublishCapacity(ctx, update); err != nil {
		s.log.Warn("Capacity broadcast failed", zap.Error(err), zap.Int64("lesson_id", lessonID))
	}

	res := response.EnrollmentToResponse(created)
	res.Moid = utils.GenerateMoid(created.ID, now)
	return &res, nil
}

func (s *enrollmentService) CheckEligibility(ctx context.Context, userID string, lessonID int64) (*response.EligibilityResponse, error) {
	now := s.now()

	lesson, err := s.repo.Lesson.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, utils.NewBusinessError(utils.CodeNotFound, fmt.Sprintf("lesson %d not found", lessonID))
	}

	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, utils.NewBusinessError(utils.CodeNotFound, "user not found")
	}

	if lesson.Status != entity.LessonStatusOpen || !RegistrationOpen(lesson.StartDate, now) {
		return &response.EligibilityResponse{Eligible: false, Reason: "registration window is closed"}, nil
	}

	if err := checkAdmission(ctx, s.repo, user, lesson, now); err != nil {
		if be, ok := utils.AsBusinessError(err); ok {
			return &response.EligibilityResponse{Eligible: false, Reason: be.Message}, nil
		}
		return nil, err
	}

	paidCount, err := s.repo.Enrollment.CountPaidByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	unpaidActive, err := s.repo.Enrollment.CountUnpaidActiveByLesson(ctx, lessonID, now)
	if err != nil {
		return nil, err
	}
	if paidCount+unpaidActive >= lesson.Capacity {
		return &response.EligibilityResponse{Eligible: false, Reason: "lesson is full"}, nil
	}

	return &response.EligibilityResponse{
		Eligible: true,
		TempMoid: utils.GenerateTempMoid(lessonID, userID, now),
	}, nil
}

func (s *enrollmentService) GetUserEnrollments(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.EnrollmentResponse], error) {
	enrollments, err := s.repo.Enrollment.FindByUserID(ctx, userID, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Enrollment.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]response.EnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		items = append(items, response.EnrollmentToResponse(e))
	}

	return response.NewPaginatedResponse(items, req.Page, req.Limit(), total), nil
}

// checkAdmission applies the per-user rules shared by admission and
// the eligibility pre-check: no second active enrollment for the same
// lesson, one lesson per calendar month, and no re-application after
// an admin-canceled refund for the same lesson.
func checkAdmission(ctx context.Context, r *repository.Repository, user *entity.User, lesson *entity.Lesson, now time.Time) error {
	existing, err := r.Enrollment.FindActiveByUserAndLesson(ctx, user.ID, lesson.ID, now)
	if err != nil {
		return err
	}
	if existing != nil {
		return utils.NewBusinessError(utils.CodeDuplicateEnrollment, "already enrolled in this lesson")
	}

	taken, err := r.Enrollment.ExistsActiveInMonth(ctx, user.ID, monthStart(lesson.StartDate), monthEnd(lesson.StartDate), now)
	if err != nil {
		return err
	}
	if taken {
		return utils.NewBusinessError(utils.CodeMonthlyLimit, "another lesson already enrolled for this month")
	}

	blocked, err := r.Enrollment.ExistsAdminCancelRefunded(ctx, user.ID, lesson.ID)
	if err != nil {
		return err
	}
	if blocked {
		return utils.NewBusinessError(utils.CodeInvalidState, "re-application not allowed after an admin cancellation")
	}

	return nil
}

func discountedAmount(price, discountPercent int) int {
	if discountPercent <= 0 {
		return price
	}
	// Discounted amounts round down to the whole won.
	return int(decimal.NewFromInt(int64(price)).
		Mul(decimal.NewFromInt(int64(100 - discountPercent))).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart())
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/internal/dto/request"
	"lesson-enrollment/internal/dto/response"
	"lesson-enrollment/pkg/locker"
	"lesson-enrollment/pkg/utils"

	"go.uber.org/zap"
)

type LessonService interface {
	ListLessons(ctx context.Context, monthStart, monthEnd *time.Time, req *request.PaginatedRequest) (*response.PaginatedResponse[response.LessonResponse], error)
	GetLesson(ctx context.Context, id int64) (*response.LessonResponse, error)
	LockerAvailability(ctx context.Context) ([]response.LockerAvailabilityResponse, error)
	UpdateLockerCapacity(ctx context.Context, gender string, req *request.UpdateLockerCapacityRequest) (*response.LockerAvailabilityResponse, error)
}

type lessonService struct {
	repo      *repository.Repository
	inventory locker.Inventory
	log       *zap.Logger
	now       func() time.Time
}

func NewLessonService(repo *repository.Repository, inventory locker.Inventory, log *zap.Logger) LessonService {
	return &lessonService{
		repo:      repo,
		inventory: inventory,
		log:       log.With(zap.String("service", "lesson")),
		now:       time.Now,
	}
}

func (s *lessonService) ListLessons(ctx context.Context, monthStart, monthEnd *time.Time, req *request.PaginatedRequest) (*response.PaginatedResponse[response.LessonResponse], error) {
	lessons, err := s.repo.Lesson.List(ctx, monthStart, monthEnd, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Lesson.Count(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]response.LessonResponse, 0, len(lessons))
	for _, lesson := range lessons {
		paid, err := s.repo.Enrollment.CountPaidByLesson(ctx, lesson.ID)
		if err != nil {
			return nil, err
		}
		unpaid, err := s.repo.Enrollment.CountUnpaidActiveByLesson(ctx, lesson.ID, now)
		if err != nil {
			return nil, err
		}
		items = append(items, response.LessonToResponse(lesson, paid, unpaid))
	}

	return response.NewPaginatedResponse(items, req.Page, req.Limit(), total), nil
}

func (s *lessonService) GetLesson(ctx context.Context, id int64) (*response.LessonResponse, error) {
	lesson, err := s.repo.Lesson.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, utils.NewBusinessError(utils.CodeNotFound, fmt.Sprintf("lesson %d not found", id))
	}

	paid, err := s.repo.Enrollment.CountPaidByLesson(ctx, lesson.ID)
	if err != nil {
		return nil, err
	}
	unpaid, err := s.repo.Enrollment.CountUnpaidActiveByLesson(ctx, lesson.ID, s.now())
	if err != nil {
		return nil, err
	}

	res := response.LessonToResponse(lesson, paid, unpaid)
	return &res, nil
}

func (s *lessonService) LockerAvailability(ctx context.Context) ([]response.LockerAvailabilityResponse, error) {
	genders := []string{locker.GenderMale, locker.GenderFemale}

	result := make([]response.LockerAvailabilityResponse, 0, len(genders))
	for _, gender := range genders {
		snapshot, err := s.inventory.Snapshot(ctx, gender)
		if err != nil {
			return nil, fmt.Errorf("locker snapshot for %s: %w", gender, err)
		}
		result = append(result, response.LockerAvailabilityResponse{
			Gender:    snapshot.Gender,
			Capacity:  snapshot.Capacity,
			Used:      snapshot.Used,
			Available: snapshot.Available,
		})
	}

	return result, nil
}

// UpdateLockerCapacity persists the new zone size and pushes it into
// the live counters so allocations see it immediately.
func (s *lessonService) UpdateLockerCapacity(ctx context.Context, gender string, req *request.UpdateLockerCapacityRequest) (*response.LockerAvailabilityResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}
	if gender != locker.GenderMale && gender != locker.GenderFemale {
		return nil, utils.NewBusinessError(utils.CodeInvalidState, fmt.Sprintf("unknown locker zone %s", gender))
	}

	if err := s.repo.Locker.UpsertZone(ctx, gender, req.Capacity); err != nil {
		return nil, err
	}
	if err := s.inventory.SetCapacity(ctx, gender, req.Capacity); err != nil {
		return nil, err
	}

	s.log.Info("Locker capacity updated",
		zap.String("gender", gender),
		zap.Int64("capacity", req.Capacity),
	)

	snapshot, err := s.inventory.Snapshot(ctx, gender)
	if err != nil {
		return nil, err
	}

	return &response.LockerAvailabilityResponse{
		Gender:    snapshot.Gender,
		Capacity:  snapshot.Capacity,
		Used:      snapshot.Used,
		Available: snapshot.Available,
	}, nil
}

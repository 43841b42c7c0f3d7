package usecase_test

import (
	"context"
	"testing"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/internal/dto/request"
	"lesson-enrollment/internal/usecase"
	"lesson-enrollment/pkg/locker"
	"lesson-enrollment/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestListLessons(t *testing.T) {
	ctx := context.Background()

	repo, enrollments, _, lessons, _, _ := newMockRepos()

	lesson := currentMonthLesson(10, 20)
	lessons.On("List", ctx, mock.Anything, mock.Anything, 10, 0).
		Return([]*entity.Lesson{lesson}, nil)
	lessons.On("Count", ctx, mock.Anything, mock.Anything).Return(int64(1), nil)
	enrollments.On("CountPaidByLesson", ctx, int64(10)).Return(12, nil)
	enrollments.On("CountUnpaidActiveByLesson", ctx, int64(10), mock.Anything).Return(3, nil)

	svc := usecase.NewLessonService(repo, new(MockInventory), zap.NewNop())
	res, err := svc.ListLessons(ctx, nil, nil, &request.PaginatedRequest{Page: 1, PerPage: 10})

	assert.NoError(t, err)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 12, res.Data[0].PaidCount)
	assert.Equal(t, 3, res.Data[0].UnpaidActive)
	assert.Equal(t, 5, res.Data[0].RemainingSlots)
	assert.Equal(t, int64(1), res.Pagination.Total)
}

func TestGetLesson(t *testing.T) {
	ctx := context.Background()

	t.Run("returns one lesson with live counts", func(t *testing.T) {
		repo, enrollments, _, lessons, _, _ := newMockRepos()

		lessons.On("FindByID", ctx, int64(10)).Return(currentMonthLesson(10, 20), nil)
		enrollments.On("CountPaidByLesson", ctx, int64(10)).Return(18, nil)
		enrollments.On("CountUnpaidActiveByLesson", ctx, int64(10), mock.Anything).Return(2, nil)

		svc := usecase.NewLessonService(repo, new(MockInventory), zap.NewNop())
		res, err := svc.GetLesson(ctx, 10)

		assert.NoError(t, err)
		assert.Equal(t, 0, res.RemainingSlots)
	})

	t.Run("unknown lesson is not found", func(t *testing.T) {
		repo, _, _, lessons, _, _ := newMockRepos()

		lessons.On("FindByID", ctx, int64(99)).Return(nil, nil)

		svc := usecase.NewLessonService(repo, new(MockInventory), zap.NewNop())
		res, err := svc.GetLesson(ctx, 99)

		assert.Nil(t, res)
		be, ok := utils.AsBusinessError(err)
		assert.True(t, ok)
		assert.Equal(t, utils.CodeNotFound, be.Code)
	})
}

func TestLockerAvailability(t *testing.T) {
	ctx := context.Background()

	repo, _, _, _, _, _ := newMockRepos()
	inventory := new(MockInventory)

	inventory.On("Snapshot", ctx, locker.GenderMale).
		Return(&locker.Availability{Gender: "MALE", Capacity: 50, Used: 30, Available: 20}, nil)
	inventory.On("Snapshot", ctx, locker.GenderFemale).
		Return(&locker.Availability{Gender: "FEMALE", Capacity: 40, Used: 40, Available: 0}, nil)

	svc := usecase.NewLessonService(repo, inventory, zap.NewNop())
	res, err := svc.LockerAvailability(ctx)

	assert.NoError(t, err)
	assert.Len(t, res, 2)
	assert.Equal(t, int64(20), res[0].Available)
	assert.Equal(t, int64(0), res[1].Available)
}

func TestUpdateLockerCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("persists and pushes the new capacity", func(t *testing.T) {
		repo, _, _, _, _, lockers := newMockRepos()
		inventory := new(MockInventory)

		lockers.On("UpsertZone", ctx, "MALE", int64(60)).Return(nil)
		inventory.On("SetCapacity", ctx, "MALE", int64(60)).Return(nil)
		inventory.On("Snapshot", ctx, "MALE").
			Return(&locker.Availability{Gender: "MALE", Capacity: 60, Used: 30, Available: 30}, nil)

		svc := usecase.NewLessonService(repo, inventory, zap.NewNop())
		res, err := svc.UpdateLockerCapacity(ctx, "MALE", &request.UpdateLockerCapacityRequest{Capacity: 60})

		assert.NoError(t, err)
		assert.Equal(t, int64(60), res.Capacity)
		lockers.AssertExpectations(t)
		inventory.AssertExpectations(t)
	})

	t.Run("rejects an unknown zone", func(t *testing.T) {
		repo, _, _, _, _, _ := newMockRepos()

		svc := usecase.NewLessonService(repo, new(MockInventory), zap.NewNop())
		res, err := svc.UpdateLockerCapacity(ctx, "OTHER", &request.UpdateLockerCapacityRequest{Capacity: 10})

		assert.Nil(t, res)
		be, ok := utils.AsBusinessError(err)
		assert.True(t, ok)
		assert.Equal(t, utils.CodeInvalidState, be.Code)
	})
}

package scheduler_test

import (
	"context"
	"testing"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/internal/scheduler"
	"lesson-enrollment/pkg/broadcast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockEnrollmentRepo struct {
	mock.Mock
}

func (m *MockEnrollmentRepo) Create(ctx context.Context, enrollment *entity.Enrollment) error {
	return m.Called(ctx, enrollment).Error(0)
}

func (m *MockEnrollmentRepo) FindByID(ctx context.Context, id int64) (*entity.Enrollment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepo) FindByIDForUpdate(ctx context.Context, id int64) (*entity.Enrollment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Enrollment, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepo) CountByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEnrollmentRepo) Update(ctx context.Context, enrollment *entity.Enrollment) error {
	return m.Called(ctx, enrollment).Error(0)
}

func (m *MockEnrollmentRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEnrollmentRepo) CountPaidByLesson(ctx context.Context, lessonID int64) (int, error) {
	args := m.Called(ctx, lessonID)
	return args.Int(0), args.Error(1)
}

func (m *MockEnrollmentRepo) CountUnpaidActiveByLesson(ctx context.Context, lessonID int64, now time.Time) (int, error) {
	args := m.Called(ctx, lessonID, now)
	return args.Int(0), args.Error(1)
}

func (m *MockEnrollmentRepo) FindActiveByUserAndLesson(ctx context.Context, userID string, lessonID int64, now time.Time) (*entity.Enrollment, error) {
	args := m.Called(ctx, userID, lessonID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepo) ExistsActiveInMonth(ctx context.Context, userID string, monthStart, monthEnd time.Time, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, monthStart, monthEnd, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepo) ExistsAdminCancelRefunded(ctx context.Context, userID string, lessonID int64) (bool, error) {
	args := m.Called(ctx, userID, lessonID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepo) FindPaidByUserForPreviousMonth(ctx context.Context, userID string, monthStart, monthEnd time.Time) ([]*entity.Enrollment, error) {
	args := m.Called(ctx, userID, monthStart, monthEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepo) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.Enrollment, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepo) CountAllocatedLockersByGender(ctx context.Context, gender string) (int64, error) {
	args := m.Called(ctx, gender)
	return args.Get(0).(int64), args.Error(1)
}

type MockLessonRepo struct {
	mock.Mock
}

func (m *MockLessonRepo) FindByID(ctx context.Context, id int64) (*entity.Lesson, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lesson), args.Error(1)
}

func (m *MockLessonRepo) FindByIDForUpdate(ctx context.Context, id int64) (*entity.Lesson, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lesson), args.Error(1)
}

func (m *MockLessonRepo) List(ctx context.Context, monthStart, monthEnd *time.Time, limit, offset int) ([]*entity.Lesson, error) {
	args := m.Called(ctx, monthStart, monthEnd, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lesson), args.Error(1)
}

func (m *MockLessonRepo) Count(ctx context.Context, monthStart, monthEnd *time.Time) (int64, error) {
	args := m.Called(ctx, monthStart, monthEnd)
	return args.Get(0).(int64), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) PublishCapacity(ctx context.Context, update broadcast.CapacityUpdate) error {
	return m.Called(ctx, update).Error(0)
}

func TestReaperSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("expires overdue holds and broadcasts per lesson", func(t *testing.T) {
		enrollments := new(MockEnrollmentRepo)
		lessons := new(MockLessonRepo)
		broadcaster := new(MockBroadcaster)
		repo := &repository.Repository{Enrollment: enrollments, Lesson: lessons}

		past := time.Now().Add(-time.Hour)
		holds := []*entity.Enrollment{
			{Base: entity.Base{ID: 1}, LessonID: 10, Status: entity.EnrollStatusApplied, PayStatus: entity.PayStatusUnpaid, ExpireAt: &past},
			{Base: entity.Base{ID: 2}, LessonID: 10, Status: entity.EnrollStatusApplied, PayStatus: entity.PayStatusUnpaid, ExpireAt: &past},
		}

		enrollments.On("FindExpiredHolds", ctx, mock.Anything, 500).Return(holds, nil)
		enrollments.On("Update", ctx, mock.MatchedBy(func(e *entity.Enrollment) bool {
			return e.Status == entity.EnrollStatusExpired && e.PayStatus == entity.PayStatusExpired
		})).Return(nil)
		lessons.On("FindByID", ctx, int64(10)).Return(&entity.Lesson{
			Base:     entity.Base{ID: 10},
			Capacity: 20,
		}, nil)
		enrollments.On("CountPaidByLesson", ctx, int64(10)).Return(5, nil)
		enrollments.On("CountUnpaidActiveByLesson", ctx, int64(10), mock.Anything).Return(0, nil)
		broadcaster.On("PublishCapacity", ctx, mock.MatchedBy(func(u broadcast.CapacityUpdate) bool {
			return u.LessonID == 10 && u.PaidCount == 5 && u.UnpaidActiveCount == 0
		})).Return(nil)

		reaper := scheduler.NewReaper(repo, broadcaster, time.Minute, zap.NewNop())
		n, err := reaper.Sweep(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 2, n)
		broadcaster.AssertNumberOfCalls(t, "PublishCapacity", 1)
	})

	t.Run("nothing to expire is a no-op", func(t *testing.T) {
		enrollments := new(MockEnrollmentRepo)
		broadcaster := new(MockBroadcaster)
		repo := &repository.Repository{Enrollment: enrollments}

		enrollments.On("FindExpiredHolds", ctx, mock.Anything, 500).Return([]*entity.Enrollment{}, nil)

		reaper := scheduler.NewReaper(repo, broadcaster, time.Minute, zap.NewNop())
		n, err := reaper.Sweep(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 0, n)
		broadcaster.AssertNotCalled(t, "PublishCapacity", mock.Anything, mock.Anything)
	})

	t.Run("a failed row does not stop the sweep", func(t *testing.T) {
		enrollments := new(MockEnrollmentRepo)
		lessons := new(MockLessonRepo)
		broadcaster := new(MockBroadcaster)
		repo := &repository.Repository{Enrollment: enrollments, Lesson: lessons}

		past := time.Now().Add(-time.Hour)
		first := &entity.Enrollment{Base: entity.Base{ID: 1}, LessonID: 10, PayStatus: entity.PayStatusUnpaid, ExpireAt: &past}
		second := &entity.Enrollment{Base: entity.Base{ID: 2}, LessonID: 11, PayStatus: entity.PayStatusUnpaid, ExpireAt: &past}

		enrollments.On("FindExpiredHolds", ctx, mock.Anything, 500).
			Return([]*entity.Enrollment{first, second}, nil)
		enrollments.On("Update", ctx, first).Return(assert.AnError)
		enrollments.On("Update", ctx, second).Return(nil)
		lessons.On("FindByID", ctx, int64(11)).Return(&entity.Lesson{Base: entity.Base{ID: 11}, Capacity: 15}, nil)
		enrollments.On("CountPaidByLesson", ctx, int64(11)).Return(3, nil)
		enrollments.On("CountUnpaidActiveByLesson", ctx, int64(11), mock.Anything).Return(1, nil)
		broadcaster.On("PublishCapacity", ctx, mock.Anything).Return(nil)

		reaper := scheduler.NewReaper(repo, broadcaster, time.Minute, zap.NewNop())
		n, err := reaper.Sweep(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1, n)
		broadcaster.AssertNumberOfCalls(t, "PublishCapacity", 1)
	})
}

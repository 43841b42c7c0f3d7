package usecase_test

import (
	"context"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/pkg/broadcast"
	"lesson-enrollment/pkg/gateway"
	"lesson-enrollment/pkg/locker"

	"github.com/stretchr/testify/mock"
)

// stubTxRunner hands the callback a Repository assembled from the
// same mocks the rest of the test uses, so expectations set on them
// cover in-transaction calls too.
type stubTxRunner struct {
	repo *repository.Repository
}

func (s *stubTxRunner) RunInTx(ctx context.Context, fn func(r *repository.Repository) error) error {
	return fn(s.repo)
}

func (s *stubTxRunner) RunSerializable(ctx context.Context, fn func(r *repository.Repository) error) error {
	return fn(s.repo)
}

type MockEnrollmentRepo struct {
	mock.Mock
}

func (m *MockEnrollmentRepo) Create(ctx context.Context, enrollment *entity.Enrollment) error {
	args := m.Called(ctx, enrollment)
	return args.Error(0)
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
	args := m.Called(ctx, enrollment)
	return args.Error(0)
}

func (m *MockEnrollmentRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
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

type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) FindByTid(ctx context.Context, tid string) (*entity.Payment, error) {
	args := m.Called(ctx, tid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepo) FindByEnrollmentID(ctx context.Context, enrollmentID int64) (*entity.Payment, error) {
	args := m.Called(ctx, enrollmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepo) Update(ctx context.Context, payment *entity.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
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

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) FindByIDPrefix(ctx context.Context, prefix string) (*entity.User, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

type MockLockerRepo struct {
	mock.Mock
}

func (m *MockLockerRepo) FindZone(ctx context.Context, gender string) (*entity.LockerZone, error) {
	args := m.Called(ctx, gender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LockerZone), args.Error(1)
}

func (m *MockLockerRepo) ListZones(ctx context.Context) ([]*entity.LockerZone, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.LockerZone), args.Error(1)
}

func (m *MockLockerRepo) UpsertZone(ctx context.Context, gender string, capacity int64) error {
	args := m.Called(ctx, gender, capacity)
	return args.Error(0)
}

type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) Allocate(ctx context.Context, gender string) (bool, error) {
	args := m.Called(ctx, gender)
	return args.Bool(0), args.Error(1)
}

func (m *MockInventory) Release(ctx context.Context, gender string) error {
	args := m.Called(ctx, gender)
	return args.Error(0)
}

func (m *MockInventory) Snapshot(ctx context.Context, gender string) (*locker.Availability, error) {
	args := m.Called(ctx, gender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*locker.Availability), args.Error(1)
}

func (m *MockInventory) SetCapacity(ctx context.Context, gender string, capacity int64) error {
	args := m.Called(ctx, gender, capacity)
	return args.Error(0)
}

func (m *MockInventory) Reconcile(ctx context.Context, gender string, used int64) error {
	args := m.Called(ctx, gender, used)
	return args.Error(0)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) PublishCapacity(ctx context.Context, update broadcast.CapacityUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyNotification(ediDate string, amt int, encData string) bool {
	args := m.Called(ediDate, amt, encData)
	return args.Bool(0)
}

type MockRefundGateway struct {
	mock.Mock
}

func (m *MockRefundGateway) Cancel(ctx context.Context, tid, moid string, cancelAmt int, partial bool, reason string) (*gateway.CancelResponse, error) {
	args := m.Called(ctx, tid, moid, cancelAmt, partial, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CancelResponse), args.Error(1)
}

func newMockRepos() (*repository.Repository, *MockEnrollmentRepo, *MockPaymentRepo, *MockLessonRepo, *MockUserRepo, *MockLockerRepo) {
	enrollments := new(MockEnrollmentRepo)
	payments := new(MockPaymentRepo)
	lessons := new(MockLessonRepo)
	users := new(MockUserRepo)
	lockers := new(MockLockerRepo)

	repo := &repository.Repository{
		User:       users,
		Lesson:     lessons,
		Enrollment: enrollments,
		Payment:    payments,
		Locker:     lockers,
	}
	return repo, enrollments, payments, lessons, users, lockers
}

package repository

import (
	"context"
	"fmt"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *entity.Enrollment) error
	FindByID(ctx context.Context, id int64) (*entity.Enrollment, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*entity.Enrollment, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Enrollment, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, enrollment *entity.Enrollment) error
	Delete(ctx context.Context, id int64) error

	// Capacity and eligibility queries
	CountPaidByLesson(ctx context.Context, lessonID int64) (int, error)
	CountUnpaidActiveByLesson(ctx context.Context, lessonID int64, now time.Time) (int, error)
	FindActiveByUserAndLesson(ctx context.Context, userID string, lessonID int64, now time.Time) (*entity.Enrollment, error)
	ExistsActiveInMonth(ctx context.Context, userID string, monthStart, monthEnd time.Time, now time.Time) (bool, error)
	ExistsAdminCancelRefunded(ctx context.Context, userID string, lessonID int64) (bool, error)
	FindPaidByUserForPreviousMonth(ctx context.Context, userID string, monthStart, monthEnd time.Time) ([]*entity.Enrollment, error)

	// Reaper and reconciliation queries
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.Enrollment, error)
	CountAllocatedLockersByGender(ctx context.Context, gender string) (int64, error)
}

type enrollmentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewEnrollmentRepository(db database.Querier, log *zap.Logger) EnrollmentRepository {
	return &enrollmentRepository{
		db:  db,
		log: log.With(zap.String("repository", "enrollment")),
	}
}

const enrollmentColumns = `id, user_id, lesson_id, status, pay_status, cancel_status, expire_at,
	uses_locker, locker_allocated, locker_gender, membership_type, final_amount, discount_percent,
	days_used_for_refund, renewal_flag, pay_status_snapshot, cancel_reason, created_at, updated_at`

func scanEnrollment(row pgx.Row) (*entity.Enrollment, error) {
	var e entity.Enrollment
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.LessonID,
		&e.Status,
		&e.PayStatus,
		&e.CancelStatus,
		&e.ExpireAt,
		&e.UsesLocker,
		&e.LockerAllocated,
		&e.LockerGender,
		&e.Membership,
		&e.FinalAmount,
		&e.DiscountPercent,
		&e.DaysUsedForRefund,
		&e.RenewalFlag,
		&e.PayStatusSnapshot,
		&e.CancelReason,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *entity.Enrollment) error {
	query := `
		INSERT INTO enrollments (user_id, lesson_id, status, pay_status, cancel_status, expire_at,
			uses_locker, locker_allocated, locker_gender, membership_type, final_amount, discount_percent,
			days_used_for_refund, renewal_flag, pay_status_snapshot, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		enrollment.UserID,
		enrollment.LessonID,
		enrollment.Status,
		enrollment.PayStatus,
		enrollment.CancelStatus,
		enrollment.ExpireAt,
		enrollment.UsesLocker,
		enrollment.LockerAllocated,
		enrollment.LockerGender,
		enrollment.Membership,
		enrollment.FinalAmount,
		enrollment.DiscountPercent,
		enrollment.DaysUsedForRefund,
		enrollment.RenewalFlag,
		enrollment.PayStatusSnapshot,
		enrollment.CancelReason,
		enrollment.CreatedAt,
		enrollment.UpdatedAt,
	).Scan(&enrollment.ID)

	if err != nil {
		r.log.Error("Failed to create enrollment",
			zap.Error(err),
			zap.String("user_id", enrollment.UserID),
			zap.Int64("lesson_id", enrollment.LessonID),
		)
		return fmt.Errorf("create enrollment for lesson %d: %w", enrollment.LessonID, err)
	}

	return nil
}

func (r *enrollmentRepository) FindByID(ctx context.Context, id int64) (*entity.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`

	enrollment, err := scanEnrollment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find enrollment by ID",
			zap.Error(err),
			zap.Int64("enrollment_id", id),
		)
		return nil, fmt.Errorf("find enrollment by ID %d: %w", id, err)
	}

	return enrollment, nil
}

func (r *enrollmentRepository) FindByIDForUpdate(ctx context.Context, id int64) (*entity.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 FOR UPDATE`

	enrollment, err := scanEnrollment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock enrollment %d: %w", id, err)
	}

	return enrollment, nil
}

func (r *enrollmentRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find enrollments by user",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("find enrollments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var enrollments []*entity.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment row: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

func (r *enrollmentRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count enrollments for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *entity.Enrollment) error {
	query := `
		UPDATE enrollments
		SET status = $2, pay_status = $3, cancel_status = $4, expire_at = $5,
			uses_locker = $6, locker_allocated = $7, locker_gender = $8,
			final_amount = $9, discount_percent = $10, days_used_for_refund = $11,
			pay_status_snapshot = $12, cancel_reason = $13, updated_at = $14
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		enrollment.ID,
		enrollment.Status,
		enrollment.PayStatus,
		enrollment.CancelStatus,
		enrollment.ExpireAt,
		enrollment.UsesLocker,
		enrollment.LockerAllocated,
		enrollment.LockerGender,
		enrollment.FinalAmount,
		enrollment.DiscountPercent,
		enrollment.DaysUsedForRefund,
		enrollment.PayStatusSnapshot,
		enrollment.CancelReason,
		time.Now(),
	)

	if err != nil {
		r.log.Error("Failed to update enrollment",
			zap.Error(err),
			zap.Int64("enrollment_id", enrollment.ID),
		)
		return fmt.Errorf("update enrollment %d: %w", enrollment.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update enrollment %d: no rows affected", enrollment.ID)
	}

	return nil
}

func (r *enrollmentRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete enrollment",
			zap.Error(err),
			zap.Int64("enrollment_id", id),
		)
		return fmt.Errorf("delete enrollment %d: %w", id, err)
	}
	return nil
}

func (r *enrollmentRepository) CountPaidByLesson(ctx context.Context, lessonID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM enrollments
		WHERE lesson_id = $1
		  AND pay_status IN ('PAID', 'PARTIAL_REFUNDED', 'REFUND_REQUESTED', 'REFUND_PENDING_ADMIN_CANCEL')
	`

	var count int
	if err := r.db.QueryRow(ctx, query, lessonID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count paid enrollments for lesson %d: %w", lessonID, err)
	}
	return count, nil
}

func (r *enrollmentRepository) CountUnpaidActiveByLesson(ctx context.Context, lessonID int64, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM enrollments
		WHERE lesson_id = $1
		  AND pay_status = 'UNPAID'
		  AND status = 'APPLIED'
		  AND expire_at > $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, lessonID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unpaid active enrollments for lesson %d: %w", lessonID, err)
	}
	return count, nil
}

func (r *enrollmentRepository) FindActiveByUserAndLesson(ctx context.Context, userID string, lessonID int64, now time.Time) (*entity.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE user_id = $1
		  AND lesson_id = $2
		  AND (
			pay_status IN ('PAID', 'PARTIAL_REFUNDED', 'REFUND_REQUESTED', 'REFUND_PENDING_ADMIN_CANCEL')
			OR (pay_status = 'UNPAID' AND status = 'APPLIED' AND expire_at > $3)
		  )
		LIMIT 1
	`

	enrollment, err := scanEnrollment(r.db.QueryRow(ctx, query, userID, lessonID, now))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active enrollment for user %s lesson %d: %w", userID, lessonID, err)
	}

	return enrollment, nil
}

// ExistsActiveInMonth enforces the one-lesson-per-month rule. Only
// paid and live unpaid enrollments count; expired and canceled ones
// do not block a new application.
func (r *enrollmentRepository) ExistsActiveInMonth(ctx context.Context, userID string, monthStart, monthEnd time.Time, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM enrollments e
			JOIN lessons l ON l.id = e.lesson_id
			WHERE e.user_id = $1
			  AND l.start_date >= $2
			  AND l.start_date <= $3
			  AND (
				e.pay_status IN ('PAID', 'PARTIAL_REFUNDED', 'REFUND_REQUESTED', 'REFUND_PENDING_ADMIN_CANCEL')
				OR (e.pay_status = 'UNPAID' AND e.status = 'APPLIED' AND e.expire_at > $4)
			  )
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, monthStart, monthEnd, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("check monthly enrollment for user %s: %w", userID, err)
	}
	return exists, nil
}

func (r *enrollmentRepository) ExistsAdminCancelRefunded(ctx context.Context, userID string, lessonID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM enrollments
			WHERE user_id = $1
			  AND lesson_id = $2
			  AND cancel_status = 'ADMIN_CANCELED'
			  AND pay_status IN ('REFUNDED', 'PARTIAL_REFUNDED', 'REFUND_PENDING_ADMIN_CANCEL')
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, lessonID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check admin-canceled enrollment for user %s lesson %d: %w", userID, lessonID, err)
	}
	return exists, nil
}

func (r *enrollmentRepository) FindPaidByUserForPreviousMonth(ctx context.Context, userID string, monthStart, monthEnd time.Time) ([]*entity.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments e
		WHERE e.user_id = $1
		  AND e.pay_status IN ('PAID', 'PARTIAL_REFUNDED')
		  AND EXISTS (
			SELECT 1 FROM lessons l
			WHERE l.id = e.lesson_id
			  AND l.start_date >= $2
			  AND l.start_date <= $3
		  )
	`

	rows, err := r.db.Query(ctx, query, userID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("find paid enrollments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var enrollments []*entity.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment row: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

func (r *enrollmentRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE pay_status = 'UNPAID'
		  AND status = 'APPLIED'
		  AND expire_at < $1
		ORDER BY expire_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to find expired holds", zap.Error(err))
		return nil, fmt.Errorf("find expired holds: %w", err)
	}
	defer rows.Close()

	var enrollments []*entity.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment row: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

// CountAllocatedLockersByGender is the ground truth used to reconcile
// the Redis usage counters.
func (r *enrollmentRepository) CountAllocatedLockersByGender(ctx context.Context, gender string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM enrollments e
		JOIN lessons l ON l.id = e.lesson_id
		WHERE e.locker_allocated = TRUE
		  AND e.locker_gender = $1
		  AND e.pay_status IN ('PAID', 'PARTIAL_REFUNDED', 'REFUND_REQUESTED', 'REFUND_PENDING_ADMIN_CANCEL')
		  AND l.end_date >= date_trunc('month', now())
		  AND l.start_date < date_trunc('month', now()) + interval '1 month'
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, gender).Scan(&count); err != nil {
		return 0, fmt.Errorf("count allocated lockers for %s: %w", gender, err)
	}
	return count, nil
}

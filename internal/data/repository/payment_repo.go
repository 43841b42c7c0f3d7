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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByTid(ctx context.Context, tid string) (*entity.Payment, error)
	FindByEnrollmentID(ctx context.Context, enrollmentID int64) (*entity.Payment, error)
	Update(ctx context.Context, payment *entity.Payment) error
}

type paymentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPaymentRepository(db database.Querier, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, enrollment_id, status, moid, tid, paid_amt, refunded_amt,
	lesson_amount, locker_amount, pay_method, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID,
		&p.EnrollmentID,
		&p.Status,
		&p.Moid,
		&p.Tid,
		&p.PaidAmt,
		&p.RefundedAmt,
		&p.LessonAmount,
		&p.LockerAmount,
		&p.PayMethod,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (enrollment_id, status, moid, tid, paid_amt, refunded_amt,
			lesson_amount, locker_amount, pay_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		payment.EnrollmentID,
		payment.Status,
		payment.Moid,
		payment.Tid,
		payment.PaidAmt,
		payment.RefundedAmt,
		payment.LessonAmount,
		payment.LockerAmount,
		payment.PayMethod,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ID)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("tid", payment.Tid),
			zap.Int64("enrollment_id", payment.EnrollmentID),
		)
		return fmt.Errorf("create payment %s: %w", payment.Tid, err)
	}

	return nil
}

func (r *paymentRepository) FindByTid(ctx context.Context, tid string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tid = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, tid))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by tid",
			zap.Error(err),
			zap.String("tid", tid),
		)
		return nil, fmt.Errorf("find payment by tid %s: %w", tid, err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByEnrollmentID(ctx context.Context, enrollmentID int64) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE enrollment_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, enrollmentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find payment for enrollment %d: %w", enrollmentID, err)
	}

	return payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, refunded_amt = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.Status,
		payment.RefundedAmt,
		time.Now(),
	)

	if err != nil {
		r.log.Error("Failed to update payment",
			zap.Error(err),
			zap.Int64("payment_id", payment.ID),
		)
		return fmt.Errorf("update payment %d: %w", payment.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update payment %d: no rows affected", payment.ID)
	}

	return nil
}

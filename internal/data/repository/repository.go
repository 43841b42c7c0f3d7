package repository

import (
	"context"
	"fmt"
	"time"

	"lesson-enrollment/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Repository struct {
	User       UserRepository
	Lesson     LessonRepository
	Enrollment EnrollmentRepository
	Payment    PaymentRepository
	Locker     LockerRepository
}

// NewRepository builds the repository set over any Querier, so the
// same constructors serve both the pool and an open transaction.
func NewRepository(db database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:       NewUserRepository(db, log),
		Lesson:     NewLessonRepository(db, log),
		Enrollment: NewEnrollmentRepository(db, log),
		Payment:    NewPaymentRepository(db, log),
		Locker:     NewLockerRepository(db, log),
	}
}

// TxManager runs units of work transactionally. Callbacks receive a
// Repository bound to the open transaction.
type TxManager struct {
	db            database.PgxIface
	log           *zap.Logger
	retryAttempts int
	retryBase     time.Duration
}

func NewTxManager(db database.PgxIface, log *zap.Logger, retryAttempts int, retryBase time.Duration) *TxManager {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &TxManager{
		db:            db,
		log:           log.With(zap.String("component", "tx_manager")),
		retryAttempts: retryAttempts,
		retryBase:     retryBase,
	}
}

// RunInTx executes fn inside a read-committed transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(r *Repository) error) error {
	return m.runOnce(ctx, pgx.TxOptions{}, fn)
}

// RunSerializable executes fn inside a serializable transaction,
// retrying on serialization failures and deadlocks with backoff.
// Exhaustion is reported as an error, never swallowed.
func (m *TxManager) RunSerializable(ctx context.Context, fn func(r *Repository) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	delay := m.retryBase

	var err error
	for attempt := 1; attempt <= m.retryAttempts; attempt++ {
		err = m.runOnce(ctx, opts, fn)
		if err == nil || !database.IsRetryableTxError(err) {
			return err
		}

		m.log.Warn("retrying serializable transaction",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < m.retryAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = delay * 3 / 2
		}
	}

	return fmt.Errorf("transaction retries exhausted after %d attempts: %w", m.retryAttempts, err)
}

func (m *TxManager) runOnce(ctx context.Context, opts pgx.TxOptions, fn func(r *Repository) error) error {
	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	repo := NewRepository(tx, m.log)

	if err := fn(repo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			m.log.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

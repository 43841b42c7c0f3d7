package repository

import (
	"context"
	"fmt"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	// FindByIDPrefix resolves the truncated user id carried inside a
	// temp-scheme order id. Dashes are ignored in the comparison.
	FindByIDPrefix(ctx context.Context, prefix string) (*entity.User, error)
}

type userRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewUserRepository(db database.Querier, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `
		SELECT id, name, phone, gender, membership_type, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user entity.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.Gender,
		&user.Membership,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find user by ID",
			zap.Error(err),
			zap.String("user_id", id),
		)
		return nil, fmt.Errorf("find user by ID %s: %w", id, err)
	}

	return &user, nil
}

func (r *userRepository) FindByIDPrefix(ctx context.Context, prefix string) (*entity.User, error) {
	query := `
		SELECT id, name, phone, gender, membership_type, is_active, created_at, updated_at
		FROM users
		WHERE REPLACE(id, '-', '') LIKE $1 || '%'
		LIMIT 1
	`

	var user entity.User
	err := r.db.QueryRow(ctx, query, prefix).Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.Gender,
		&user.Membership,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find user by ID prefix",
			zap.Error(err),
			zap.String("prefix", prefix),
		)
		return nil, fmt.Errorf("find user by prefix %s: %w", prefix, err)
	}

	return &user, nil
}

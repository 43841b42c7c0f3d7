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

type LockerRepository interface {
	FindZone(ctx context.Context, gender string) (*entity.LockerZone, error)
	ListZones(ctx context.Context) ([]*entity.LockerZone, error)
	UpsertZone(ctx context.Context, gender string, capacity int64) error
}

type lockerRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewLockerRepository(db database.Querier, log *zap.Logger) LockerRepository {
	return &lockerRepository{
		db:  db,
		log: log.With(zap.String("repository", "locker")),
	}
}

func (r *lockerRepository) FindZone(ctx context.Context, gender string) (*entity.LockerZone, error) {
	query := `SELECT gender, capacity, updated_at FROM locker_zones WHERE gender = $1`

	var zone entity.LockerZone
	err := r.db.QueryRow(ctx, query, gender).Scan(&zone.Gender, &zone.Capacity, &zone.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find locker zone",
			zap.Error(err),
			zap.String("gender", gender),
		)
		return nil, fmt.Errorf("find locker zone %s: %w", gender, err)
	}

	return &zone, nil
}

func (r *lockerRepository) ListZones(ctx context.Context) ([]*entity.LockerZone, error) {
	rows, err := r.db.Query(ctx, `SELECT gender, capacity, updated_at FROM locker_zones ORDER BY gender`)
	if err != nil {
		return nil, fmt.Errorf("list locker zones: %w", err)
	}
	defer rows.Close()

	var zones []*entity.LockerZone
	for rows.Next() {
		var zone entity.LockerZone
		if err := rows.Scan(&zone.Gender, &zone.Capacity, &zone.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan locker zone row: %w", err)
		}
		zones = append(zones, &zone)
	}

	return zones, rows.Err()
}

func (r *lockerRepository) UpsertZone(ctx context.Context, gender string, capacity int64) error {
	query := `
		INSERT INTO locker_zones (gender, capacity, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (gender) DO UPDATE SET capacity = $2, updated_at = $3
	`

	if _, err := r.db.Exec(ctx, query, gender, capacity, time.Now()); err != nil {
		r.log.Error("Failed to upsert locker zone",
			zap.Error(err),
			zap.String("gender", gender),
		)
		return fmt.Errorf("upsert locker zone %s: %w", gender, err)
	}

	return nil
}

package entity

import "time"

type User struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Phone      *string        `db:"phone"`
	Gender     string         `db:"gender"`
	Membership MembershipType `db:"membership_type"`
	IsActive   bool           `db:"is_active"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

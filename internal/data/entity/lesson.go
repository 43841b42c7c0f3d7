package entity

import "time"

type LessonStatus string

const (
	LessonStatusOpen   LessonStatus = "OPEN"
	LessonStatusClosed LessonStatus = "CLOSED"
)

type Lesson struct {
	Base
	Title      string       `db:"title"`
	StartDate  time.Time    `db:"start_date"`
	EndDate    time.Time    `db:"end_date"`
	Capacity   int          `db:"capacity"`
	Price      int          `db:"price"`
	Status     LessonStatus `db:"status"`
	Instructor string       `db:"instructor"`
	TimeSlot   string       `db:"time_slot"`
}

// StartedBy reports whether the lesson has begun on or before the
// given date. Day-granular, times of day are ignored.
func (l *Lesson) StartedBy(asOf time.Time) bool {
	start := time.Date(l.StartDate.Year(), l.StartDate.Month(), l.StartDate.Day(), 0, 0, 0, 0, asOf.Location())
	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	return !day.Before(start)
}

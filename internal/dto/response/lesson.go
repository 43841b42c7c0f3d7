package response

import (
	"time"

	"lesson-enrollment/internal/data/entity"
)

type LessonResponse struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Capacity       int       `json:"capacity"`
	Price          int       `json:"price"`
	Instructor     string    `json:"instructor,omitempty"`
	TimeSlot       string    `json:"time_slot,omitempty"`
	PaidCount      int       `json:"paid_count"`
	UnpaidActive   int       `json:"unpaid_active"`
	RemainingSlots int       `json:"remaining_slots"`
}

func LessonToResponse(l *entity.Lesson, paidCount, unpaidActive int) LessonResponse {
	remaining := l.Capacity - paidCount - unpaidActive
	if remaining < 0 {
		remaining = 0
	}

	return LessonResponse{
		ID:             l.ID,
		Title:          l.Title,
		StartDate:      l.StartDate,
		EndDate:        l.EndDate,
		Capacity:       l.Capacity,
		Price:          l.Price,
		Instructor:     l.Instructor,
		TimeSlot:       l.TimeSlot,
		PaidCount:      paidCount,
		UnpaidActive:   unpaidActive,
		RemainingSlots: remaining,
	}
}

type LockerAvailabilityResponse struct {
	Gender    string `json:"gender"`
	Capacity  int64  `json:"capacity"`
	Used      int64  `json:"used"`
	Available int64  `json:"available"`
}

package response

import (
	"time"

	"lesson-enrollment/internal/data/entity"
)

type EnrollmentResponse struct {
	ID              int64               `json:"id"`
	UserID          string              `json:"user_id"`
	LessonID        int64               `json:"lesson_id"`
	LessonTitle     string              `json:"lesson_title,omitempty"`
	Status          entity.EnrollStatus `json:"status"`
	PayStatus       entity.PayStatus    `json:"pay_status"`
	CancelStatus    entity.CancelStatus `json:"cancel_status"`
	ExpireAt        *time.Time          `json:"expire_at,omitempty"`
	UsesLocker      bool                `json:"uses_locker"`
	LockerAllocated bool                `json:"locker_allocated"`
	FinalAmount     int                 `json:"final_amount"`
	DiscountPercent int                 `json:"discount_percent"`
	RenewalFlag     bool                `json:"renewal_flag"`
	Moid            string              `json:"moid,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func EnrollmentToResponse(e *entity.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:              e.ID,
		UserID:          e.UserID,
		LessonID:        e.LessonID,
		Status:          e.Status,
		PayStatus:       e.PayStatus,
		CancelStatus:    e.CancelStatus,
		ExpireAt:        e.ExpireAt,
		UsesLocker:      e.UsesLocker,
		LockerAllocated: e.LockerAllocated,
		FinalAmount:     e.FinalAmount,
		DiscountPercent: e.DiscountPercent,
		RenewalFlag:     e.RenewalFlag,
		CreatedAt:       e.CreatedAt,
	}
}

type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
	// TempMoid is handed out when eligible, for the late-bound
	// payment flow where no hold is created up front.
	TempMoid string `json:"temp_moid,omitempty"`
}

type RefundPreviewResponse struct {
	EnrollmentID    int64 `json:"enrollment_id"`
	SystemDays      int   `json:"system_days"`
	EffectiveDays   int   `json:"effective_days"`
	PaidAmt         int   `json:"paid_amt"`
	PaidLessonAmt   int   `json:"paid_lesson_amt"`
	PaidLockerAmt   int   `json:"paid_locker_amt"`
	LessonDeduction int   `json:"lesson_deduction"`
	LockerDeduction int   `json:"locker_deduction"`
	FinalRefund     int   `json:"final_refund"`
	IsFullRefund    bool  `json:"is_full_refund"`
}

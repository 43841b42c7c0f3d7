package entity

import "time"

type EnrollStatus string

const (
	EnrollStatusApplied     EnrollStatus = "APPLIED"
	EnrollStatusCanceled    EnrollStatus = "CANCELED"
	EnrollStatusCanceledReq EnrollStatus = "CANCELED_REQ"
	EnrollStatusExpired     EnrollStatus = "EXPIRED"
)

type PayStatus string

const (
	PayStatusUnpaid                   PayStatus = "UNPAID"
	PayStatusPaid                     PayStatus = "PAID"
	PayStatusFailed                   PayStatus = "FAILED"
	PayStatusRefunded                 PayStatus = "REFUNDED"
	PayStatusPartialRefunded          PayStatus = "PARTIAL_REFUNDED"
	PayStatusRefundRequested          PayStatus = "REFUND_REQUESTED"
	PayStatusRefundPendingAdminCancel PayStatus = "REFUND_PENDING_ADMIN_CANCEL"
	PayStatusCanceledUnpaid           PayStatus = "CANCELED_UNPAID"
	PayStatusExpired                  PayStatus = "EXPIRED"
)

type CancelStatus string

const (
	CancelStatusNone          CancelStatus = "NONE"
	CancelStatusReq           CancelStatus = "REQ"
	CancelStatusApproved      CancelStatus = "APPROVED"
	CancelStatusDenied        CancelStatus = "DENIED"
	CancelStatusAdminCanceled CancelStatus = "ADMIN_CANCELED"
)

type MembershipType string

const (
	MembershipGeneral       MembershipType = "GENERAL"
	MembershipMerit         MembershipType = "MERIT"
	MembershipMultiChild    MembershipType = "MULTI_CHILD"
	MembershipMulticultural MembershipType = "MULTICULTURAL"
)

// DiscountPercent returns the tariff reduction for a membership tier.
func (m MembershipType) DiscountPercent() int {
	switch m {
	case MembershipMerit, MembershipMultiChild, MembershipMulticultural:
		return 10
	default:
		return 0
	}
}

type Enrollment struct {
	Base
	UserID       string       `db:"user_id"`
	LessonID     int64        `db:"lesson_id"`
	Status       EnrollStatus `db:"status"`
	PayStatus    PayStatus    `db:"pay_status"`
	CancelStatus CancelStatus `db:"cancel_status"`
	// ExpireAt bounds the unpaid hold. Null once payment confirms.
	ExpireAt *time.Time `db:"expire_at"`
	// UsesLocker records intent; LockerAllocated records whether
	// inventory was actually taken. Allocated implies uses, never
	// the reverse.
	UsesLocker      bool           `db:"uses_locker"`
	LockerAllocated bool           `db:"locker_allocated"`
	LockerGender    string         `db:"locker_gender"`
	Membership      MembershipType `db:"membership_type"`
	FinalAmount     int            `db:"final_amount"`
	DiscountPercent int            `db:"discount_percent"`
	// DaysUsedForRefund is the admin override applied at approval
	// time. Null means use the system-computed day count.
	DaysUsedForRefund *int `db:"days_used_for_refund"`
	RenewalFlag       bool `db:"renewal_flag"`
	// PayStatusSnapshot keeps the pre-cancellation pay status so a
	// denied request can restore it exactly.
	PayStatusSnapshot *PayStatus `db:"pay_status_snapshot"`
	CancelReason      string     `db:"cancel_reason"`
}

// IsActive reports whether the enrollment still occupies a capacity
// slot, either paid or inside a live unpaid hold.
func (e *Enrollment) IsActive(now time.Time) bool {
	switch e.PayStatus {
	case PayStatusPaid, PayStatusPartialRefunded, PayStatusRefundRequested, PayStatusRefundPendingAdminCancel:
		return true
	case PayStatusUnpaid:
		return e.Status == EnrollStatusApplied && e.ExpireAt != nil && e.ExpireAt.After(now)
	default:
		return false
	}
}

var payStatusTransitions = map[PayStatus][]PayStatus{
	PayStatusUnpaid: {
		PayStatusPaid,
		PayStatusFailed,
		PayStatusExpired,
		PayStatusCanceledUnpaid,
	},
	PayStatusPaid: {
		PayStatusRefundRequested,
		PayStatusRefundPendingAdminCancel,
	},
	PayStatusPartialRefunded: {
		PayStatusRefundRequested,
		PayStatusRefundPendingAdminCancel,
	},
	// A failed attempt is not final. The user retries with a fresh
	// gateway tid against the same order id, so success confirms the
	// hold and another failure just records one more failed payment.
	PayStatusFailed: {
		PayStatusPaid,
		PayStatusFailed,
	},
	PayStatusRefundRequested: {
		PayStatusRefunded,
		PayStatusPartialRefunded,
		PayStatusPaid, // deny restores the snapshot
	},
	PayStatusRefundPendingAdminCancel: {
		PayStatusRefunded,
		PayStatusPartialRefunded,
		PayStatusPaid,
	},
}

// CanTransitionPayStatus reports whether moving from one pay status to
// another is allowed by the state machine.
func CanTransitionPayStatus(from, to PayStatus) bool {
	for _, allowed := range payStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

var enrollStatusTransitions = map[EnrollStatus][]EnrollStatus{
	EnrollStatusApplied: {
		EnrollStatusCanceled,
		EnrollStatusCanceledReq,
		EnrollStatusExpired,
	},
	EnrollStatusCanceledReq: {
		EnrollStatusCanceled,
		EnrollStatusApplied, // deny restores the snapshot
	},
	EnrollStatusCanceled: {
		EnrollStatusApplied,
	},
}

func CanTransitionEnrollStatus(from, to EnrollStatus) bool {
	for _, allowed := range enrollStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

package entity

type PaymentStatus string

const (
	PaymentStatusPaid            PaymentStatus = "PAID"
	PaymentStatusFailed          PaymentStatus = "FAILED"
	PaymentStatusCanceled        PaymentStatus = "CANCELED"
	PaymentStatusPartialRefunded PaymentStatus = "PARTIAL_REFUNDED"
)

type Payment struct {
	Base
	EnrollmentID int64         `db:"enrollment_id"`
	Status       PaymentStatus `db:"status"`
	Moid         string        `db:"moid"`
	// Tid is the gateway transaction id, globally unique, and the
	// idempotency key for webhook deliveries.
	Tid          string `db:"tid"`
	PaidAmt      int    `db:"paid_amt"`
	RefundedAmt  int    `db:"refunded_amt"`
	LessonAmount int    `db:"lesson_amount"`
	LockerAmount int    `db:"locker_amount"`
	PayMethod    string `db:"pay_method"`
}

// IsTerminal reports whether the payment already reached a state a
// duplicate webhook delivery must not change.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCanceled, PaymentStatusPartialRefunded:
		return true
	}
	return false
}

var paymentStatusTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPaid: {
		PaymentStatusCanceled,
		PaymentStatusPartialRefunded,
	},
	PaymentStatusPartialRefunded: {
		PaymentStatusCanceled,
		PaymentStatusPartialRefunded,
	},
}

func CanTransitionPaymentStatus(from, to PaymentStatus) bool {
	for _, allowed := range paymentStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

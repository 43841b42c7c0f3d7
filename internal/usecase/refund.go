package usecase

import (
	"time"

	"lesson-enrollment/internal/data/entity"

	"github.com/shopspring/decimal"
)

// RefundBreakdown is the full output of the refund computation. The
// same function backs both the read-only preview and the authoritative
// amount applied at approval time.
type RefundBreakdown struct {
	SystemDays      int
	EffectiveDays   int
	PaidAmt         int
	PaidLessonAmt   int
	PaidLockerAmt   int
	LessonDeduction int
	LockerDeduction int
	FinalRefund     int
	IsFullRefund    bool
}

// RefundPolicy carries the tariff constants the calculation needs.
type RefundPolicy struct {
	LockerFee int
	DailyRate int
}

// CalculateRefund prorates the refund by elapsed lesson days. The
// locker portion is all-or-nothing, never prorated. usedDaysOverride
// replaces the computed day count when the admin supplies one. The
// result never pushes the payment's cumulative refunded total past
// its paid amount.
func CalculateRefund(policy RefundPolicy, enrollment *entity.Enrollment, payment *entity.Payment, lesson *entity.Lesson, usedDaysOverride *int, asOf time.Time) RefundBreakdown {
	if payment == nil || payment.PaidAmt <= 0 {
		return RefundBreakdown{}
	}

	paidAmt := payment.PaidAmt

	// Earlier partial refunds shrink what is left to give back.
	remaining := paidAmt - payment.RefundedAmt
	if remaining < 0 {
		remaining = 0
	}

	paidLockerAmt := 0
	if enrollment.UsesLocker {
		paidLockerAmt = policy.LockerFee
		if paidLockerAmt > paidAmt {
			paidLockerAmt = paidAmt
		}
	}
	paidLessonAmt := paidAmt - paidLockerAmt

	systemDays := 0
	if lesson != nil && lesson.StartedBy(asOf) {
		start := time.Date(lesson.StartDate.Year(), lesson.StartDate.Month(), lesson.StartDate.Day(), 0, 0, 0, 0, asOf.Location())
		day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
		systemDays = int(day.Sub(start).Hours()/24) + 1
		if systemDays < 0 {
			systemDays = 0
		}
	}

	effectiveDays := systemDays
	if usedDaysOverride != nil {
		effectiveDays = *usedDaysOverride
		if effectiveDays < 0 {
			effectiveDays = 0
		}
	}

	lessonDeduction := int(decimal.NewFromInt(int64(policy.DailyRate)).
		Mul(decimal.NewFromInt(int64(effectiveDays))).
		IntPart())
	if lessonDeduction > paidLessonAmt {
		lessonDeduction = paidLessonAmt
	}

	lockerDeduction := 0
	if enrollment.UsesLocker {
		lockerDeduction = paidLockerAmt
	}

	finalRefund := paidAmt - lessonDeduction - lockerDeduction
	if finalRefund < 0 {
		finalRefund = 0
	}
	if finalRefund > remaining {
		finalRefund = remaining
	}

	return RefundBreakdown{
		SystemDays:      systemDays,
		EffectiveDays:   effectiveDays,
		PaidAmt:         paidAmt,
		PaidLessonAmt:   paidLessonAmt,
		PaidLockerAmt:   paidLockerAmt,
		LessonDeduction: lessonDeduction,
		LockerDeduction: lockerDeduction,
		FinalRefund:     finalRefund,
		// Full means the cumulative refunded total reaches what was
		// paid, counting earlier partial refunds.
		IsFullRefund: payment.RefundedAmt+finalRefund == paidAmt,
	}
}

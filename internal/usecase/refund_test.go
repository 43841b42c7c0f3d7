package usecase_test

import (
	"testing"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func testPolicy() usecase.RefundPolicy {
	return usecase.RefundPolicy{LockerFee: 5000, DailyRate: 3500}
}

func TestCalculateRefund(t *testing.T) {
	policy := testPolicy()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	lesson := &entity.Lesson{
		StartDate: start,
		EndDate:   start.AddDate(0, 1, -1),
		Price:     35000,
	}

	t.Run("prorates lesson and drops locker after three days", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: true}
		payment := &entity.Payment{PaidAmt: 40000}
		asOf := time.Date(2026, 7, 3, 15, 0, 0, 0, time.UTC)

		b := usecase.CalculateRefund(policy, enrollment, payment, lesson, nil, asOf)

		assert.Equal(t, 3, b.SystemDays)
		assert.Equal(t, 3, b.EffectiveDays)
		assert.Equal(t, 35000, b.PaidLessonAmt)
		assert.Equal(t, 5000, b.PaidLockerAmt)
		assert.Equal(t, 10500, b.LessonDeduction)
		assert.Equal(t, 5000, b.LockerDeduction)
		assert.Equal(t, 24500, b.FinalRefund)
		assert.False(t, b.IsFullRefund)
	})

	t.Run("full refund before the lesson starts", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: false}
		payment := &entity.Payment{PaidAmt: 35000}
		asOf := time.Date(2026, 6, 28, 9, 0, 0, 0, time.UTC)

		b := usecase.CalculateRefund(policy, enrollment, payment, lesson, nil, asOf)

		assert.Equal(t, 0, b.SystemDays)
		assert.Equal(t, 0, b.LessonDeduction)
		assert.Equal(t, 0, b.LockerDeduction)
		assert.Equal(t, 35000, b.FinalRefund)
		assert.True(t, b.IsFullRefund)
	})

	t.Run("admin override replaces system day count", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: false}
		payment := &entity.Payment{PaidAmt: 35000}
		asOf := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
		override := 2

		b := usecase.CalculateRefund(policy, enrollment, payment, lesson, &override, asOf)

		assert.Equal(t, 10, b.SystemDays)
		assert.Equal(t, 2, b.EffectiveDays)
		assert.Equal(t, 7000, b.LessonDeduction)
		assert.Equal(t, 28000, b.FinalRefund)
	})

	t.Run("negative override is clamped to zero", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: false}
		payment := &entity.Payment{PaidAmt: 35000}
		asOf := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
		override := -5

		b := usecase.CalculateRefund(policy, enrollment, payment, lesson, &override, asOf)

		assert.Equal(t, 0, b.EffectiveDays)
		assert.Equal(t, 35000, b.FinalRefund)
	})

	t.Run("lesson deduction is capped at the lesson portion", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: true}
		payment := &entity.Payment{PaidAmt: 40000}
		asOf := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

		b := usecase.CalculateRefund(policy, enrollment, payment, lesson, nil, asOf)

		assert.Equal(t, 31, b.SystemDays)
		assert.Equal(t, 35000, b.LessonDeduction)
		assert.Equal(t, 5000, b.LockerDeduction)
		assert.Equal(t, 0, b.FinalRefund)
	})

	t.Run("nil payment yields a zero breakdown", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: true}

		b := usecase.CalculateRefund(policy, enrollment, nil, lesson, nil, time.Now())

		assert.Equal(t, usecase.RefundBreakdown{}, b)
	})

	t.Run("locker fee is capped at the paid amount", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: true}
		payment := &entity.Payment{PaidAmt: 3000}
		asOf := time.Date(2026, 6, 28, 9, 0, 0, 0, time.UTC)

		b := usecase.CalculateRefund(policy, enrollment, payment, lesson, nil, asOf)

		assert.Equal(t, 3000, b.PaidLockerAmt)
		assert.Equal(t, 0, b.PaidLessonAmt)
		assert.Equal(t, 0, b.FinalRefund)
	})

	t.Run("earlier partial refund caps what remains", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: false}
		payment := &entity.Payment{PaidAmt: 40000, RefundedAmt: 30000}
		asOf := time.Date(2026, 6, 28, 9, 0, 0, 0, time.UTC)

		b := usecase.CalculateRefund(policy, enrollment, payment, lesson, nil, asOf)

		assert.Equal(t, 10000, b.FinalRefund)
		assert.True(t, b.IsFullRefund)
		assert.LessOrEqual(t, payment.RefundedAmt+b.FinalRefund, payment.PaidAmt)
	})

	t.Run("fully refunded payment yields nothing more", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: false}
		payment := &entity.Payment{PaidAmt: 40000, RefundedAmt: 40000}
		asOf := time.Date(2026, 6, 28, 9, 0, 0, 0, time.UTC)

		b := usecase.CalculateRefund(policy, enrollment, payment, lesson, nil, asOf)

		assert.Equal(t, 0, b.FinalRefund)
	})

	t.Run("refund never increases with more used days", func(t *testing.T) {
		enrollment := &entity.Enrollment{UsesLocker: true}
		payment := &entity.Payment{PaidAmt: 40000}
		asOf := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

		prev := payment.PaidAmt + 1
		for days := 0; days <= 31; days++ {
			d := days
			b := usecase.CalculateRefund(policy, enrollment, payment, lesson, &d, asOf)
			assert.LessOrEqual(t, b.FinalRefund, prev)
			assert.GreaterOrEqual(t, b.FinalRefund, 0)
			assert.LessOrEqual(t, b.FinalRefund, payment.PaidAmt)
			prev = b.FinalRefund
		}
	})
}

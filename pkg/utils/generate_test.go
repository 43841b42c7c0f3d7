package utils_test

import (
	"testing"
	"time"

	"lesson-enrollment/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func TestGenerateMoid(t *testing.T) {
	now := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

	moid := utils.GenerateMoid(42, now)

	assert.Equal(t, "enroll_42_1784116800000", moid)

	id, ok := utils.ParseMoidEnrollmentID(moid)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestGenerateTempMoid(t *testing.T) {
	now := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

	moid := utils.GenerateTempMoid(10, "a1b2c3d4-e5f6-0000-0000-000000000000", now)

	assert.Equal(t, "temp_10_a1b2c3d4_1784116800000", moid)

	_, ok := utils.ParseMoidEnrollmentID(moid)
	assert.False(t, ok)
}

func TestParseMoidEnrollmentID(t *testing.T) {
	tests := []struct {
		name string
		moid string
		want int64
		ok   bool
	}{
		{"valid", "enroll_7_1726000000000", 7, true},
		{"temp scheme", "temp_10_a1b2c3d4_1726000000000", 0, false},
		{"wrong prefix", "order_7_1726000000000", 0, false},
		{"missing timestamp", "enroll_7", 0, false},
		{"non-numeric id", "enroll_abc_1726000000000", 0, false},
		{"zero id", "enroll_0_1726000000000", 0, false},
		{"empty", "", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := utils.ParseMoidEnrollmentID(tc.moid)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestEdiDate(t *testing.T) {
	now := time.Date(2026, 7, 15, 9, 5, 3, 0, time.UTC)
	assert.Equal(t, "20260715090503", utils.EdiDate(now))
}

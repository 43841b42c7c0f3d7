package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateMoid builds the gateway order id for a persisted enrollment.
// Format: enroll_{enrollmentID}_{unixMillis}.
func GenerateMoid(enrollmentID int64, now time.Time) string {
	return fmt.Sprintf("enroll_%d_%d", enrollmentID, now.UnixMilli())
}

// GenerateTempMoid builds an order id used before the enrollment row
// exists, during the eligibility pre-check flow.
// Format: temp_{lessonID}_{userPrefix}_{unixMillis}.
func GenerateTempMoid(lessonID int64, userID string, now time.Time) string {
	prefix := strings.ReplaceAll(userID, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("temp_%d_%s_%d", lessonID, prefix, now.UnixMilli())
}

// ParseMoidEnrollmentID extracts the enrollment id out of an
// enroll-form moid. Returns false for temp moids or malformed input.
func ParseMoidEnrollmentID(moid string) (int64, bool) {
	parts := strings.Split(moid, "_")
	if len(parts) != 3 || parts[0] != "enroll" {
		return 0, false
	}
	id, err := ParseInt64(parts[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// EdiDate formats a timestamp the way the payment gateway expects,
// yyyyMMddHHmmss in local time.
func EdiDate(now time.Time) string {
	return now.Format("20060102150405")
}

func GenerateRequestID() string {
	return uuid.New().String()
}

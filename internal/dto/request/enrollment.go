package request

type CreateEnrollmentRequest struct {
	LessonID     int64  `json:"lesson_id" validate:"required,gt=0"`
	WantsLocker  bool   `json:"wants_locker"`
	LockerGender string `json:"locker_gender" validate:"omitempty,oneof=MALE FEMALE"`
	PayMethod    string `json:"pay_method" validate:"required"`
}

type RenewalEnrollmentRequest struct {
	LessonID    int64 `json:"lesson_id" validate:"required,gt=0"`
	WantsLocker bool  `json:"wants_locker"`
	// CarryLocker keeps the previous month's locker choice regardless
	// of WantsLocker.
	CarryLocker bool   `json:"carry_locker"`
	PayMethod   string `json:"pay_method" validate:"required"`
}

type CancelEnrollmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type AdminCancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type ApproveCancelRequest struct {
	// UsedDays overrides the system-computed day count. Null means
	// use the computed value.
	UsedDays *int `json:"used_days" validate:"omitempty,min=0"`
}

type UpdateLockerCapacityRequest struct {
	Capacity int64 `json:"capacity" validate:"min=0"`
}

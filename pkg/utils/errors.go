package utils

import "errors"

// Business error codes returned by the usecase layer. Handlers map
// these onto HTTP status codes without string matching.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeCapacityExceeded    = "CAPACITY_EXCEEDED"
	CodeDuplicateEnrollment = "DUPLICATE_ENROLLMENT"
	CodeMonthlyLimit        = "MONTHLY_LIMIT"
	CodeRegistrationClosed  = "REGISTRATION_CLOSED"
	CodeInvalidState        = "INVALID_STATE"
	CodeAlreadyRefunded     = "ALREADY_REFUNDED"
	CodeRetryExhausted      = "RETRY_EXHAUSTED"
	CodeGatewayError        = "GATEWAY_ERROR"
	CodeGatewayRejected     = "GATEWAY_REJECTED"
	CodeLockerUnavailable   = "LOCKER_UNAVAILABLE"
	CodeForbidden           = "FORBIDDEN"
)

type BusinessError struct {
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

func NewBusinessError(code, message string) *BusinessError {
	return &BusinessError{Code: code, Message: message}
}

// AsBusinessError unwraps err into a BusinessError if there is one in
// the chain, so handlers can branch on the code.
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

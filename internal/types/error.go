package types

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	BadRequest           ErrorCode = "BAD_REQUEST"
	NotFound             ErrorCode = "NOT_FOUND"
	AlreadyPending       ErrorCode = "ALREADY_PENDING"
	OnCooldown           ErrorCode = "ON_COOLDOWN"
	InsufficientFunds    ErrorCode = "INSUFFICIENT_FUNDS"
	TransactionFailed    ErrorCode = "TRANSACTION_FAILED"
	NoSafeLocation       ErrorCode = "NO_SAFE_LOCATION"
	RelocationFailed     ErrorCode = "RELOCATION_FAILED"
	Cancelled            ErrorCode = "CANCELLED"
)

// Error carries the http status and code a failure maps to on the api surface.
type Error struct {
	Err       error
	Status    int
	ErrorCode ErrorCode
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(status int, errorCode ErrorCode, err error) *Error {
	return &Error{
		Err:       err,
		Status:    status,
		ErrorCode: errorCode,
	}
}

func NewErrorWithMsg(status int, errorCode ErrorCode, format string, args ...any) *Error {
	return NewError(status, errorCode, fmt.Errorf(format, args...))
}

func NewInternalServiceError(err error) *Error {
	return NewError(http.StatusInternalServerError, InternalServiceError, err)
}

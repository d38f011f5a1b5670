package domain

import (
	"errors"
	"fmt"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Error codes used by the settlement pipeline.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeKickoffPassed      = "KICKOFF_PASSED"
	CodeExternalFetch      = "EXTERNAL_FETCH_ERROR"
	CodeMalformedItem      = "MALFORMED_ITEM"
	CodeAggregationFailure = "AGGREGATION_FAILURE"
	CodeDispatch           = "DISPATCH_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Status: 403}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}

// ErrKickoffPassed rejects a bet or token redemption on a match that has started.
// It is a user-facing rejection, never a system fault.
func ErrKickoffPassed(fixtureID int64) *AppError {
	return &AppError{Code: CodeKickoffPassed, Message: fmt.Sprintf("match %d already started", fixtureID), Status: 403}
}

// ErrTokenNotFound rejects an unknown or malformed notification token without echoing it.
func ErrTokenNotFound() *AppError {
	return &AppError{Code: CodeNotFound, Message: "token not found", Status: 404}
}

// ErrExternalFetch wraps a non-success response from the fixtures/odds provider.
func ErrExternalFetch(resource string, cause error) *AppError {
	return &AppError{Code: CodeExternalFetch, Message: fmt.Sprintf("fetch %s", resource), Status: 502, Cause: cause}
}

// ErrMalformedItem marks a provider item that is skipped and counted.
func ErrMalformedItem(id int64, reason string) *AppError {
	return &AppError{Code: CodeMalformedItem, Message: fmt.Sprintf("item %d: %s", id, reason), Status: 422}
}

// ErrAggregationFailure reports a rebuild that was rolled back.
func ErrAggregationFailure(table string, cause error) *AppError {
	return &AppError{Code: CodeAggregationFailure, Message: fmt.Sprintf("rebuild %s", table), Status: 500, Cause: cause}
}

// ErrDispatch reports one failed send for one user on one channel.
func ErrDispatch(channel Channel, username string, cause error) *AppError {
	return &AppError{Code: CodeDispatch, Message: fmt.Sprintf("send %s to %s", channel, username), Status: 502, Cause: cause}
}

func ErrRateLimited(reason string) *AppError {
	return &AppError{Code: CodeRateLimited, Message: reason, Status: 429}
}

// HasCode reports whether err (or anything it wraps) is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeTenantMismatch = "TENANT_MISMATCH"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInactive       = "INACTIVE"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeCooldownActive = "COOLDOWN_ACTIVE"
	ErrCodeRateLimited    = "RATE_LIMIT_EXCEEDED"
	ErrCodeTaskDisabled   = "TASK_DISABLED"
	ErrCodeEmptySelection = "EMPTY_SELECTION"
	ErrCodeInvalidClaim   = "INVALID_CLAIM"
	ErrCodeInvalidDevice  = "INVALID_DEVICE"
	ErrCodeInvalidSecret  = "INVALID_SECRET"
	ErrCodeInvalidChildQR = "INVALID_CHILD_QR"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// Error is a failure that knows how it should be presented to a client.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by code so callers can compare against the
// sentinel values declared by the engines.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Status == t.Status
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, ErrCodeForbidden, message)
}

func TenantMismatch(message string) *Error {
	return New(http.StatusForbidden, ErrCodeTenantMismatch, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, ErrCodeNotFound, message)
}

func Inactive(message string) *Error {
	return New(http.StatusBadRequest, ErrCodeInactive, message)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, ErrCodeConflict, message)
}

func Invalid(message string) *Error {
	return New(http.StatusBadRequest, ErrCodeInvalidInput, message)
}

// RateLimited reports an active submission cooldown. Clients can retry
// once retryAfter has elapsed.
func RateLimited(message string, retryAfter time.Duration) *Error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Error{
		Status:  http.StatusTooManyRequests,
		Code:    ErrCodeCooldownActive,
		Message: message,
		Details: map[string]interface{}{"retry_after_ms": retryAfter.Milliseconds()},
	}
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: ErrCodeInternal, Message: "Internal server error", Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// Respond writes err as the JSON error envelope. Errors that are not *Error
// become a 500 and are logged.
func Respond(w http.ResponseWriter, err error) {
	e, ok := As(err)
	if !ok {
		e = Internal(err)
	}

	if e.Status >= http.StatusInternalServerError {
		log.Error().Err(e.Err).Str("code", e.Code).Msg(e.Message)
	}

	if e.Status == http.StatusTooManyRequests {
		if ms, ok := e.Details["retry_after_ms"].(int64); ok {
			secs := int(math.Ceil(float64(ms) / 1000))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}

	var details interface{}
	if len(e.Details) > 0 {
		details = e.Details
	}
	WriteError(w, e.Status, e.Code, e.Message, details)
}

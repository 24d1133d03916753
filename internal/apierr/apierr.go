// Package apierr is the centralized API error catalog. Each code maps
// to a default HTTP status and a concise detail string; the frontend
// may override details with localized text, but the code itself is the
// stable contract.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation            = "validation"
	CodeAuthRequired          = "auth_required"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeForbidden             = "forbidden"
	CodeNotFound              = "not_found"
	CodeConflict              = "conflict"
	CodeInvalidStatus         = "invalid_status"
	CodeImmutable             = "immutable"
	CodeTooLateToCancel       = "too_late_to_cancel"
	CodeInsufficientInventory = "insufficient_inventory"
	CodeCooldownActive        = "cooldown_active"
	CodeDuplicate             = "duplicate"
	CodeRateLimited           = "rate_limited"
	CodeMethodNotAllowed      = "method_not_allowed"
)

type entry struct {
	status int
	detail string
}

var catalog = map[string]entry{
	CodeValidation:            {http.StatusBadRequest, "Required field(s) missing or malformed."},
	CodeAuthRequired:          {http.StatusUnauthorized, "Authentication required."},
	CodeInvalidCredentials:    {http.StatusUnauthorized, "Email or password is incorrect."},
	CodeForbidden:             {http.StatusForbidden, "Action not permitted."},
	CodeNotFound:              {http.StatusNotFound, "Resource not found."},
	CodeConflict:              {http.StatusConflict, "Resource state conflict."},
	CodeInvalidStatus:         {http.StatusBadRequest, "Status transition not allowed."},
	CodeImmutable:             {http.StatusBadRequest, "Record is terminal and cannot change."},
	CodeTooLateToCancel:       {http.StatusBadRequest, "Cancellation window has passed."},
	CodeInsufficientInventory: {http.StatusBadRequest, "Not enough stock to allocate."},
	CodeCooldownActive:        {http.StatusBadRequest, "Provider is in a cooldown period."},
	CodeDuplicate:             {http.StatusOK, "An equivalent pending record already exists."},
	CodeRateLimited:           {http.StatusTooManyRequests, "Too many attempts, retry later."},
	CodeMethodNotAllowed:      {http.StatusMethodNotAllowed, "HTTP method not allowed."},
}

// Error is a typed core error carrying a catalog code. Services return
// it verbatim; handlers map it onto HTTP.
type Error struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return e.Code
}

// New returns an Error for code with the catalog's default detail.
func New(code string) *Error {
	return &Error{Code: code, Detail: catalog[code].detail}
}

// Newf returns an Error for code with a formatted detail override.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Status returns the HTTP status for err. Unknown or non-API errors map
// to 500.
func Status(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if s, ok := catalog[apiErr.Code]; ok {
			return s.status
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// As unwraps err into an *Error when possible.
func As(err error) (*Error, bool) {
	var apiErr *Error
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// Is reports whether err is an API error with the given code.
func Is(err error, code string) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Code == code
}

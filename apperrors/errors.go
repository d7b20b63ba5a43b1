package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies a failure for callers that branch on it.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindEmptyCart       Kind = "empty_cart"
	KindPersistence     Kind = "persistence"
	KindPartialFailure  Kind = "partial_failure"
	KindInternal        Kind = "internal"
)

// Error represents an application error
type Error struct {
	Kind    Kind     `json:"kind"`
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Err     error    `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind, so errors.Is(err, ErrEmptyCart) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(kind Kind, code int, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func Validation(message string, details ...string) *Error {
	e := New(KindValidation, http.StatusBadRequest, message, nil)
	e.Details = details
	return e
}

func Unauthenticated() *Error {
	return New(KindUnauthenticated, http.StatusUnauthorized, "unauthenticated", nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(KindConflict, http.StatusConflict, message, nil)
}

func Persistence(message string, err error) *Error {
	return New(KindPersistence, http.StatusInternalServerError, message, err)
}

func PartialFailure(message string, err error) *Error {
	return New(KindPartialFailure, http.StatusInternalServerError, message, err)
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrEmptyCart       = New(KindEmptyCart, http.StatusUnprocessableEntity, "empty cart", nil)
	ErrPersistence     = &Error{Kind: KindPersistence}
	ErrPartialFailure  = &Error{Kind: KindPartialFailure}
)

// From returns err as an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(KindInternal, http.StatusInternalServerError, "internal server error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Respond writes err as a JSON failure body.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	body := gin.H{"success": false, "error": appErr.Message}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.Code, body)
}

// ErrorMiddleware renders the last error attached with c.Error.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
			c.Abort()
		}
	}
}

// Package errors is the storefront's error taxonomy. Every error that reaches
// the HTTP layer is classified by its Code; anything untyped is internal.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Class describes how a code is presented to clients.
type Class struct {
	Status    int
	Retryable bool
	// Fallback is shown when the error's own message must stay private.
	Fallback string
	// Expose lets the error's message through to clients.
	Expose bool
	// ShowDetails lets structured details through to clients.
	ShowDetails bool
}

var classes = map[Code]Class{
	CodeValidation:    {Status: http.StatusBadRequest, Fallback: "validation failed", Expose: true, ShowDetails: true},
	CodeUnauthorized:  {Status: http.StatusUnauthorized, Fallback: "authentication required", Expose: true},
	CodeForbidden:     {Status: http.StatusForbidden, Fallback: "access denied", Expose: true},
	CodeNotFound:      {Status: http.StatusNotFound, Fallback: "resource not found", Expose: true},
	CodeConflict:      {Status: http.StatusConflict, Fallback: "conflict detected", Expose: true},
	CodeStateConflict: {Status: http.StatusUnprocessableEntity, Fallback: "state transition disallowed", Expose: true, ShowDetails: true},
	CodeRateLimit:     {Status: http.StatusTooManyRequests, Fallback: "rate limit exceeded", Expose: true},
	CodeInternal:      {Status: http.StatusInternalServerError, Retryable: true, Fallback: "internal server error"},
	CodeDependency:    {Status: http.StatusServiceUnavailable, Retryable: true, Fallback: "dependency unavailable", ShowDetails: true},
}

// ClassOf returns the class for code; unknown codes are treated as internal.
func ClassOf(code Code) Class {
	if c, ok := classes[code]; ok {
		return c
	}
	return classes[CodeInternal]
}

// PublicMessage is what a client may read for e.
func (c Class) PublicMessage(e *Error) string {
	if c.Expose && e.Message() != "" {
		return e.Message()
	}
	return c.Fallback
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap classifies err under code, keeping it reachable through errors.Is.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As finds the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// FieldDetail names the input that failed validation.
type FieldDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason,omitempty"`
}

func Validation(field, message string) *Error {
	return New(CodeValidation, message).WithDetails(FieldDetail{Field: field, Reason: message})
}

func NotFound(entity string) *Error {
	return New(CodeNotFound, entity+" not found")
}

// Forbidden is for an authenticated caller touching someone else's resource.
func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

// Upstream marks a failure of a remote dependency (Stripe, SendGrid, GCS, Redis).
func Upstream(err error, message string) *Error {
	return Wrap(CodeDependency, err, message)
}

// Persistence marks a database failure.
func Persistence(err error, message string) *Error {
	return Wrap(CodeInternal, err, message)
}

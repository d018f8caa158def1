package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by how callers are expected to react to them.
type Kind int

const (
	KindInput Kind = iota + 1
	KindConstraint
	KindAuthorization
	KindTransient
	KindFailed
	KindGeneration
	KindNotFound
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConstraint:
		return "constraint"
	case KindAuthorization:
		return "authorization"
	case KindTransient:
		return "transient"
	case KindFailed:
		return "failed"
	case KindGeneration:
		return "generation"
	case KindNotFound:
		return "not_found"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// HTTPCode returns the status the API layer answers with for this kind.
func (k Kind) HTTPCode() int {
	switch k {
	case KindInput:
		return http.StatusBadRequest
	case KindConstraint:
		return http.StatusUnprocessableEntity
	case KindAuthorization:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the application error type. Two errors are considered equal by
// errors.Is when their codes match, so copies carrying details or a cause
// still match the sentinel they were derived from.
type Error struct {
	kind    Kind
	code    string
	message string
	details string
	cause   error
}

func New(kind Kind, code, message string) *Error {
	return &Error{kind: kind, code: code, message: message}
}

func (e *Error) Error() string {
	msg := e.message
	if e.details != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.details)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Code() string { return e.code }

func (e *Error) Message() string { return e.message }

func (e *Error) Details() string { return e.details }

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) HTTPCode() int { return e.kind.HTTPCode() }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// WithDetails returns a copy of e carrying extra detail text.
func (e *Error) WithDetails(format string, args ...any) *Error {
	cp := *e
	cp.details = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e that wraps cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

type kinded interface {
	error
	Kind() Kind
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e kinded
	if errors.As(err, &e) {
		return e.Kind(), true
	}
	return 0, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsTransient reports whether err may succeed if retried.
func IsTransient(err error) bool {
	return IsKind(err, KindTransient)
}

// LengthError reports content that exceeds a platform limit.
type LengthError struct {
	PlatformID string
	Max        int
	Actual     int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("content for %s is %d characters, limit is %d", e.PlatformID, e.Actual, e.Max)
}

func (e *LengthError) Is(target error) bool {
	return target == ErrViolatesLength || ErrViolatesLength.Is(target)
}

func (e *LengthError) Kind() Kind { return KindConstraint }

// Input errors
var (
	ErrEmptyInput           = New(KindInput, "empty_input", "content is empty")
	ErrUnsupportedMediaType = New(KindInput, "unsupported_media_type", "unsupported media type")
	ErrTimeInPast           = New(KindInput, "time_in_past", "scheduled time must be in the future")
	ErrMediaNotSupported    = New(KindInput, "media_not_supported", "platform does not accept media")
	ErrMediaRequired        = New(KindInput, "media_required", "platform requires at least one media attachment")
	ErrMediaNotReady        = New(KindInput, "media_not_ready", "media asset is not ready")
	ErrInvalidState         = New(KindInput, "invalid_state", "post is not in a state that allows this operation")
	ErrInvalidRequest       = New(KindInput, "invalid_request", "invalid request")
)

// Constraint errors
var (
	ErrViolatesLength = New(KindConstraint, "violates_length", "content exceeds platform length limit")
)

// Authorization errors
var (
	ErrUnsupportedPlatform = New(KindAuthorization, "unsupported_platform", "platform does not support authorization")
	ErrSessionNotFound     = New(KindAuthorization, "session_not_found", "authorization session not found")
	ErrSessionExpired      = New(KindAuthorization, "session_expired", "authorization session expired")
	ErrStateMismatch       = New(KindAuthorization, "state_mismatch", "authorization state does not match platform")
	ErrExchangeFailed      = New(KindAuthorization, "exchange_failed", "authorization code exchange failed")
	ErrNotAuthorized       = New(KindAuthorization, "not_authorized", "platform is not connected")
	ErrRefreshFailed       = New(KindAuthorization, "refresh_failed", "credential refresh failed")
)

// Transient, terminal and generation errors
var (
	ErrTransient           = New(KindTransient, "transient", "temporary upstream failure")
	ErrPublishFailed       = New(KindFailed, "publish_failed", "publishing failed")
	ErrGenerationFailed    = New(KindGeneration, "generation_failed", "generation failed")
	ErrGenerationExhausted = New(KindGeneration, "generation_exhausted", "image generation failed after fallback")
)

// Lookup errors
var (
	ErrPlatformNotFound = New(KindNotFound, "platform_not_found", "unknown platform")
	ErrPostNotFound     = New(KindNotFound, "post_not_found", "post not found")
	ErrAssetNotFound    = New(KindNotFound, "asset_not_found", "media asset not found")
)

// ErrConfig reports missing or malformed configuration.
var ErrConfig = New(KindConfig, "config", "invalid configuration")

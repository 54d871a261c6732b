package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the UI.
type Kind string

const (
	KindNoCredentials  Kind = "no_credentials"
	KindUnauthorized   Kind = "invalid_or_expired_token"
	KindRefreshFailed  Kind = "refresh_failed"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	KindServerRejected Kind = "server_rejected"
	KindTransport      Kind = "transport"
	KindValidation     Kind = "local_validation"
)

// Sentinel errors, one per Kind. *Error values match them with errors.Is.
var (
	ErrNoCredentials  = errors.New("no credentials found, please log in")
	ErrUnauthorized   = errors.New("access token is invalid or expired")
	ErrRefreshFailed  = errors.New("session expired, please log in again")
	ErrForbidden      = errors.New("access denied")
	ErrNotFound       = errors.New("resource not found")
	ErrServerRejected = errors.New("request rejected by server")
	ErrTransport      = errors.New("network failure, please check your connection")
	ErrValidation     = errors.New("invalid input")
)

var sentinels = map[Kind]error{
	KindNoCredentials:  ErrNoCredentials,
	KindUnauthorized:   ErrUnauthorized,
	KindRefreshFailed:  ErrRefreshFailed,
	KindForbidden:      ErrForbidden,
	KindNotFound:       ErrNotFound,
	KindServerRejected: ErrServerRejected,
	KindTransport:      ErrTransport,
	KindValidation:     ErrValidation,
}

// Error is a classified failure. Status is the HTTP status that produced it,
// or 0 when no response was involved.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// NewError builds a classified error. An empty message falls back to the
// sentinel text for kind.
func NewError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}

// Validationf builds a LocalValidation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if sentinel, ok := sentinels[e.Kind]; ok {
		return sentinel.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf classifies err. Unclassified errors count as transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindTransport
}

// Message returns the human readable text shown for err.
// Unclassified errors never leak their raw text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrTransport.Error()
}

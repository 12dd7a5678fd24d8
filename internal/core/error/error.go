package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// Kind classifies a failure for the widget that has to react to it.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network_failure"
	KindBadStatus  Kind = "bad_status"
	KindMalformed  Kind = "malformed_response"
	KindListener   Kind = "listener_failure"
	KindStorage    Kind = "storage"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "something went wrong, please try again"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Sentinels for errors.Is checks. Each matches any AppError of the same Kind.
var (
	ErrValidation      = &AppError{Kind: KindValidation}
	ErrNetworkFailure  = &AppError{Kind: KindNetwork}
	ErrBadStatus       = &AppError{Kind: KindBadStatus}
	ErrMalformed       = &AppError{Kind: KindMalformed}
	ErrListenerFailure = &AppError{Kind: KindListener}
	ErrStorage         = &AppError{Kind: KindStorage}
)

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a kind sentinel of the same kind, or matches the wrapped error.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok && t.Err == nil && t.Message == "" && t.Status == 0 {
		return t.Kind != "" && t.Kind == e.Kind
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// New creates a new AppError with the provided information.
func New(err error, kind Kind, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// Validation reports bad input that is never sent over the network.
func Validation(format string, args ...any) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: fmt.Sprintf(format, args...),
	}
}

// Network reports a transport-level failure (dial, reset, timeout).
func Network(err error, message string) *AppError {
	return New(err, KindNetwork, http.StatusServiceUnavailable, message)
}

// BadStatus reports a non-2xx response carrying the server's message when it had one.
func BadStatus(status int, message string) *AppError {
	return New(fmt.Errorf("unexpected status %d", status), KindBadStatus, status, message)
}

// Malformed reports a 2xx response whose body could not be decoded.
func Malformed(err error, message string) *AppError {
	return New(err, KindMalformed, http.StatusBadGateway, message)
}

// Listener reports a subscriber callback that returned an error or panicked.
func Listener(topic, listener string, err error) *AppError {
	return New(err, KindListener, 0, fmt.Sprintf("listener %q on %s failed", listener, topic))
}

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, KindStorage, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, KindStorage, http.StatusBadGateway, RedisErrorMessage)
}

// KindOf returns the kind of the first AppError in the chain, or "" if there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// UserMessage returns text that is safe to show inline next to the triggering control.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}

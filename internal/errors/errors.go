package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries an HTTP-mappable code alongside the message and cause, so
// the same value can flow through the loop, the logs and the debug API.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrap(code int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Is re-exports the stdlib matcher so callers only import this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

var (
	ErrSessionNotFound  = New(http.StatusNotFound, "session not found")
	ErrTransportClosed  = New(http.StatusServiceUnavailable, "transport closed")
	ErrDispatcherClosed = New(http.StatusConflict, "dispatcher already stopped")
	ErrPeerEmpty        = New(http.StatusBadRequest, "peer is empty")
)

func InvalidArg(name string) *Error {
	return Newf(http.StatusBadRequest, "invalid argument: %s", name)
}

func RecvFailed(err error) *Error {
	return wrap(http.StatusBadGateway, "receive update batch failed", err)
}

func InvokeFailed(method string, err error) *Error {
	return wrap(http.StatusBadGateway, fmt.Sprintf("invoke %s failed", method), err)
}

func DecodeFailed(err error) *Error {
	return wrap(http.StatusBadGateway, "decode gateway frame failed", err)
}

func DialFailed(addr string, err error) *Error {
	return wrap(http.StatusBadGateway, fmt.Sprintf("dial gateway %s failed", addr), err)
}

func SessionLoadFailed(err error) *Error {
	return wrap(http.StatusInternalServerError, "load session failed", err)
}

func SessionSaveFailed(err error) *Error {
	return wrap(http.StatusInternalServerError, "save session failed", err)
}

func SessionDriverUnsupported(driver string) *Error {
	return Newf(http.StatusBadRequest, "unsupported session driver: %s", driver)
}

func DBInitFailed(err error) *Error {
	return wrap(http.StatusInternalServerError, "initialize session database failed", err)
}

func MessageNotFound(id int) *Error {
	return Newf(http.StatusNotFound, "message %d not found", id)
}

func QueryFailed(err error) *Error {
	return wrap(http.StatusInternalServerError, "query failed", err)
}

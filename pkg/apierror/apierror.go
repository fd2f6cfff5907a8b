// Package apierror carries typed request failures from services to the
// single HTTP responder.
package apierror

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/utilities"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindCredentials
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindTooManyRequests
	KindUnavailable
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindCredentials:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a failure that is safe to show to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches cause so errors.Is keeps matching service sentinels.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(message string) *Error     { return New(KindValidation, message) }
func Credentials(message string) *Error    { return New(KindCredentials, message) }
func Authentication(message string) *Error { return New(KindAuthentication, message) }
func Authorization(message string) *Error  { return New(KindAuthorization, message) }
func NotFound(message string) *Error       { return New(KindNotFound, message) }

type body struct {
	Error payload `json:"error"`
}

type payload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

const internalMessage = "internal server error"

// Write renders err as {"error":{"message","status"}}. Errors that are not
// *Error are reported as 500 with a generic message and logged.
func Write(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status := http.StatusInternalServerError
	message := internalMessage

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind != KindInternal {
		status = apiErr.Kind.Status()
		message = apiErr.Message
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Errorw("request failed", "status", status, "err", err)
	}
	utilities.WriteJSON(w, status, body{Error: payload{Message: message, Status: status}})
}

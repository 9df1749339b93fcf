package coral

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("connection closed")
var ErrTooManyOutstanding = errors.New("too many outstanding requests")

// default service error code when the server omits one on a rejected save
const DefaultSaveErrorCode = "save_failed"

// ConnectionError is a failure of the physical connection: not connected,
// a failed write, or a close while a caller was waiting for its response.
// It is fatal to the one in-flight call, not to the session.
type ConnectionError struct {
	Cause error
}

func (self *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %s", self.Cause)
}

func (self *ConnectionError) Unwrap() error {
	return self.Cause
}

func NewConnectionError(cause error) *ConnectionError {
	return &ConnectionError{
		Cause: cause,
	}
}

// ServiceError is an operation the server rejected with an error envelope.
type ServiceError struct {
	Code    string
	Message string
}

func (self *ServiceError) Error() string {
	return fmt.Sprintf("service error %s: %s", self.Code, self.Message)
}

// serviceErrorFromEnvelope applies the default code and message when the
// server omits them.
func serviceErrorFromEnvelope(envelope *Envelope, defaultCode string, defaultMessage string) *ServiceError {
	code := envelope.ErrorCode
	if code == "" {
		code = defaultCode
	}
	message := envelope.ErrorMessage
	if message == "" {
		message = defaultMessage
	}
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// DecodeError is a malformed or unexpected response payload. Distinct from
// ServiceError: the server did not reject the operation, the bytes did.
type DecodeError struct {
	Cause error
}

func (self *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s", self.Cause)
}

func (self *DecodeError) Unwrap() error {
	return self.Cause
}

func NewDecodeError(cause error) *DecodeError {
	return &DecodeError{
		Cause: cause,
	}
}

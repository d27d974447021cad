package session

import (
	"github.com/pkg/errors"
)

var (
	ErrFileNotFound         = errors.New("file not found")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrRemoteCommand        = errors.New("remote command failed")
)

// remoteError ties a device failure to ErrRemoteCommand while keeping the
// device's own error reachable through errors.Is and errors.As.
type remoteError struct {
	op  string
	err error
}

func remote(op string, err error) error {
	return &remoteError{op: op, err: err}
}

func (e *remoteError) Error() string {
	return "unable to " + e.op + ": " + e.err.Error()
}

func (e *remoteError) Unwrap() []error {
	return []error{ErrRemoteCommand, e.err}
}

package download

import (
	"errors"
	"fmt"
)

// ErrBusy is returned by Start when a request is already waiting behind the active run.
var ErrBusy = errors.New("a download is already pending")

// MalformedRequestError rejects a trigger before any state is touched.
type MalformedRequestError struct {
	Field  string // "url" or "file_name"
	Value  string
	Reason string
	Err    error
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("malformed download request: %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *MalformedRequestError) Unwrap() error {
	return e.Err
}

// PermissionError ends a run because the downloads directory may not be written.
type PermissionError struct {
	Dir string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("no permission to write to %s", e.Dir)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// TransferError ends a run on any connect, read or write failure.
type TransferError struct {
	Operation  string // "connect", "read", "write", "create"
	StatusCode int    // HTTP status when the source answered with a non-2xx
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transfer failed during %s (HTTP %d)", e.Operation, e.StatusCode)
	}

	if e.Err != nil {
		return fmt.Sprintf("transfer failed during %s: %v", e.Operation, e.Err)
	}

	return fmt.Sprintf("transfer failed during %s", e.Operation)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Failure classifies how a run ended.
type Failure string

const (
	FailureNone       Failure = ""
	FailureTransfer   Failure = "transfer"
	FailurePermission Failure = "permission"
)

func classify(err error) Failure {
	if err == nil {
		return FailureNone
	}

	var permErr *PermissionError
	if errors.As(err, &permErr) {
		return FailurePermission
	}

	return FailureTransfer
}

// runStatus is the bounded label recorded in run metrics.
func runStatus(err error) string {
	switch classify(err) {
	case FailureNone:
		return "success"
	case FailurePermission:
		return "permission_denied"
	default:
		return "transfer_error"
	}
}

package common

import (
	"net"
	"os"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Error categories
// --------------------------------------------------------------------------

// ErrContractViolation marks errors caused by calling an operation in a state
// or with arguments it does not accept. Retrying the same call never helps.
var ErrContractViolation = errors.New("contract violation")

// ErrOperational marks errors caused by the network or the operating system.
// Callers may retry or branch on them.
var ErrOperational = errors.New("operational failure")

// --------------------------------------------------------------------------
// Sentinel errors
// --------------------------------------------------------------------------

var (
	// contract violations

	ErrAlreadyBound    = errors.New("socket already set")
	ErrNotBound        = errors.New("socket not set")
	ErrIndexOutOfRange = errors.New("socket index uninitialized")
	ErrEmptyMessage    = errors.New("no message to send")

	// operational failures

	ErrAddressResolution = errors.New("address resolution failed")
	ErrSetup             = errors.New("socket setup failed")
	ErrCapacityExceeded  = errors.New("max number of sockets reached")
	ErrIO                = errors.New("socket i/o failed")
)

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// NewContractError annotates sentinel with a formatted context message and
// marks the result as a contract violation
func NewContractError(sentinel error, format string, args ...interface{}) error {
	err := errors.Wrapf(sentinel, format, args...)
	return errors.Mark(err, ErrContractViolation)
}

// NewOperationalError wraps cause with a formatted context message and marks the
// result with both sentinel and ErrOperational. If cause is nil the sentinel
// itself is used as the cause.
func NewOperationalError(sentinel error, cause error, format string, args ...interface{}) error {
	var err error
	if cause == nil {
		err = errors.Wrapf(sentinel, format, args...)
	} else {
		err = errors.Mark(errors.Wrapf(cause, format, args...), sentinel)
	}
	return errors.Mark(err, ErrOperational)
}

// --------------------------------------------------------------------------
// Classification helpers
// --------------------------------------------------------------------------

// IsContractViolation reports whether err was caused by misuse of an endpoint
func IsContractViolation(err error) bool {
	return err != nil && errors.Is(err, ErrContractViolation)
}

// IsOperational reports whether err was caused by a network or system failure
func IsOperational(err error) bool {
	return err != nil && errors.Is(err, ErrOperational)
}

// IsTimeout reports whether err was caused by an elapsed read or accept timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

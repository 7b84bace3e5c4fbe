// Package ttbencherrors contains the error types shared by the benchmark phases.
// The top-level command looks for the error types defined in this file to decide the process exit code.
//
// If multiple errors occur in some function (e.g., if several jobs of a phase fail), that
// function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package ttbencherrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTargetReached is returned when a job is created against a target that has no items left.
var ErrTargetReached = errors.New("failed to build job, because test target already reached")

// ErrConfiguration is returned when the benchmark is misconfigured, e.g. no instances or a zero scale factor.
// Message is optional and is omitted from the error message if not provided.
type ErrConfiguration struct {
	Name    string      // Name of the field referred to, e.g., "scale"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message
}

func (err *ErrConfiguration) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrConvergence is returned when a work target detects that its invariants have been broken.
// Continuing after such an error could double-count or under-count items, so it always aborts the run.
type ErrConvergence struct {
	Target  string // Name of the target, e.g. "tpcb"
	Message string
}

func (err *ErrConvergence) Error() string {
	return fmt.Sprintf("target %q failed to converge: %s", err.Target, err.Message)
}

// ErrDispatch wraps the failure of a single work item.
type ErrDispatch struct {
	Phase string
	JobId uint64
	Err   error
}

func (err *ErrDispatch) Error() string {
	return fmt.Sprintf("job %d of phase %s: %s", err.JobId, err.Phase, err.Err)
}

func (err *ErrDispatch) Unwrap() error {
	return err.Err
}

func (err *ErrDispatch) Cause() error {
	return err.Err
}

const (
	ExitCodeOk            = 0
	ExitCodeUnknown       = 1
	ExitCodeConfiguration = 2
	ExitCodeConvergence   = 3
	ExitCodeDispatch      = 4
)

// ExitCodeFromError maps error types to process exit codes.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitCodeOk
	}
	{
		var e *ErrConfiguration
		if errors.As(err, &e) {
			return ExitCodeConfiguration
		}
	}
	{
		var e *ErrConvergence
		if errors.As(err, &e) {
			return ExitCodeConvergence
		}
	}
	{
		var e *ErrDispatch
		if errors.As(err, &e) {
			return ExitCodeDispatch
		}
	}
	return ExitCodeUnknown
}

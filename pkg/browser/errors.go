package browser

import (
	"errors"
	"fmt"
)

var (
	ErrInstanceNotFound = errors.New("browser instance not found")
	ErrPoolExhausted    = errors.New("instance limit reached")
	ErrManagerClosed    = errors.New("browser manager closed")
	ErrLaunchFailed     = errors.New("browser launch failed")
)

// InstanceError wraps a failure scoped to a single instance.
type InstanceError struct {
	InstanceID string
	Op         string
	Err        error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("instance %s: %s: %v", e.InstanceID, e.Op, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

func wrapInstanceError(instanceID, op string, err error) error {
	if err == nil {
		return nil
	}
	return &InstanceError{InstanceID: instanceID, Op: op, Err: err}
}

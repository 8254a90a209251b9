package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyClaimed is returned when a user who already holds an active claim
// on a material tries to claim it again instead of editing the existing claim.
var ErrAlreadyClaimed = errors.New("material already claimed by this user")

// ErrCapacityExceeded is the match target for CapacityError.
var ErrCapacityExceeded = errors.New("requested quantity exceeds remaining capacity")

// ErrBusy is returned after transaction retries are exhausted; callers should
// retry the whole operation after a short delay.
var ErrBusy = errors.New("registry busy, please try again")

// CapacityError carries the actual remaining amount so callers can offer a
// corrected quantity. It matches ErrCapacityExceeded via errors.Is.
type CapacityError struct {
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("requested quantity exceeds remaining capacity (%d left)", e.Remaining)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

package models

import "errors"

// Custom errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidGender      = errors.New("invalid or missing gender")
	ErrMissingCategory    = errors.New("missing category")
	ErrUnknownAthlete     = errors.New("athlete is not part of the current group")
	ErrInvalidAttempt     = errors.New("attempt number must be between 1 and 6")
	ErrAttemptAlreadyDone = errors.New("attempt already done")
	ErrAttemptOutOfOrder  = errors.New("attempts must be recorded in order")
	ErrInvalidWeight      = errors.New("invalid requested weight")
	ErrTwentyKiloRule     = errors.New("first snatch and first clean&jerk violate the 20kg rule")
	ErrNoLiftToReverse    = errors.New("no recorded lift to reverse")
	ErrGroupLifting       = errors.New("group is loaded on a platform")
)

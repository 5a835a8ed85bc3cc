package errors

import "errors"

var (
	ErrInvalidBallotInput       = errors.New("invalid ballot input")
	ErrImpedimentReasonRequired = errors.New("impediment reason is required")
	ErrBallotNotFound           = errors.New("ballot not found")
	ErrResolutionNotFound       = errors.New("resolution not found")
	ErrVotingClosed             = errors.New("voting is closed for this resolution")
	ErrConflict                 = errors.New("ballot conflict")
	ErrRosterUnavailable        = errors.New("eligible voter roster is unavailable")
)

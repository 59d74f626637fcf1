package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidCredentials = errors.New("invalid account credentials")
	ErrInvalidCheque      = errors.New("invalid cheque")
	ErrChequeAlreadyUsed  = errors.New("cheque was already activated")
	ErrReplyUnrecognized  = errors.New("bot reply not recognized")
	ErrUnknownProfile     = errors.New("unknown bot profile")
	ErrTickerUnavailable  = errors.New("price ticker unavailable")
	ErrTickerMalformed    = errors.New("malformed price ticker response")
	ErrInvalidAmount      = errors.New("invalid btc amount")
)

// ChequeError is returned when a bot refuses a cheque or answers with
// something the profile does not know. It matches ErrInvalidCheque and the
// sentinel of its outcome.
type ChequeError struct {
	Profile string
	Outcome Outcome
	Reply   string
}

func (e *ChequeError) Error() string {
	switch e.Outcome {
	case OutcomeAlreadyUsed:
		return fmt.Sprintf("%s: %s", ErrInvalidCheque, ErrChequeAlreadyUsed)
	default:
		return fmt.Sprintf("%s: %s didn't answer or cheque is invalid", ErrInvalidCheque, e.Profile)
	}
}

func (e *ChequeError) Is(target error) bool {
	switch target {
	case ErrInvalidCheque:
		return true
	case ErrChequeAlreadyUsed:
		return e.Outcome == OutcomeAlreadyUsed
	case ErrReplyUnrecognized:
		return e.Outcome == OutcomeUnrecognized
	}
	return false
}

package service

import (
	"errors"
	"fmt"
	"strings"

	"raffled/models"
)

var (
	// ErrLotteryNotFound is returned when the referenced lottery does not exist
	ErrLotteryNotFound = errors.New("lottery not found")

	// ErrPermissionDenied is returned when the acting user lacks the role or
	// ownership an operation requires
	ErrPermissionDenied = errors.New("permission denied")

	// ErrWinnersAlreadySelected guards winner selection against repeat invocation
	ErrWinnersAlreadySelected = errors.New("winners already selected for this lottery")

	// ErrTicketNumberTaken is the repository-level sentinel for a unique
	// violation on (lottery_id, ticket_number). The service layer translates
	// it into a NumbersUnavailableError before it reaches a caller.
	ErrTicketNumberTaken = errors.New("ticket number already taken")
)

// ValidationError reports malformed input. It never mutates state and is
// always recoverable by the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidStateTransitionError reports an operation that is not legal for the
// lottery's current status
type InvalidStateTransitionError struct {
	Operation string
	Current   models.LotteryStatus
	Required  models.LotteryStatus
	Reason    string
}

func (e *InvalidStateTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s lottery in state %q (requires %q)", e.Operation, e.Current, e.Required)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NumbersUnavailableError lists the exact ticket numbers that conflict with
// existing tickets or live reservations, so the caller can retry with a
// reduced set
type NumbersUnavailableError struct {
	Numbers []int
}

func (e *NumbersUnavailableError) Error() string {
	return fmt.Sprintf("ticket numbers unavailable: %v", e.Numbers)
}

// RestrictedFieldError reports an attempted edit of fields that are immutable
// once the lottery is active with paid tickets
type RestrictedFieldError struct {
	Fields  []string
	Allowed []string
}

func (e *RestrictedFieldError) Error() string {
	return fmt.Sprintf("fields %s cannot be changed after tickets are sold (editable: %s)",
		strings.Join(e.Fields, ", "), strings.Join(e.Allowed, ", "))
}

// InvalidWinnerSelectionError reports a manual winner list that failed
// validation; no partial writes occur
type InvalidWinnerSelectionError struct {
	Reason  string
	Numbers []int
}

func (e *InvalidWinnerSelectionError) Error() string {
	if len(e.Numbers) > 0 {
		return fmt.Sprintf("invalid winner selection: %s: %v", e.Reason, e.Numbers)
	}
	return fmt.Sprintf("invalid winner selection: %s", e.Reason)
}

package domain

import "fmt"

// InvalidAmountError reports a money-model constraint violation, typically an
// operation that would drive a balance negative.
type InvalidAmountError struct {
	Op     string
	Amount Amount
}

func (e InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount: %s would yield %s", e.Op, e.Amount)
}

// InvalidTransitionError reports a state-machine precondition failure.
type InvalidTransitionError struct {
	Entity EntityType
	ID     string
	From   string
	Event  string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from state %s", e.Entity, e.ID, e.Event, e.From)
}

// InsufficientFundsError reports that a mutation would violate the
// non-negative escrow guard, e.g. implementing a negative change order against
// a thin escrow balance.
type InsufficientFundsError struct {
	ProjectID string
	Requested Amount
	Available Amount
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("project %s: insufficient escrow (requested %s, available %s)", e.ProjectID, e.Requested, e.Available)
}

// DisputeBlockedError reports a milestone approval rejected because an
// unresolved dispute references the milestone.
type DisputeBlockedError struct {
	MilestoneID string
	DisputeID   string
}

func (e DisputeBlockedError) Error() string {
	return fmt.Sprintf("milestone %s: approval blocked by unresolved dispute %s", e.MilestoneID, e.DisputeID)
}

// UnauthorizedError reports an actor lacking permission for a command.
// Permission failures never partially apply.
type UnauthorizedError struct {
	Actor   string
	Command string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("actor %s is not permitted to %s", e.Actor, e.Command)
}

// NotFoundError is returned when reference validation fails within
// transactional helpers.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// RemoteUnavailableError reports a degraded sync: the remote service could not
// serve a collection and the coordinator fell back to the local cache. It is
// advisory, never fatal.
type RemoteUnavailableError struct {
	Collection string
	Err        error
}

func (e RemoteUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote unavailable for %s: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("remote unavailable for %s", e.Collection)
}

func (e RemoteUnavailableError) Unwrap() error { return e.Err }

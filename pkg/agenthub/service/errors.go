package service

import "errors"

// Every failure below is an expected, recoverable-by-caller condition.
// The HTTP layer maps the not-found family to 404 and the conflict family
// to 409; the service itself never retries or suppresses them.

// Not-found family: the caller referenced a row that does not exist.
var (
	ErrGroupNotFound      = errors.New("group_not_found")
	ErrAgentNotFound      = errors.New("agent_not_found")
	ErrAssignmentNotFound = errors.New("assignment_not_found")
	ErrMemberNotFound     = errors.New("member_not_found")
	ErrUserNotFound       = errors.New("user_not_found")
)

// Conflict family: the write would violate a uniqueness constraint.
var (
	ErrDuplicateAgent      = errors.New("duplicate_agent")
	ErrDuplicateAssignment = errors.New("duplicate_assignment")
	ErrDuplicateMembership = errors.New("duplicate_membership")
)

// Package service provides business logic implementations.
package service

import (
	"errors"

	"brand-ranking/internal/pkg/lock"
	"brand-ranking/internal/scoring"
)

// Ballot validation errors.
var (
	ErrInvalidBallotShape = scoring.ErrInvalidBallotShape
	ErrDuplicateSelection = scoring.ErrDuplicateSelection
	ErrUnknownBrand       = errors.New("one or more brands do not exist")
)

// Common errors for service operations.
var (
	ErrAlreadyVoted       = errors.New("user has already voted today")
	ErrUserNotFound       = errors.New("user not found")
	ErrBrandNotFound      = errors.New("brand not found")
	ErrBallotNotFound     = errors.New("ballot not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownBonus       = errors.New("unknown bonus action")
	ErrInvalidAmount      = errors.New("invalid amount: must be non-zero")
	ErrBusy               = errors.New("another request for this user is in progress")
	ErrInvalidBrand       = errors.New("brand name is required")
	ErrDuplicateBrand     = errors.New("brand name already exists")
	ErrInvalidRole        = errors.New("role must be user or admin")
)

// Kind classifies service errors for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// KindOf returns the classification of err. Unrecognised errors are internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidBallotShape),
		errors.Is(err, ErrDuplicateSelection),
		errors.Is(err, ErrUnknownBonus),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidBrand),
		errors.Is(err, ErrInvalidRole):
		return KindValidation
	case errors.Is(err, ErrAlreadyVoted),
		errors.Is(err, ErrBusy),
		errors.Is(err, ErrDuplicateBrand):
		return KindConflict
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrUnknownBrand),
		errors.Is(err, ErrBrandNotFound),
		errors.Is(err, ErrBallotNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// Reason returns a stable machine-readable code for err.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidBallotShape):
		return "invalid_ballot_shape"
	case errors.Is(err, ErrDuplicateSelection):
		return "duplicate_selection"
	case errors.Is(err, ErrUnknownBrand):
		return "unknown_brand"
	case errors.Is(err, ErrUnknownBonus):
		return "unknown_bonus"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidBrand):
		return "invalid_brand"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrDuplicateBrand):
		return "duplicate_brand"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrBrandNotFound):
		return "brand_not_found"
	case errors.Is(err, ErrBallotNotFound):
		return "ballot_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal"
	}
}

// lockError maps a per-user lock failure to ErrBusy. Other errors pass
// through.
func lockError(err error) error {
	if errors.Is(err, lock.ErrLockTimeout) {
		return ErrBusy
	}
	return err
}

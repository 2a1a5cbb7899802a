package domain

import (
	"errors"
	"strings"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrRoleNotFound        = errors.New("role not found")
	ErrRoleExists          = errors.New("role already exists")
	ErrRoleAlreadyAssigned = errors.New("role already assigned")
	ErrInvalidSigningKey   = errors.New("invalid signing key")
	ErrInvalidToken        = errors.New("invalid token")
)

// IdentityError is returned when a user cannot be created because it breaks
// the password or user policy. Descriptions are human readable and safe to
// return to the caller.
type IdentityError struct {
	Descriptions []string
}

func (e *IdentityError) Error() string {
	return strings.Join(e.Descriptions, " ")
}

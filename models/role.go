package models

import (
	"errors"
	"strings"
)

// Role is the authorization label carried by every user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAuthor Role = "author"
	RoleReader Role = "reader"
)

// ErrInvalidRole is returned when a role outside the recognized set is used.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole maps a case-insensitive role name to a Role.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuthor, RoleReader:
		return true
	}
	return false
}

// Identity is the resolved principal of a request. A nil *Identity is anonymous.
type Identity struct {
	ID       uint
	Username string
	Role     Role
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

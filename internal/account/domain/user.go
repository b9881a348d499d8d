package domain

import (
	"errors"
	"time"
)

// User is the persisted account entity. PasswordHash is the opaque Argon2id blob;
// it is never logged and never returned in API responses.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Role         Role
	Status       UserStatus
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSupport Role = "support"
	RoleUser    Role = "user"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// FullName returns "First Last" with blanks trimmed away.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Principal is the authenticated identity attached to one request. It is
// reconstructed from storage on every request and never cached, so account
// disablement takes effect immediately.
type Principal struct {
	ID      string
	Subject string // unique login handle (email)
	Name    string
	Role    Role
	Active  bool
}

// PrincipalOf derives the request principal view of u.
func PrincipalOf(u *User) *Principal {
	if u == nil {
		return nil
	}
	return &Principal{
		ID:      u.ID,
		Subject: u.Email,
		Name:    u.FullName(),
		Role:    u.Role,
		Active:  u.Status == UserStatusActive,
	}
}

package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Toggled returns the opposite role.
func (r Role) Toggled() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

type UserStatus string

const (
	StatusActive  UserStatus = "active"
	StatusBlocked UserStatus = "blocked"
)

func ParseUserStatus(s string) (UserStatus, bool) {
	switch UserStatus(s) {
	case StatusActive, StatusBlocked:
		return UserStatus(s), true
	default:
		return "", false
	}
}

// Toggled returns the opposite status.
func (s UserStatus) Toggled() UserStatus {
	if s == StatusActive {
		return StatusBlocked
	}
	return StatusActive
}

type User struct {
	ID        string     `json:"_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Photo     string     `json:"photo"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

type RegisterUserReq struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

func (r *RegisterUserReq) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Photo = strings.TrimSpace(r.Photo)
}

func (r *RegisterUserReq) Validate() error {
	if !IsValidEmail(r.Email) {
		return fieldError("email", "a valid email is required")
	}
	return nil
}

// AlreadyExistsRes is returned instead of an insert result when the email is taken.
type AlreadyExistsRes struct {
	Message    string  `json:"message"`
	InsertedID *string `json:"insertedId"`
}

type UserStatusRes struct {
	UserStatus bool `json:"userStatus"`
}

type AdminRes struct {
	Admin bool `json:"admin"`
}

package user

import (
	"errors"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Books        []string  `json:"books"`
	DateCreated  time.Time `json:"dateCreated"`
}

var (
	ErrNotFound          = errors.New("user not found")
	ErrMalformedID       = errors.New("malformed user id")
	ErrDuplicateIdentity = errors.New("expected `username` and `email` to be unique")
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=60"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// MinPasswordLen is checked in the handler rather than a binding tag so
// the legacy error message survives verbatim.
const MinPasswordLen = 6

package services

import (
	"errors"

	"github.com/dzoniops/rental-service/auth"
)

var (
	ErrUnauthenticated    = auth.ErrUnauthenticated
	ErrForbidden          = errors.New("forbidden")
	ErrPropertyNotFound   = errors.New("property not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("booking is no longer pending")
)

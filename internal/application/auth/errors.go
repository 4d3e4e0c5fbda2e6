package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidEmail          = errors.New("Invalid Email")
	ErrIncorrectPassword     = errors.New("Incorrect Password")
	ErrNotAuthenticated      = errors.New("Not authenticated")
	ErrNameRequired          = errors.New("Name is required.")
	ErrInvalidEmailFormat    = errors.New("Invalid email format.")
	ErrInvalidPassword       = errors.New("Password must be at least 8 characters and contain a letter, a number and a symbol.")
	ErrEmailTaken            = errors.New("Email already registered")
	ErrNameTaken             = errors.New("Name is already in use.")
	ErrInvalidToken          = errors.New("Invalid token")
	ErrTokenSecretMissing    = errors.New("JWT_SECRET is not configured")
)

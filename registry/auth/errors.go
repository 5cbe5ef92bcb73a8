package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrMissingCredentials = errors.New("Email and password are required")
	ErrGeneratingJwt      = errors.New("error generating jwt")
	ErrUnauthorized       = errors.New("Unauthorized")
)

type requestContextKey string

const adminRequestContextKey requestContextKey = "admin_user"

package auth

import "errors"

// Typed authentication-layer errors. Callers branch with errors.Is instead of
// inspecting error strings or duck-typing.
var (
	ErrUnauthenticated  = errors.New("auth: missing or invalid credentials")
	ErrInvalidToken     = errors.New("auth: unknown api token")
	ErrInvalidCode      = errors.New("auth: verification code does not match")
	ErrCodeExpired      = errors.New("auth: verification code expired or never requested")
	ErrTooManyAttempts  = errors.New("auth: too many verification attempts")
	ErrEmailNotVerified = errors.New("auth: email has not been verified")
	ErrEmailTaken       = errors.New("auth: email is already registered")
)

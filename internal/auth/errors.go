package auth

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrBadCredentials indicates the identity provider rejected the
	// configured email/password. Fatal: retrying cannot succeed.
	ErrBadCredentials = errors.New("invalid email or password")

	// ErrUnsupportedChallenge indicates the provider issued a challenge
	// kind this bridge does not know how to answer. Fatal.
	ErrUnsupportedChallenge = errors.New("unsupported auth challenge")

	// ErrChallengeRejected indicates a submitted verification code was
	// not accepted. Non-fatal: the login attempt stays open for another code.
	ErrChallengeRejected = errors.New("verification code rejected")

	// ErrChallengeAttemptsExceeded indicates the configured maximum number
	// of code submissions was reached without success.
	ErrChallengeAttemptsExceeded = errors.New("verification attempts exceeded")

	// ErrRefreshFailed indicates a session refresh attempt failed.
	// The previous tokens remain in effect.
	ErrRefreshFailed = errors.New("session refresh failed")

	// ErrNotAuthenticated indicates an operation requiring a live session
	// was attempted before login completed.
	ErrNotAuthenticated = errors.New("not authenticated")
)

package auth

import "context"

// Challenge answer formats expected by the identity provider's custom
// challenge lambda. These are fixed protocol strings, not templates to
// vary.
const (
	// answerGenerateCode asks the provider to send a login code to the
	// account's registered phone number.
	answerGenerateCode = "answerType:generateCode,medium:phone,codeType:login"

	// answerVerifyCodePrefix is completed with the user-supplied code.
	answerVerifyCodePrefix = "answerType:verifyCode,medium:phone,codeType:login,code:"
)

// ChallengeKindCustom is the only challenge kind this bridge can answer.
const ChallengeKindCustom = "CUSTOM_CHALLENGE"

// ChallengeSession is a pending challenge handed back by the provider.
//
// The Session value is an opaque continuation token; it may rotate on
// every challenge round trip, so callers must carry the latest one.
type ChallengeSession struct {
	Kind     string
	Session  string
	Username string
}

// SignInResult is the outcome of a sign-in or challenge-answer call.
// Exactly one of Tokens or Challenge is set.
type SignInResult struct {
	Tokens    *Tokens
	Challenge *ChallengeSession
}

// Provider is the identity provider abstraction consumed by the Manager.
//
// Implementations must be safe for concurrent use: the refresh loop
// calls Refresh while no other calls are in flight, but tests may
// exercise methods from multiple goroutines.
type Provider interface {
	// SignIn starts an authentication attempt with email and password.
	// Returns ErrBadCredentials if the provider rejects the credentials.
	SignIn(ctx context.Context, username, password string) (*SignInResult, error)

	// AnswerChallenge submits an answer to a pending challenge.
	// Returns ErrChallengeRejected if the answer was not accepted and
	// the challenge remains open.
	AnswerChallenge(ctx context.Context, challenge *ChallengeSession, answer string) (*SignInResult, error)

	// Refresh exchanges a refresh token for fresh id/access tokens.
	// The returned Tokens may carry an empty RefreshToken, in which
	// case the caller keeps the previous one.
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
}

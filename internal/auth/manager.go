package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerrad567/halo-bridge/internal/infrastructure/logging"
)

// Phase is the manager's position in the session lifecycle.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAwaitingCode    Phase = "awaiting_code"
	PhaseAuthenticated   Phase = "authenticated"
)

// Submission is one verification code handed over by the challenge
// gateway. The submitter blocks on Verdict until the provider has
// accepted or rejected the code, so the web form can render the result
// of this exact attempt.
type Submission struct {
	Code    string
	Verdict chan bool
}

// Gateway collects verification codes from the user during an
// interactive login. The HTTP challenge server implements it; tests
// substitute a channel-backed fake.
type Gateway interface {
	// Start begins accepting submissions.
	Start() error

	// Submissions streams codes as the user submits them.
	Submissions() <-chan Submission

	// Stop shuts the gateway down. Implementations may linger briefly
	// so an in-flight success page can be served.
	Stop(ctx context.Context) error
}

// ManagerConfig carries the tunables for the session lifecycle.
type ManagerConfig struct {
	Email    string
	Password string

	// RefreshInterval is the fixed period between session refreshes.
	RefreshInterval time.Duration

	// MaxCodeAttempts bounds verification code submissions per login
	// attempt. Zero means unlimited.
	MaxCodeAttempts int

	// ReauthAfterFailures fires the refresh-exhausted callback after
	// this many consecutive refresh failures. Zero disables it.
	ReauthAfterFailures int
}

// Manager drives the session lifecycle: silent login from stored
// credentials, interactive login with the custom challenge flow, and
// the periodic refresh loop.
//
// The manager is the sole writer of the Session. All other components
// only read the bearer token from it.
type Manager struct {
	provider Provider
	store    Store
	session  *Session
	gateway  Gateway
	cfg      ManagerConfig
	logger   *logging.Logger

	phase   Phase
	phaseMu sync.RWMutex

	// consecutive refresh failures since the last success.
	refreshFailures int
	failureMu       sync.Mutex

	onRefreshExhausted func()
}

// NewManager creates a session lifecycle manager.
func NewManager(provider Provider, store Store, session *Session, gateway Gateway, cfg ManagerConfig, logger *logging.Logger) *Manager {
	return &Manager{
		provider: provider,
		store:    store,
		session:  session,
		gateway:  gateway,
		cfg:      cfg,
		logger:   logger,
		phase:    PhaseUnauthenticated,
	}
}

// Phase returns the manager's current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.phaseMu.RLock()
	defer m.phaseMu.RUnlock()
	return m.phase
}

func (m *Manager) setPhase(p Phase) {
	m.phaseMu.Lock()
	m.phase = p
	m.phaseMu.Unlock()
}

// SetOnRefreshExhausted sets a callback fired when consecutive refresh
// failures reach the configured threshold. Must be called before
// StartRefresh.
func (m *Manager) SetOnRefreshExhausted(callback func()) {
	m.onRefreshExhausted = callback
}

// Login establishes an authenticated session.
//
// Order of attempts:
//  1. Silent login from stored credentials. Any failure here is logged
//     and falls through; it is never fatal.
//  2. Interactive sign-in with email/password. Credential rejection or
//     an unsupported challenge kind is fatal.
//  3. If the provider issues a custom challenge, a code is requested
//     and the challenge gateway collects submissions until one is
//     accepted (bounded by MaxCodeAttempts if configured).
//
// On success the session holds the fresh triple and the credential
// store has been updated (store failures are logged, not fatal).
func (m *Manager) Login(ctx context.Context) error {
	m.setPhase(PhaseAuthenticating)

	if m.silentLogin(ctx) {
		m.setPhase(PhaseAuthenticated)
		return nil
	}

	m.logger.Info("interactive sign-in required")

	result, err := m.provider.SignIn(ctx, m.cfg.Email, m.cfg.Password)
	if err != nil {
		m.setPhase(PhaseUnauthenticated)
		if errors.Is(err, ErrBadCredentials) {
			return fmt.Errorf("sign-in failed, check email and password: %w", err)
		}
		return fmt.Errorf("sign-in failed: %w", err)
	}

	if result.Tokens != nil {
		// No challenge issued for this account.
		m.logger.Info("signed in without challenge")
		m.finish(*result.Tokens)
		return nil
	}

	challenge := result.Challenge
	if challenge.Kind != ChallengeKindCustom {
		m.setPhase(PhaseUnauthenticated)
		return fmt.Errorf("%w: %s", ErrUnsupportedChallenge, challenge.Kind)
	}

	return m.runChallenge(ctx, challenge)
}

// silentLogin attempts to establish a session from stored credentials.
// Returns true on success. Never fatal: every failure logs and returns
// false so the caller proceeds to interactive login.
func (m *Manager) silentLogin(ctx context.Context) bool {
	stored, err := m.store.Load()
	if err != nil {
		m.logger.Warn("could not read credential store", "error", err)
		return false
	}
	if stored == nil || stored.RefreshToken == "" {
		m.logger.Debug("no stored credentials, skipping silent login")
		return false
	}

	m.logExpiry("cached access token", stored.AccessToken)

	fresh, err := m.provider.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		m.logger.Warn("silent login with cached tokens failed, reauthenticating", "error", err)
		return false
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = stored.RefreshToken
	}
	m.finish(*fresh)
	m.logger.Info("silent login succeeded")
	return true
}

// runChallenge drives the custom challenge: request a code delivery,
// then loop over gateway submissions until the provider accepts one.
func (m *Manager) runChallenge(ctx context.Context, challenge *ChallengeSession) error {
	result, err := m.provider.AnswerChallenge(ctx, challenge, answerGenerateCode)
	if err != nil {
		m.setPhase(PhaseUnauthenticated)
		return fmt.Errorf("requesting verification code: %w", err)
	}
	if result.Tokens != nil {
		m.finish(*result.Tokens)
		return nil
	}
	challenge = result.Challenge

	m.logger.Info("verification code sent, waiting for input")
	m.setPhase(PhaseAwaitingCode)

	if err := m.gateway.Start(); err != nil {
		m.setPhase(PhaseUnauthenticated)
		return fmt.Errorf("starting challenge gateway: %w", err)
	}

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			m.stopGateway()
			m.setPhase(PhaseUnauthenticated)
			return fmt.Errorf("login cancelled: %w", ctx.Err())

		case sub := <-m.gateway.Submissions():
			attempts++
			tokens, next := m.verifyCode(ctx, challenge, sub.Code)
			if next != nil {
				challenge = next
			}

			accepted := tokens != nil
			sub.Verdict <- accepted

			if accepted {
				m.logger.Info("verification code accepted")
				m.finish(*tokens)
				m.stopGateway()
				return nil
			}

			m.logger.Warn("verification code rejected", "attempt", attempts)
			if m.cfg.MaxCodeAttempts > 0 && attempts >= m.cfg.MaxCodeAttempts {
				m.stopGateway()
				m.setPhase(PhaseUnauthenticated)
				return fmt.Errorf("%w: %d attempts", ErrChallengeAttemptsExceeded, attempts)
			}
		}
	}
}

// verifyCode submits one code. Returns the tokens on acceptance, or
// the rotated challenge session on rejection so the next attempt
// carries a valid continuation.
func (m *Manager) verifyCode(ctx context.Context, challenge *ChallengeSession, code string) (*Tokens, *ChallengeSession) {
	result, err := m.provider.AnswerChallenge(ctx, challenge, answerVerifyCodePrefix+code)
	if err != nil {
		if !errors.Is(err, ErrChallengeRejected) {
			m.logger.Warn("challenge answer failed", "error", err)
		}
		return nil, nil
	}

	if result.Tokens != nil {
		return result.Tokens, nil
	}
	return nil, result.Challenge
}

// finish installs the tokens, persists them, and marks the session
// authenticated. Persistence failure is non-fatal: the session works
// for this run, only the next restart loses the warm start.
func (m *Manager) finish(tokens Tokens) {
	m.session.SetTokens(tokens)

	if err := m.store.Save(&tokens); err != nil {
		m.logger.Warn("could not persist credentials", "error", err)
	}

	m.setPhase(PhaseAuthenticated)
}

func (m *Manager) stopGateway() {
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.gateway.Stop(stopCtx); err != nil {
		m.logger.Warn("challenge gateway shutdown", "error", err)
	}
}

// StartRefresh launches the periodic session refresh loop. It runs
// until ctx is cancelled.
//
// A failed refresh keeps the previous tokens in place and increments a
// consecutive-failure counter; when the counter reaches the configured
// threshold the refresh-exhausted callback fires once per streak.
func (m *Manager) StartRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.refreshOnce(ctx)
			}
		}
	}()
}

// refreshOnce performs a single refresh attempt.
func (m *Manager) refreshOnce(ctx context.Context) {
	current := m.session.Tokens()
	if current.RefreshToken == "" {
		m.logger.Warn("refresh skipped, no refresh token held")
		return
	}

	fresh, err := m.provider.Refresh(ctx, current.RefreshToken)
	if err != nil {
		m.failureMu.Lock()
		m.refreshFailures++
		failures := m.refreshFailures
		m.failureMu.Unlock()

		m.logger.Error("session refresh failed, keeping previous tokens",
			"error", err,
			"consecutive_failures", failures,
		)

		if m.cfg.ReauthAfterFailures > 0 && failures == m.cfg.ReauthAfterFailures && m.onRefreshExhausted != nil {
			m.onRefreshExhausted()
		}
		return
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = current.RefreshToken
	}
	m.session.SetTokens(*fresh)

	if err := m.store.Save(fresh); err != nil {
		m.logger.Warn("could not persist refreshed credentials", "error", err)
	}

	m.failureMu.Lock()
	m.refreshFailures = 0
	m.failureMu.Unlock()

	m.logExpiry("refreshed access token", fresh.AccessToken)
	m.logger.Debug("session refreshed")
}

// logExpiry logs the expiry of a JWT without verifying its signature.
// Inspection only: the provider remains the authority on validity.
func (m *Manager) logExpiry(label, raw string) {
	if raw == "" {
		return
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		m.logger.Debug("could not inspect token expiry", "token", label, "error", err)
		return
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}

	m.logger.Debug("token expiry",
		"token", label,
		"expires_at", exp.Time.Format(time.RFC3339),
		"expires_in", time.Until(exp.Time).Round(time.Second).String(),
	)
}

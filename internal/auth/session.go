package auth

import "sync"

// Session holds the live credential triple for the bridge.
//
// It is a single owned object: the Manager is the only writer, the
// cloud client and refresh loop read from it concurrently. Tokens are
// replaced wholesale so readers never observe a half-updated triple.
type Session struct {
	mu     sync.RWMutex
	tokens Tokens
}

// NewSession creates a session, optionally seeded with stored tokens.
// A nil seed produces an empty (unauthenticated) session.
func NewSession(seed *Tokens) *Session {
	s := &Session{}
	if seed != nil {
		s.tokens = *seed
	}
	return s
}

// Bearer returns the token to present as the Authorization bearer on
// cloud API requests. Empty until login completes.
func (s *Session) Bearer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

// Tokens returns a copy of the current credential triple.
func (s *Session) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// SetTokens replaces the credential triple wholesale.
func (s *Session) SetTokens(tokens Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
}

// Authenticated reports whether the session holds a usable bearer token.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken != ""
}

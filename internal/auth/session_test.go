package auth

import (
	"sync"
	"testing"
)

func TestSessionBearerUsesAccessToken(t *testing.T) {
	s := NewSession(&Tokens{
		IDToken:      "id",
		AccessToken:  "access",
		RefreshToken: "refresh",
	})

	if got := s.Bearer(); got != "access" {
		t.Errorf("Bearer() = %q, want %q", got, "access")
	}
}

func TestSessionEmptyUntilSet(t *testing.T) {
	s := NewSession(nil)

	if s.Authenticated() {
		t.Error("empty session should not report authenticated")
	}
	if got := s.Bearer(); got != "" {
		t.Errorf("Bearer() on empty session = %q, want empty", got)
	}

	s.SetTokens(Tokens{AccessToken: "access"})
	if !s.Authenticated() {
		t.Error("session should report authenticated after SetTokens")
	}
}

func TestSessionWholesaleReplacement(t *testing.T) {
	s := NewSession(&Tokens{IDToken: "id1", AccessToken: "a1", RefreshToken: "r1"})

	s.SetTokens(Tokens{IDToken: "id2", AccessToken: "a2", RefreshToken: "r2"})

	got := s.Tokens()
	want := Tokens{IDToken: "id2", AccessToken: "a2", RefreshToken: "r2"}
	if got != want {
		t.Errorf("Tokens() = %+v, want %+v", got, want)
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := NewSession(&Tokens{AccessToken: "initial"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetTokens(Tokens{AccessToken: "updated", RefreshToken: "r"})
		}()
		go func() {
			defer wg.Done()
			_ = s.Bearer()
		}()
	}
	wg.Wait()

	if got := s.Bearer(); got != "updated" {
		t.Errorf("Bearer() after concurrent writes = %q, want %q", got, "updated")
	}
}

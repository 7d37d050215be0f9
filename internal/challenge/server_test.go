package challenge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/halo-bridge/internal/infrastructure/logging"
)

func newTestServer() (*Server, *httptest.Server) {
	s := NewServer(0, 10*time.Millisecond, logging.Default())
	ts := httptest.NewServer(s.buildRouter())
	return s, ts
}

func TestFormPage(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
}

func TestFormPageShowsError(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/?error=bad+code")
	if err != nil {
		t.Fatalf("GET /?error: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	if !strings.Contains(string(buf[:n]), "not accepted") {
		t.Error("error page should contain the rejection notice")
	}
}

func TestSubmitAcceptedRedirectsToSuccess(t *testing.T) {
	s, ts := newTestServer()
	defer ts.Close()

	// Play the auth manager: accept the first submission.
	go func() {
		sub := <-s.Submissions()
		if sub.Code != "123456" {
			t.Errorf("submission code = %q, want 123456", sub.Code)
		}
		sub.Verdict <- true
	}()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.PostForm(ts.URL+"/submitmfa", url.Values{"code": {"123456"}})
	if err != nil {
		t.Fatalf("POST /submitmfa: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/success" {
		t.Errorf("Location = %q, want /success", loc)
	}
}

func TestSubmitRejectedRedirectsToForm(t *testing.T) {
	s, ts := newTestServer()
	defer ts.Close()

	go func() {
		sub := <-s.Submissions()
		sub.Verdict <- false
	}()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.PostForm(ts.URL+"/submitmfa", url.Values{"code": {"000000"}})
	if err != nil {
		t.Fatalf("POST /submitmfa: %v", err)
	}
	defer resp.Body.Close()

	if loc := resp.Header.Get("Location"); loc != "/?error=bad+code" {
		t.Errorf("Location = %q, want /?error=bad+code", loc)
	}
}

func TestSubmitEmptyCodeRejectedWithoutSubmission(t *testing.T) {
	s, ts := newTestServer()
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.PostForm(ts.URL+"/submitmfa", url.Values{"code": {""}})
	if err != nil {
		t.Fatalf("POST /submitmfa: %v", err)
	}
	defer resp.Body.Close()

	if loc := resp.Header.Get("Location"); loc != "/?error=bad+code" {
		t.Errorf("Location = %q, want /?error=bad+code", loc)
	}

	select {
	case sub := <-s.Submissions():
		t.Errorf("empty code produced a submission: %+v", sub)
	default:
	}
}

func TestStartAndStop(t *testing.T) {
	s := NewServer(0, 10*time.Millisecond, logging.Default())

	// Port 0 binds an ephemeral port; Start must not error.
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

package challenge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/halo-bridge/internal/auth"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/logging"
)

// Server timeouts.
const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second

	// shutdownTimeout bounds the graceful listener shutdown.
	shutdownTimeout = 5 * time.Second
)

// Server is the temporary HTTP surface for collecting a verification
// code from the user during interactive login.
//
// It implements auth.Gateway. Each submitted code is handed to the
// auth manager as a Submission; the HTTP handler blocks on the verdict
// so the browser is redirected according to the outcome of this exact
// attempt: /success on acceptance, back to the form with an error
// indicator on rejection.
//
// The server exists only for the duration of one login attempt. Stop
// lingers for the configured grace window so the final redirect lands
// before the listener closes.
type Server struct {
	port   int
	grace  time.Duration
	logger *logging.Logger

	server      *http.Server
	submissions chan auth.Submission
}

// NewServer creates a challenge server on the given port.
//
// Parameters:
//   - port: TCP port to listen on (all interfaces)
//   - grace: how long Stop waits before closing the listener
//   - logger: structured logger
func NewServer(port int, grace time.Duration, logger *logging.Logger) *Server {
	return &Server{
		port:        port,
		grace:       grace,
		logger:      logger,
		submissions: make(chan auth.Submission),
	}
}

// Start begins listening. The listener is bound synchronously so a
// port conflict surfaces here rather than in a background goroutine.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding challenge server to %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("challenge server error", "error", err)
		}
	}()

	s.logger.Info("verification code server listening",
		"url", fmt.Sprintf("http://<bridge-host>:%d/", s.port),
	)

	return nil
}

// Submissions streams codes submitted through the web form.
func (s *Server) Submissions() <-chan auth.Submission {
	return s.submissions
}

// Stop shuts the server down after the grace window.
//
// The grace wait lets the browser follow the final /success redirect
// before the listener disappears. A cancelled ctx skips the wait.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	select {
	case <-time.After(s.grace):
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down challenge server: %w", err)
	}
	return nil
}

// buildRouter assembles the three challenge routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleForm)
	r.Get("/success", s.handleSuccess)
	r.Post("/submitmfa", s.handleSubmit)

	return r
}

// handleForm serves the code entry form. A non-empty "error" query
// parameter renders the rejection notice above the form.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("error") != "" {
		fmt.Fprint(w, formPageWithError)
		return
	}
	fmt.Fprint(w, formPage)
}

// handleSuccess serves the confirmation page.
func (s *Server) handleSuccess(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, successPage)
}

// handleSubmit forwards the code to the auth manager and blocks until
// the provider's verdict arrives.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	code := r.PostFormValue("code")
	if code == "" {
		http.Redirect(w, r, "/?error=bad+code", http.StatusFound)
		return
	}

	sub := auth.Submission{
		Code:    code,
		Verdict: make(chan bool, 1),
	}

	select {
	case s.submissions <- sub:
	case <-r.Context().Done():
		return
	}

	select {
	case accepted := <-sub.Verdict:
		if accepted {
			http.Redirect(w, r, "/success", http.StatusFound)
		} else {
			http.Redirect(w, r, "/?error=bad+code", http.StatusFound)
		}
	case <-r.Context().Done():
	}
}

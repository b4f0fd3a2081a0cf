package checkout

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Return is what the processor redirected back with.
type Return struct {
	URL       string
	Cancelled bool
}

// CallbackServer listens locally for the processor's return redirect.
// The backend's success URL should point at /payment/success and its cancel
// URL at /payment/cancel on this server.
type CallbackServer struct {
	addr   string
	logger zerolog.Logger

	srv      *http.Server
	listener net.Listener
	returns  chan Return
	once     sync.Once
}

// NewCallbackServer prepares a server for addr (host:port, port 0 picks one).
func NewCallbackServer(addr string, logger zerolog.Logger) *CallbackServer {
	return &CallbackServer{
		addr:    addr,
		logger:  logger,
		returns: make(chan Return, 1),
	}
}

// Start binds the listener and serves in the background.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("callback server stopped")
		}
	}()
	s.logger.Debug().Str("addr", ln.Addr().String()).Msg("callback server listening")
	return nil
}

// BaseURL is the server's root, e.g. http://127.0.0.1:8765.
func (s *CallbackServer) BaseURL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// Wait blocks until the processor redirects back or ctx is done.
func (s *CallbackServer) Wait(ctx context.Context) (Return, error) {
	select {
	case r := <-s.returns:
		return r, nil
	case <-ctx.Done():
		return Return{}, ctx.Err()
	}
}

// Shutdown stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *CallbackServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/payment/success", func(w http.ResponseWriter, req *http.Request) {
		s.deliver(Return{URL: s.BaseURL() + req.URL.RequestURI()})
		writePage(w, "Payment received. You can close this tab and return to the terminal.")
	})
	r.Get("/payment/cancel", func(w http.ResponseWriter, req *http.Request) {
		s.deliver(Return{URL: s.BaseURL() + req.URL.RequestURI(), Cancelled: true})
		writePage(w, "Payment cancelled. Your cart is unchanged.")
	})
	return r
}

// deliver keeps only the first return; later hits are ignored.
func (s *CallbackServer) deliver(r Return) {
	s.once.Do(func() { s.returns <- r })
}

func writePage(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, msg)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("url", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", time.Since(start)).
				Msg("request completed")
		})
	}
}

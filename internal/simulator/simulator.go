// Package simulator is a scripted stand-in for the recognition backend.
// It implements the session REST contract with deterministic behavior so
// the client stack can be exercised without cameras or a real pipeline.
package simulator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkolarik/gesture-gate/internal/authapi"
)

// Decision is the scripted terminal outcome of every session.
type Decision string

const (
	DecideAccept Decision = "accept"
	DecideReject Decision = "reject"
	DecideLock   Decision = "lock"
)

// Script controls how simulated sessions behave.
type Script struct {
	RequiredSequence []string      // default Open_Palm, Victory, Thumb_Up
	FramesPerGesture int           // frames before each gesture registers, default 3
	Decision         Decision      // default accept
	Confidence       float64       // reported fused score, default 0.93
	LockoutDuration  time.Duration // default 5m, used when Decision is lock
	MaxAttempts      int           // reported in lockout info, default 5
	TimeLimit        time.Duration // session timeout, default 45s
	SessionTTL       time.Duration // idle sessions are cleaned after this, default 2m
	Users            []authapi.User
}

func (s Script) withDefaults() Script {
	if len(s.RequiredSequence) == 0 {
		s.RequiredSequence = []string{"Open_Palm", "Victory", "Thumb_Up"}
	}
	if s.FramesPerGesture <= 0 {
		s.FramesPerGesture = 3
	}
	if s.Decision == "" {
		s.Decision = DecideAccept
	}
	if s.Confidence == 0 {
		s.Confidence = 0.93
	}
	if s.LockoutDuration <= 0 {
		s.LockoutDuration = 5 * time.Minute
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 5
	}
	if s.TimeLimit <= 0 {
		s.TimeLimit = 45 * time.Second
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = 2 * time.Minute
	}
	if len(s.Users) == 0 {
		s.Users = []authapi.User{
			{ID: "alice", Name: "Alice", Enrolled: true},
			{ID: "bob", Name: "Bob", Enrolled: true},
		}
	}
	return s
}

// Simulator holds the session table and the script.
type Simulator struct {
	script Script
	router *chi.Mux

	mu       sync.Mutex
	sessions map[string]*simSession
}

// New creates a simulator with the chi middleware stack and routes wired.
func New(script Script) *Simulator {
	s := &Simulator{
		script:   script.withDefaults(),
		sessions: make(map[string]*simSession),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))

	r.Route("/authentication", func(r chi.Router) {
		r.Post("/verify/start", s.handleStart(authapi.ModeVerify))
		r.Post("/identify/start", s.handleStart(authapi.ModeIdentify))
		r.Post("/enroll/start", s.handleStart(authapi.ModeEnroll))
		r.Post("/{sessionID}/process-frame", s.handleProcessFrame)
		r.Get("/{sessionID}/status", s.handleStatus)
		r.Post("/{sessionID}/cancel", s.handleCancel)
		r.Get("/users", s.handleUsers)
	})
	s.router = r

	return s
}

// Router returns the handler for mounting in tests.
func (s *Simulator) Router() http.Handler { return s.router }

// Serve runs the simulator as an HTTP server until ctx is canceled.
func (s *Simulator) Serve(ctx context.Context, host string, port int) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Simulated backend listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down simulator: %w", err)
		}
		return nil
	}
}

// Package web serves the shopping list over HTTP: a JSON API driving one
// list controller per browser session, plus the static front end.
package web

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"shoplist/internal/auth"
	"shoplist/internal/logging"
	"shoplist/internal/store"
)

const (
	// DefaultIdleTimeout is how long an unused session is kept.
	DefaultIdleTimeout = 24 * time.Hour

	sweepInterval   = time.Hour
	shutdownTimeout = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	// Store backs every session. Required.
	Store store.ItemStore

	// FamilyPassword is the shared secret checked by POST /api/login. Required.
	FamilyPassword string

	// StaticDir holds the front end. Empty disables static serving.
	StaticDir string

	// SessionSecret signs session cookies. Empty generates a random secret,
	// which logs every browser out when the process restarts.
	SessionSecret []byte

	Logger      *log.Logger
	IdleTimeout time.Duration
	Now         func() time.Time
}

// Server is the HTTP front of the shopping list.
type Server struct {
	echo     *echo.Echo
	sessions *sessions
	logger   *log.Logger
}

// New builds a Server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("web: store is nil")
	}
	if err := auth.ValidateFamilyPassword(opts.FamilyPassword); err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	secret := opts.SessionSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("web: session secret: %w", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		logger: opts.Logger,
		sessions: &sessions{
			m:        make(map[string]*session),
			secret:   secret,
			password: opts.FamilyPassword,
			store:    opts.Store,
			logger:   opts.Logger,
			now:      opts.Now,
			idle:     opts.IdleTimeout,
		},
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.logger.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("request")
			return nil
		},
	}))

	e.GET("/healthz", healthz)
	s.register(e.Group("/api", s.withSession))

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err != nil {
			s.logger.WithField("dir", opts.StaticDir).Warn("static directory not found, serving API only")
		} else {
			e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
				Root:  opts.StaticDir,
				Index: "index.html",
				HTML5: true,
				Skipper: func(c echo.Context) bool {
					p := c.Request().URL.Path
					return strings.HasPrefix(p, "/api/") || p == "/healthz"
				},
			}))
		}
	}

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until ctx is cancelled, sweeping idle sessions in
// the background.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.sweepLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("listening")
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.sweep(); n > 0 {
				s.logger.WithField("count", n).Debug("idle sessions removed")
			}
		}
	}
}

// withSession attaches the caller's session and holds its lock for the
// duration of the request. The cookie is refreshed with the session's
// current login state before the response is written.
func (s *Server) withSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sid, authenticated := s.sessions.parseCookie(c.Request())
		sess, err := s.sessions.get(c.Request().Context(), sid, authenticated)
		if err != nil {
			return err
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()

		c.Response().Before(func() {
			cookie, err := s.sessions.cookie(sess.id, sess.ctrl.Session().Authenticated)
			if err != nil {
				s.logger.WithError(err).Error("signing session cookie failed")
				return
			}
			c.SetCookie(cookie)
		})
		c.Set(sessionKey, sess)
		err = next(c)
		s.sessions.settle(sess)
		return err
	}
}

func healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

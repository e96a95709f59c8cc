package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"shoplist/internal/auth"
	"shoplist/internal/list"
	"shoplist/internal/output"
	"shoplist/internal/store"
)

// CookieName is the session cookie set by the server.
const CookieName = "shoplist_session"

// session is one browser's list. Its mutex serializes the events of that
// browser; requests of different browsers run in parallel.
type session struct {
	mu       sync.Mutex
	id       string
	ctrl     *list.Controller
	screen   *output.Screen
	lastSeen time.Time
}

type sessionClaims struct {
	SID  string `json:"sid"`
	Auth bool   `json:"auth"`
	jwt.RegisteredClaims
}

// sessions owns the per-browser controllers.
type sessions struct {
	mu       sync.Mutex
	m        map[string]*session
	secret   []byte
	password string
	store    store.ItemStore
	logger   log.FieldLogger
	now      func() time.Time
	idle     time.Duration
}

func (s *sessions) parseCookie(r *http.Request) (sid string, authenticated bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims sessionClaims
	_, err = parser.ParseWithClaims(cookie.Value, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || claims.SID == "" {
		return "", false
	}
	return claims.SID, claims.Auth
}

func (s *sessions) cookie(sid string, authenticated bool) (*http.Cookie, error) {
	now := s.now()
	claims := sessionClaims{
		SID:  sid,
		Auth: authenticated,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.idle)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.idle / time.Second),
	}, nil
}

// get returns the session for sid. Only logged-in sessions are kept between
// requests; anything else gets a fresh session that settle stores once it
// logs in. A cookie with authenticated=true restores the family login and
// loads items.
func (s *sessions) get(ctx context.Context, sid string, authenticated bool) (*session, error) {
	s.mu.Lock()
	if sid != "" {
		if sess, ok := s.m[sid]; ok {
			sess.lastSeen = s.now()
			s.mu.Unlock()
			return sess, nil
		}
	} else {
		sid = uuid.NewString()
	}
	s.mu.Unlock()

	gate, err := auth.NewSharedSecretGate(s.password, auth.NewMemoryFlag(authenticated))
	if err != nil {
		return nil, err
	}
	screen := output.NewScreen()
	sess := &session{
		id:     sid,
		screen: screen,
		ctrl: list.New(list.Options{
			Store:    s.store,
			Gate:     gate,
			Renderer: screen,
			Logger:   s.logger.WithField("sid", sid[:min(8, len(sid))]),
		}),
		lastSeen: s.now(),
	}
	if !authenticated {
		return sess, nil
	}
	if _, err := sess.ctrl.Restore(ctx); err != nil {
		s.logger.WithError(err).Warn("restoring session failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[sid]; ok {
		return existing, nil
	}
	s.m[sid] = sess
	return sess, nil
}

// settle stores sess after a request that left it logged in and forgets it
// after one that logged it out. The caller holds sess.mu.
func (s *sessions) settle(sess *session) {
	authenticated := sess.ctrl.Session().Authenticated
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.m[sess.id]
	switch {
	case authenticated && !ok:
		s.m[sess.id] = sess
	case !authenticated && ok && existing == sess:
		delete(s.m, sess.id)
	}
}

// sweep drops sessions idle for longer than the idle timeout.
// It returns the number of sessions removed.
func (s *sessions) sweep() int {
	cutoff := s.now().Add(-s.idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sid, sess := range s.m {
		if sess.lastSeen.Before(cutoff) {
			delete(s.m, sid)
			n++
		}
	}
	return n
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

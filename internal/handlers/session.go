package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/swelljoe/wthr.lol/internal/dashboard"
	"github.com/swelljoe/wthr.lol/internal/metrics"
	"github.com/swelljoe/wthr.lol/internal/page"
)

// SessionCookie names the cookie that carries the session id.
const SessionCookie = "wthr_session"

// Session is one browser's dashboard.
type Session struct {
	ID         string
	Controller *dashboard.Controller
	Document   *page.Document
	Position   *page.PositionReport
}

// SessionFactory builds the controller for a new session.
type SessionFactory func(doc *page.Document, geo *page.PositionReport) (*dashboard.Controller, error)

// Sessions keeps live sessions in memory. A session expires after ttl without
// requests; expiry closes its controller.
type Sessions struct {
	items   *cache.Cache
	ttl     time.Duration
	factory SessionFactory
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSessions creates an empty store.
func NewSessions(ttl time.Duration, factory SessionFactory, m *metrics.Metrics, logger *slog.Logger) *Sessions {
	s := &Sessions{
		items:   cache.New(ttl, ttl/2),
		ttl:     ttl,
		factory: factory,
		metrics: m,
		logger:  logger,
	}
	s.items.OnEvicted(func(id string, v any) {
		sess, ok := v.(*Session)
		if !ok {
			return
		}
		sess.Controller.Close()
		s.metrics.SessionClosed()
		s.logger.Debug("session closed", "session", id)
	})
	return s
}

// Lookup returns the session named by the request cookie and extends its
// lifetime.
func (s *Sessions) Lookup(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	v, ok := s.items.Get(c.Value)
	if !ok {
		return nil, false
	}
	sess := v.(*Session)
	s.items.Set(sess.ID, sess, cache.DefaultExpiration)
	return sess, true
}

// Ensure returns the request's session, creating one and setting the cookie
// when there is none.
func (s *Sessions) Ensure(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if sess, ok := s.Lookup(r); ok {
		return sess, nil
	}

	doc := page.NewDocument()
	geo := page.NewPositionReport()
	ctrl, err := s.factory(doc, geo)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	sess := &Session{
		ID:         uuid.NewString(),
		Controller: ctrl,
		Document:   doc,
		Position:   geo,
	}
	s.items.Set(sess.ID, sess, cache.DefaultExpiration)
	s.metrics.SessionOpened()
	s.logger.Debug("session opened", "session", sess.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// Count returns the number of live sessions.
func (s *Sessions) Count() int {
	return s.items.ItemCount()
}

// Close ends every session.
func (s *Sessions) Close() {
	for id := range s.items.Items() {
		s.items.Delete(id)
	}
}

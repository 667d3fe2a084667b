package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sunbk201/appbundle/internal/asset"
	"github.com/sunbk201/appbundle/internal/intercept"
	"github.com/sunbk201/appbundle/internal/route"
	"github.com/sunbk201/appbundle/internal/statistics"
)

type Options struct {
	Layout       route.Layout
	MatchTimeout time.Duration
	MaxSessions  int
	TTL          time.Duration
	// Presets are registered, in order, on every new session.
	Presets []intercept.AddRule
}

// Store holds the live sessions. A session expires TTL after creation and
// the least recently used one is dropped once MaxSessions is reached.
type Store struct {
	opts     Options
	resolver asset.Resolver
	recorder *statistics.Recorder
	sessions *expirable.LRU[string, *Session]
}

// NewStore checks the presets against a scratch table and returns an empty
// store.
func NewStore(opts Options, resolver asset.Resolver, recorder *statistics.Recorder) (*Store, error) {
	s := &Store{
		opts:     opts,
		resolver: resolver,
		recorder: recorder,
	}
	if _, err := s.newTable(); err != nil {
		return nil, err
	}

	// runs under the cache lock for deletes, evictions and expiry alike
	s.sessions = expirable.NewLRU[string, *Session](opts.MaxSessions, func(id string, _ *Session) {
		s.recorder.SessionClosed()
		slog.Debug("session released", slog.String("id", id))
	}, opts.TTL)
	return s, nil
}

func (s *Store) newTable() (*route.Table, error) {
	table, err := route.NewTable(s.opts.Layout, route.WithMatchTimeout(s.opts.MatchTimeout))
	if err != nil {
		return nil, err
	}
	for i, p := range s.opts.Presets {
		if err := intercept.Execute(table, p); err != nil {
			return nil, fmt.Errorf("preset alias %d (%s): %w", i, p.Match, err)
		}
	}
	return table, nil
}

// Create starts a session whose table holds the bundle rule followed by the
// preset aliases.
func (s *Store) Create() (*Session, error) {
	table, err := s.newTable()
	if err != nil {
		return nil, err
	}
	nav := &intercept.NavigationRecorder{}
	sess := &Session{
		ID:          uuid.NewString(),
		Created:     time.Now(),
		nav:         nav,
		interceptor: intercept.New(table, nav, s.resolver, s.recorder),
	}
	s.recorder.SessionOpened()
	s.sessions.Add(sess.ID, sess)

	slog.Info("session created", slog.Any("session", sess))
	return sess, nil
}

// Get returns a live session and refreshes its recency.
func (s *Store) Get(id string) (*Session, bool) {
	return s.sessions.Get(id)
}

// Delete ends a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	ok := s.sessions.Remove(id)
	if ok {
		slog.Info("session deleted", slog.String("id", id))
	}
	return ok
}

// Len counts the sessions Get would still return. Expired sessions linger
// in the cache until its cleanup pass, so the cache's own Len overcounts.
func (s *Store) Len() int {
	n := 0
	// Values pads the skipped expired entries with nil
	for _, sess := range s.sessions.Values() {
		if sess != nil {
			n++
		}
	}
	return n
}

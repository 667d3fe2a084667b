package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sunbk201/appbundle/internal/asset"
	"github.com/sunbk201/appbundle/internal/intercept"
	"github.com/sunbk201/appbundle/internal/route"
)

// Session is one browsing context with its own route table.
type Session struct {
	ID      string
	Created time.Time

	mu          sync.Mutex
	nav         *intercept.NavigationRecorder
	interceptor *intercept.Interceptor
}

// Navigate runs a navigation start and reports the resulting redirect, if
// any. Navigations of one session are serialized.
func (s *Session) Navigate(rawURL string) intercept.Navigation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interceptor.OnNavigationStart(rawURL)
	return s.nav.Take()
}

func (s *Session) Resource(rawURL string) (*asset.Resource, bool) {
	return s.interceptor.OnResourceRequest(rawURL)
}

func (s *Session) Exec(cmd intercept.Command) error {
	return s.interceptor.Dispatch(cmd)
}

// Rules returns the session's rules in evaluation order.
func (s *Session) Rules() []*route.Rule {
	return s.interceptor.Table().Rules()
}

func (s *Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", s.ID),
		slog.Time("created", s.Created),
		slog.Int("rules", s.interceptor.Table().Len()),
	)
}

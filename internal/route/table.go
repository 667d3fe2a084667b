package route

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	Rule *Rule
	URL  string
}

// Bundle reports whether the built-in bundle rule produced the rewrite.
func (r Resolution) Bundle() bool {
	return r.Rule != nil && r.Rule.Bundle()
}

func (r Resolution) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("rule", r.Rule),
		slog.String("url", r.URL),
	)
}

type resolveOptions struct {
	skipBundle bool
}

type ResolveOption func(*resolveOptions)

// SkipBundle leaves the bundle rule out of the scan. Used for URLs that
// already went through a bundle rewrite.
func SkipBundle() ResolveOption {
	return func(o *resolveOptions) {
		o.skipBundle = true
	}
}

// Table is an ordered set of rewrite rules. The most recently added rule
// has the highest precedence; the bundle rule, always first, the lowest.
type Table struct {
	mu       sync.RWMutex
	rules    []*Rule
	bundle   *Rule
	expander Expander
	timeout  time.Duration
}

type TableOption func(*Table)

// WithMatchTimeout bounds the time a single regex evaluation may take.
func WithMatchTimeout(d time.Duration) TableOption {
	return func(t *Table) {
		t.timeout = d
	}
}

func NewTable(layout Layout, opts ...TableOption) (*Table, error) {
	t := &Table{expander: layout.Expander()}
	for _, opt := range opts {
		opt(t)
	}

	scheme := regexp2.Escape(layout.Scheme + ":///")
	bundle, err := NewRule("^"+scheme+".*", "^"+scheme, escapeReplacement(layout.WWWPrefix), true, t.timeout)
	if err != nil {
		return nil, fmt.Errorf("bundle rule: %w", err)
	}
	bundle.bundle = true
	t.bundle = bundle

	t.Reset()
	return t, nil
}

// Reset drops every caller supplied rule, leaving only the bundle rule.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = []*Rule{t.bundle}
}

// AddRule validates and appends a caller supplied rule. The placeholder is
// expanded in all three strings first. A rule whose expanded replacement
// matches its own match pattern is refused with ErrRecursiveRule.
func (t *Table) AddRule(match, replace, replacement string, redirect bool) error {
	rule, err := NewRule(
		t.expander.Pattern(match),
		t.expander.Pattern(replace),
		t.expander.Replacement(replacement),
		redirect,
		t.timeout,
	)
	if err != nil {
		return err
	}

	literal := t.expander.Literal(replacement)
	recursive, err := rule.Matches(literal)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOperationFailed, err)
	}
	if recursive {
		return fmt.Errorf("%w: replacement %q matches %q", ErrRecursiveRule, literal, rule.Match())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// copy on write so a snapshot taken by Resolve is never appended into
	rules := make([]*Rule, len(t.rules), len(t.rules)+1)
	copy(rules, t.rules)
	t.rules = append(rules, rule)
	return nil
}

// Resolve finds the highest precedence rule matching rawURL and rewrites
// the normalized URL with it. An empty URL never matches.
func (t *Table) Resolve(rawURL string, opts ...ResolveOption) (Resolution, bool) {
	if rawURL == "" {
		return Resolution{}, false
	}
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	t.mu.RLock()
	rules := t.rules
	t.mu.RUnlock()

	url := Normalize(rawURL)
	for i := len(rules) - 1; i >= 0; i-- {
		rule := rules[i]
		if o.skipBundle && rule.Bundle() {
			continue
		}
		matched, err := rule.Matches(url)
		if err != nil {
			slog.Warn("rule.Matches", slog.Any("rule", rule), slog.String("url", url), slog.Any("error", err))
			continue
		}
		if !matched {
			continue
		}
		rewritten, err := rule.Rewrite(url)
		if err != nil {
			slog.Warn("rule.Rewrite", slog.Any("rule", rule), slog.String("url", url), slog.Any("error", err))
			continue
		}
		slog.Debug("Rule matched", slog.Any("rule", rule), slog.String("url", url), slog.String("rewritten", rewritten))
		return Resolution{Rule: rule, URL: rewritten}, true
	}
	return Resolution{}, false
}

// Rules returns the current rules in evaluation order.
func (t *Table) Rules() []*Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rules := make([]*Rule, 0, len(t.rules))
	for i := len(t.rules) - 1; i >= 0; i-- {
		rules = append(rules, t.rules[i])
	}
	return rules
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}

// BundleRule returns the built-in rule.
func (t *Table) BundleRule() *Rule {
	return t.bundle
}

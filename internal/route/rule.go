package route

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dlclark/regexp2"
)

// Rule is one URL rewrite. It never changes after creation.
type Rule struct {
	match       string
	replace     string
	replacement string
	redirect    bool
	bundle      bool

	matchRegex   *regexp2.Regexp
	replaceRegex *regexp2.Regexp
}

// NewRule compiles a rule from already expanded inputs. The match pattern is
// anchored at both ends so it has to cover the whole URL.
func NewRule(match, replace, replacement string, redirect bool, timeout time.Duration) (*Rule, error) {
	if match == "" {
		return nil, fmt.Errorf("%w: empty match pattern", ErrInvalidPattern)
	}
	if replace == "" {
		return nil, fmt.Errorf("%w: empty replace pattern", ErrInvalidPattern)
	}

	if _, err := compile(match); err != nil {
		return nil, fmt.Errorf("%w: match %q: %v", ErrInvalidPattern, match, err)
	}
	matchRegex, err := compile(`\A(?:` + match + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("%w: match %q: %v", ErrInvalidPattern, match, err)
	}
	replaceRegex, err := compile(replace)
	if err != nil {
		return nil, fmt.Errorf("%w: replace %q: %v", ErrInvalidPattern, replace, err)
	}
	if timeout > 0 {
		matchRegex.MatchTimeout = timeout
		replaceRegex.MatchTimeout = timeout
	}

	return &Rule{
		match:        match,
		replace:      replace,
		replacement:  replacement,
		redirect:     redirect,
		matchRegex:   matchRegex,
		replaceRegex: replaceRegex,
	}, nil
}

func compile(expr string) (re *regexp2.Regexp, err error) {
	// regexp2 can panic on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			re, err = nil, fmt.Errorf("regexp2.Compile: %v", r)
		}
	}()
	return regexp2.Compile(expr, regexp2.None)
}

func (r *Rule) Match() string       { return r.match }
func (r *Rule) Replace() string     { return r.replace }
func (r *Rule) Replacement() string { return r.replacement }
func (r *Rule) Redirect() bool      { return r.redirect }

// Bundle reports whether r is the built-in bundle rule of its table.
func (r *Rule) Bundle() bool { return r.bundle }

// Matches reports whether s matches the whole match pattern.
func (r *Rule) Matches(s string) (bool, error) {
	return r.matchRegex.MatchString(s)
}

// Rewrite substitutes every occurrence of the replace pattern in s.
func (r *Rule) Rewrite(s string) (string, error) {
	return r.replaceRegex.Replace(s, r.replacement, -1, -1)
}

func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"match":       r.match,
		"replace":     r.replace,
		"replacement": r.replacement,
		"redirect":    r.redirect,
		"bundle":      r.bundle,
	})
}

func (r *Rule) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("match", r.match),
		slog.String("replace", r.replace),
		slog.String("replacement", r.replacement),
		slog.Bool("redirect", r.redirect),
		slog.Bool("bundle", r.bundle),
	)
}

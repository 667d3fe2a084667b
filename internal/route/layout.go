package route

import (
	"log/slog"
	"strings"

	"github.com/dlclark/regexp2"
)

// Placeholder is expanded to the bundle www prefix inside caller supplied
// patterns and replacements.
const Placeholder = "{BUNDLE_WWW}"

const (
	DefaultScheme      = "app-bundle"
	DefaultAssetPrefix = "file:///android_asset/"
	DefaultWWWPrefix   = "file:///android_asset/www/"
)

// Layout describes where the packaged application lives.
type Layout struct {
	Scheme      string
	AssetPrefix string
	WWWPrefix   string
}

func DefaultLayout() Layout {
	return Layout{
		Scheme:      DefaultScheme,
		AssetPrefix: DefaultAssetPrefix,
		WWWPrefix:   DefaultWWWPrefix,
	}
}

func (l Layout) Expander() Expander {
	return Expander{Prefix: l.WWWPrefix}
}

func (l Layout) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("scheme", l.Scheme),
		slog.String("asset_prefix", l.AssetPrefix),
		slog.String("www_prefix", l.WWWPrefix),
	)
}

// Expander substitutes Placeholder. It is a pure text transform and runs
// before any pattern is compiled.
type Expander struct {
	Prefix string
}

// Pattern expands the placeholder as a regex-escaped literal.
func (e Expander) Pattern(s string) string {
	return strings.ReplaceAll(s, Placeholder, regexp2.Escape(e.Prefix))
}

// Literal expands the placeholder verbatim.
func (e Expander) Literal(s string) string {
	return strings.ReplaceAll(s, Placeholder, e.Prefix)
}

// Replacement expands the placeholder so that it survives substitution as
// plain text: a '$' in the prefix becomes "$$".
func (e Expander) Replacement(s string) string {
	return strings.ReplaceAll(s, Placeholder, escapeReplacement(e.Prefix))
}

func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

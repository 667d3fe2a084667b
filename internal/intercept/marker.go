package intercept

import (
	"net/url"
	"strings"
)

// Marker is the query parameter appended to URLs produced by the bundle
// rule during a navigation redirect.
const Marker = "__appbundle_rewritten"

// HasMarker reports whether raw already went through a bundle redirect.
func HasMarker(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Query().Has(Marker)
}

// AddMarker appends the marker to the query of raw, keeping the rest of the
// URL untouched.
func AddMarker(raw string) string {
	base, fragment, hasFragment := strings.Cut(raw, "#")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}
	marked := base + sep + Marker + "=1"
	if hasFragment {
		marked += "#" + fragment
	}
	return marked
}

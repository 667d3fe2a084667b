package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpander(t *testing.T) {
	e := Expander{Prefix: "file:///android_asset/www/"}

	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"pattern", e.Pattern, "^{BUNDLE_WWW}.*", "^file:///android_asset/www/.*"},
		{"literal", e.Literal, "{BUNDLE_WWW}index.html", "file:///android_asset/www/index.html"},
		{"replacement", e.Replacement, "{BUNDLE_WWW}$1", "file:///android_asset/www/$1"},
		{"repeated", e.Literal, "{BUNDLE_WWW}|{BUNDLE_WWW}", "file:///android_asset/www/|file:///android_asset/www/"},
		{"no placeholder", e.Pattern, "^custom:///.*", "^custom:///.*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.in))
		})
	}
}

func TestExpanderEscapesSpecialCharacters(t *testing.T) {
	e := Expander{Prefix: "file:///opt/app (1)/$web.d/"}

	rule, err := NewRule(e.Pattern("^{BUNDLE_WWW}.*"), e.Pattern("^{BUNDLE_WWW}"), "x", false, 0)
	require.NoError(t, err)
	ok, err := rule.Matches("file:///opt/app (1)/$web.d/index.html")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = rule.Matches("file:///opt/app (1)/$webxd/index.html")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "file:///opt/app (1)/$$web.d/", e.Replacement("{BUNDLE_WWW}"))
	assert.Equal(t, "file:///opt/app (1)/$web.d/", e.Literal("{BUNDLE_WWW}"))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "InvalidPattern", ErrorKind(ErrInvalidPattern))
	assert.Equal(t, "RecursiveRuleError", ErrorKind(ErrRecursiveRule))
	assert.Equal(t, "OperationFailed", ErrorKind(ErrOperationFailed))
	assert.Equal(t, "OperationFailed", ErrorKind(assert.AnError))
}

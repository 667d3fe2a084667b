package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbk201/appbundle/internal/config"
	"github.com/sunbk201/appbundle/internal/intercept"
	"github.com/sunbk201/appbundle/internal/route"
)

func decodeLines[T any](t *testing.T, out string) []T {
	t.Helper()
	var results []T
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var r T
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		results = append(results, r)
	}
	return results
}

func testTable(t *testing.T) *route.Table {
	t.Helper()
	table, err := route.NewTable(route.DefaultLayout())
	require.NoError(t, err)
	require.NoError(t, table.AddRule("^custom:///.*", "^custom:///", "file:///data/", false))
	return table
}

func TestWriteResolutions(t *testing.T) {
	var buf bytes.Buffer
	urls := []string{
		"app-bundle:///index.html",
		"custom:///a.js",
		"https://example.com/",
	}
	require.NoError(t, writeResolutions(&buf, testTable(t), urls))

	results := decodeLines[resolveResult](t, buf.String())
	require.Len(t, results, 3)
	assert.Equal(t, "file:///android_asset/www/index.html", results[0].Target)
	assert.True(t, results[0].Redirect)
	assert.Equal(t, "file:///data/a.js", results[1].Target)
	assert.False(t, results[1].Redirect)
	assert.False(t, results[2].Matched)
}

func TestWriteNavigations(t *testing.T) {
	marked := "file:///android_asset/www/index.html?" + intercept.Marker + "=1"

	var buf bytes.Buffer
	urls := []string{
		"app-bundle:///index.html",
		marked,
		"custom:///a.js",
		"app-bundle:///index.html?" + intercept.Marker + "=1",
	}
	require.NoError(t, writeNavigations(&buf, testTable(t), urls))

	results := decodeLines[navigationResult](t, buf.String())
	require.Len(t, results, 4)
	assert.Equal(t, intercept.Navigation{Stopped: true, LoadURL: marked}, results[0].Navigation)
	assert.Equal(t, intercept.Navigation{}, results[1].Navigation)
	// matched, but the alias does not redirect
	assert.Equal(t, intercept.Navigation{}, results[2].Navigation)
	assert.Equal(t, intercept.Navigation{}, results[3].Navigation)
	assert.Equal(t, urls[3], results[3].URL)
}

func TestSessionOptions(t *testing.T) {
	cfg := &config.Config{
		MatchTimeout: time.Second,
		Bundle: config.BundleConfig{
			Scheme:      route.DefaultScheme,
			AssetPrefix: route.DefaultAssetPrefix,
			WWWPrefix:   route.DefaultWWWPrefix,
		},
		Session: config.SessionConfig{Max: 4, TTL: time.Minute},
		Aliases: []config.Alias{{Match: "^a:.*", Replace: "^a:", Replacement: "b:", Redirect: true}},
	}

	opts := sessionOptions(cfg)
	assert.Equal(t, route.DefaultLayout(), opts.Layout)
	assert.Equal(t, time.Second, opts.MatchTimeout)
	assert.Equal(t, 4, opts.MaxSessions)
	assert.Equal(t, time.Minute, opts.TTL)
	assert.Equal(t, []intercept.AddRule{{Match: "^a:.*", Replace: "^a:", Replacement: "b:", Redirect: true}}, opts.Presets)
}

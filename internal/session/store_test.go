package session

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbk201/appbundle/internal/asset"
	"github.com/sunbk201/appbundle/internal/intercept"
	"github.com/sunbk201/appbundle/internal/route"
	"github.com/sunbk201/appbundle/internal/statistics"
)

type staticResolver map[string]string

func (r staticResolver) Resolve(uri string) (*asset.Resource, error) {
	body, ok := r[uri]
	if !ok {
		return nil, asset.ErrNotFound
	}
	return &asset.Resource{
		MIMEType: "text/plain",
		Encoding: "UTF-8",
		Size:     int64(len(body)),
		Body:     io.NopCloser(strings.NewReader(body)),
	}, nil
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Layout == (route.Layout{}) {
		opts.Layout = route.DefaultLayout()
	}
	if opts.MaxSessions == 0 {
		opts.MaxSessions = 16
	}
	store, err := NewStore(opts, staticResolver{
		"file:///android_asset/www/index.html": "<html></html>",
	}, statistics.NewRecorder(""))
	require.NoError(t, err)
	return store
}

func TestCreateGetDelete(t *testing.T) {
	store := newTestStore(t, Options{})

	sess, err := store.Create()
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, store.Len())

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	assert.True(t, store.Delete(sess.ID))
	assert.False(t, store.Delete(sess.ID))
	_, ok = store.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestNewSessionHasBundleRuleOnly(t *testing.T) {
	store := newTestStore(t, Options{})
	sess, err := store.Create()
	require.NoError(t, err)

	rules := sess.Rules()
	require.Len(t, rules, 1)
	assert.True(t, rules[0].Bundle())
}

func TestSessionNavigate(t *testing.T) {
	store := newTestStore(t, Options{})
	sess, err := store.Create()
	require.NoError(t, err)

	nav := sess.Navigate("app-bundle:///index.html")
	assert.True(t, nav.Stopped)
	assert.Equal(t, "file:///android_asset/www/index.html?"+intercept.Marker+"=1", nav.LoadURL)

	nav = sess.Navigate(nav.LoadURL)
	assert.Equal(t, intercept.Navigation{}, nav)

	nav = sess.Navigate("https://example.com/")
	assert.Equal(t, intercept.Navigation{}, nav)
}

func TestSessionResource(t *testing.T) {
	store := newTestStore(t, Options{})
	sess, err := store.Create()
	require.NoError(t, err)

	res, ok := sess.Resource("app-bundle:///index.html")
	require.True(t, ok)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))

	_, ok = sess.Resource("app-bundle:///missing.html")
	assert.False(t, ok)
}

func TestSessionIsolation(t *testing.T) {
	store := newTestStore(t, Options{})
	a, err := store.Create()
	require.NoError(t, err)
	b, err := store.Create()
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	require.NoError(t, a.Exec(intercept.AddRule{
		Match:       "^custom:///.*",
		Replace:     "^custom:///",
		Replacement: "https://example.com/",
		Redirect:    true,
	}))

	assert.Equal(t, "https://example.com/x", a.Navigate("custom:///x").LoadURL)
	assert.Equal(t, intercept.Navigation{}, b.Navigate("custom:///x"))
	assert.Len(t, a.Rules(), 2)
	assert.Len(t, b.Rules(), 1)
}

func TestPresetAliases(t *testing.T) {
	store := newTestStore(t, Options{
		Presets: []intercept.AddRule{{
			Match:       "^{BUNDLE_WWW}old/.*",
			Replace:     "^{BUNDLE_WWW}old/",
			Replacement: "{BUNDLE_WWW}new/",
			Redirect:    true,
		}},
	})
	sess, err := store.Create()
	require.NoError(t, err)
	require.Len(t, sess.Rules(), 2)

	nav := sess.Navigate("file:///android_asset/www/old/a.html")
	assert.Equal(t, "file:///android_asset/www/new/a.html", nav.LoadURL)

	require.NoError(t, sess.Exec(intercept.ClearRules{}))
	assert.Len(t, sess.Rules(), 1)
}

func TestInvalidPresetRefused(t *testing.T) {
	tests := []struct {
		name   string
		preset intercept.AddRule
		want   error
	}{
		{"invalid", intercept.AddRule{Match: "(", Replace: "x"}, route.ErrInvalidPattern},
		{"recursive", intercept.AddRule{Match: "^app-bundle:///.*", Replace: "^app-bundle:///", Replacement: "app-bundle:///x"}, route.ErrRecursiveRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(Options{
				Layout:      route.DefaultLayout(),
				MaxSessions: 1,
				Presets:     []intercept.AddRule{tt.preset},
			}, staticResolver{}, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCapacityEviction(t *testing.T) {
	store := newTestStore(t, Options{MaxSessions: 2})

	first, err := store.Create()
	require.NoError(t, err)
	_, err = store.Create()
	require.NoError(t, err)
	_, err = store.Create()
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	_, ok := store.Get(first.ID)
	assert.False(t, ok)
}

func TestSessionExpiry(t *testing.T) {
	store := newTestStore(t, Options{TTL: 50 * time.Millisecond})
	sess, err := store.Create()
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
}

func TestConcurrentNavigate(t *testing.T) {
	store := newTestStore(t, Options{})
	sess, err := store.Create()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				nav := sess.Navigate("app-bundle:///index.html")
				assert.True(t, nav.Stopped)
			}
		}()
	}
	wg.Wait()
}

func activeSessions(t *testing.T, r *statistics.Recorder) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "appbundle_session_active" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("appbundle_session_active not registered")
	return 0
}

func TestActiveGaugeFollowsEvictionAndExpiry(t *testing.T) {
	recorder := statistics.NewRecorder("")
	store, err := NewStore(Options{
		Layout:      route.DefaultLayout(),
		MaxSessions: 2,
		TTL:         30 * time.Millisecond,
	}, staticResolver{}, recorder)
	require.NoError(t, err)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		sess, err := store.Create()
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}
	assert.Equal(t, 2.0, activeSessions(t, recorder))
	assert.Equal(t, 2, store.Len())

	time.Sleep(100 * time.Millisecond)
	for _, id := range ids {
		_, ok := store.Get(id)
		assert.False(t, ok)
	}
	assert.Equal(t, 0, store.Len())
	assert.Eventually(t, func() bool {
		return activeSessions(t, recorder) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeleteUpdatesActiveGauge(t *testing.T) {
	recorder := statistics.NewRecorder("")
	store, err := NewStore(Options{Layout: route.DefaultLayout(), MaxSessions: 4}, staticResolver{}, recorder)
	require.NoError(t, err)

	sess, err := store.Create()
	require.NoError(t, err)
	assert.Equal(t, 1.0, activeSessions(t, recorder))

	require.True(t, store.Delete(sess.ID))
	assert.False(t, store.Delete(sess.ID))
	assert.Equal(t, 0.0, activeSessions(t, recorder))
}

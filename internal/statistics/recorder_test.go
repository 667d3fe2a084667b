package statistics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Resolution(OutcomeBundle, "^app-bundle:///.*", "app-bundle:///a", "file:///a")
		r.Redirect()
		r.Registration("ok")
		r.Resource(ResourceServed)
		r.SessionOpened()
		r.SessionClosed()
	})
}

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder("")

	r.Resolution(OutcomeBundle, "^app-bundle:///.*", "app-bundle:///a", "file:///a")
	r.Resolution(OutcomeMiss, "", "http://example.com/", "")
	r.Resolution(OutcomeMiss, "", "http://example.com/", "")
	r.Redirect()
	r.Registration("RecursiveRuleError")
	r.Resource(ResourceNotFound)
	r.SessionOpened()
	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutionsM.WithLabelValues(OutcomeBundle)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.resolutionsM.WithLabelValues(OutcomeMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.redirectsM))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.registrationsM.WithLabelValues("RecursiveRuleError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resourcesM.WithLabelValues(ResourceNotFound)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.sessionsM))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "appbundle_route_resolutions_total")
}

func TestHitRecordList(t *testing.T) {
	dumpFile := filepath.Join(t.TempDir(), "hits")
	l := NewHitRecordList(dumpFile)

	l.Add(&HitRecord{Match: "^custom:///.*", LastURL: "custom:///a", Rewritten: "file:///a"})
	l.Add(&HitRecord{Match: "^app-bundle:///.*", LastURL: "app-bundle:///x", Rewritten: "file:///x"})
	l.Add(&HitRecord{Match: "^custom:///.*", LastURL: "custom:///b", Rewritten: "file:///b"})

	records := l.Snapshot()
	require.Len(t, records, 2)
	assert.Equal(t, "^custom:///.*", records[0].Match)
	assert.Equal(t, 2, records[0].Count)
	assert.Equal(t, "custom:///b", records[0].LastURL)
	assert.Equal(t, 1, records[1].Count)

	l.Dump()
	data, err := os.ReadFile(dumpFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "^custom:///.* 2 custom:///b -> file:///b", lines[0])
}

func TestHitRecordListOfferWhenFull(t *testing.T) {
	l := NewHitRecordList("")
	for i := 0; i < 500; i++ {
		l.Offer(&HitRecord{Match: "m"})
	}
	assert.Len(t, l.recordAddChan, cap(l.recordAddChan))
}

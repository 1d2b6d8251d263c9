package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveBackendCall("user", 20*time.Millisecond, nil)
	m.ObserveBackendCall("user", 20*time.Millisecond, errors.New("boom"))
	m.CacheLookup("splits", true)
	m.CacheLookup("splits", false)
	m.CacheLookup("splits", false)
	m.RateLimited()
	m.SuspiciousRequest()
	m.SuspiciousRequest()

	out := scrape(t, m)
	for _, want := range []string{
		`splitbill_backend_call_errors_total{op="user"} 1`,
		`splitbill_backend_call_duration_seconds_count{op="user"} 2`,
		`splitbill_cache_lookups_total{cache="splits",result="hit"} 1`,
		`splitbill_cache_lookups_total{cache="splits",result="miss"} 2`,
		`splitbill_http_rate_limited_total 1`,
		`splitbill_http_suspicious_requests_total 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/splits/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/splits/1", "/splits/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	want := `splitbill_http_requests_total{method="GET",route="/splits/{id}",status="404"} 2`
	if out := scrape(t, m); !strings.Contains(out, want) {
		t.Fatalf("missing %q in output:\n%s", want, out)
	}
}

func TestPendingGauge(t *testing.T) {
	m := New()
	pending := 3
	m.RegisterPendingChats(func() int { return pending })

	if out := scrape(t, m); !strings.Contains(out, "splitbill_chat_pending_entries 3") {
		t.Fatalf("gauge missing from output:\n%s", out)
	}
	pending = 0
	if out := scrape(t, m); !strings.Contains(out, "splitbill_chat_pending_entries 0") {
		t.Fatal("gauge should follow the callback")
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/halfmovies/recsvc/internal/audit"
	"github.com/halfmovies/recsvc/internal/catalog"
	"github.com/halfmovies/recsvc/internal/config"
	"github.com/halfmovies/recsvc/internal/observability"
	"github.com/halfmovies/recsvc/internal/recommend"
)

var metricsSeq atomic.Int64

func newServerWith(t *testing.T, f catalog.Facade) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		CacheTTL:    time.Minute,
		ResultLimit: 5,
	}
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", metricsSeq.Add(1)))
	feed := audit.NewFeed(audit.NewInMemorySink())
	engine := recommend.NewEngine(f, cfg.ResultLimit)
	cache := recommend.NewCache(engine, feed, cfg.CacheTTL, 0, metrics, zerolog.Nop())
	srv := New(cfg, cache, f, feed, metrics, zerolog.Nop())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	f := catalog.NewInMemoryFacade()
	pop := func(v float64) *float64 { return &v }
	f.AddUser("plain", nil)
	f.AddUser("action-fan", &catalog.Preferences{Languages: []string{"en"}, Genres: []string{"Action"}})
	f.AddItems(
		catalog.ContentItem{ID: "m1", Title: "Fast Car", Language: "en", Genres: []string{"Action"}, Popularity: pop(100), Featured: true},
		catalog.ContentItem{ID: "m2", Title: "Slow Boat", Language: "en", Genres: []string{"Drama"}, Popularity: pop(80), Featured: true},
	)
	return newServerWith(t, f)
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, res.StatusCode, wantStatus)
	}
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s response: %v", url, err)
	}
	return body
}

func TestRecommendEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body := getJSON(t, ts.URL+"/v1/users/action-fan/recommendations", http.StatusOK)
	if body["strategy"] != "personalized" {
		t.Fatalf("strategy = %v, want personalized", body["strategy"])
	}
	if body["cached"] != false {
		t.Fatalf("cached = %v, want false on first call", body["cached"])
	}
	if _, ok := body["latencyMs"]; !ok {
		t.Fatalf("response missing latencyMs: %+v", body)
	}

	recs, ok := body["recommendations"].([]any)
	if !ok || len(recs) == 0 || len(recs) > 5 {
		t.Fatalf("recommendations = %+v, want 1..5 items", body["recommendations"])
	}
	first, ok := recs[0].(map[string]any)
	if !ok {
		t.Fatalf("recommendation item shape: %+v", recs[0])
	}
	for _, key := range []string{"id", "title", "genre", "language"} {
		if _, ok := first[key]; !ok {
			t.Fatalf("recommendation item missing %q: %+v", key, first)
		}
	}

	second := getJSON(t, ts.URL+"/v1/users/action-fan/recommendations", http.StatusOK)
	if second["cached"] != true {
		t.Fatalf("cached = %v on second call, want true", second["cached"])
	}
	if second["strategy"] != body["strategy"] {
		t.Fatalf("strategy changed on cached call: %v vs %v", second["strategy"], body["strategy"])
	}
}

func TestRecommendUnknownUser(t *testing.T) {
	ts := newTestServer(t)

	body := getJSON(t, ts.URL+"/v1/users/ghost/recommendations", http.StatusNotFound)
	if body["code"] != "user_not_found" {
		t.Fatalf("code = %v, want user_not_found", body["code"])
	}
}

func TestInvalidateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	getJSON(t, ts.URL+"/v1/users/plain/recommendations", http.StatusOK)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/users/plain/recommendations/cache", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	body := getJSON(t, ts.URL+"/v1/users/plain/recommendations", http.StatusOK)
	if body["cached"] != false {
		t.Fatalf("cached = %v after invalidation, want false", body["cached"])
	}
}

func TestRecentAuditEndpoint(t *testing.T) {
	ts := newTestServer(t)

	getJSON(t, ts.URL+"/v1/users/plain/recommendations", http.StatusOK)
	getJSON(t, ts.URL+"/v1/users/plain/recommendations", http.StatusOK)

	body := getJSON(t, ts.URL+"/v1/ops/audit", http.StatusOK)
	entries, ok := body["entries"].([]any)
	if !ok {
		t.Fatalf("entries shape: %+v", body)
	}
	// Two calls within the TTL leave exactly one decision on record.
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
}

func TestAuditWebsocketStreamsDecisions(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ops/audit/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", wsURL, err)
	}
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
	defer conn.Close()

	// Give the handler a moment to subscribe before triggering a decision.
	time.Sleep(50 * time.Millisecond)

	getJSON(t, ts.URL+"/v1/users/plain/recommendations", http.StatusOK)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev audit.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ev.Type != audit.EventDecision {
		t.Fatalf("event type = %q, want %q", ev.Type, audit.EventDecision)
	}
	if ev.Entry.UserID != "plain" {
		t.Fatalf("event user = %q, want plain", ev.Entry.UserID)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	body := getJSON(t, ts.URL+"/healthz", http.StatusOK)
	if body["status"] != "ok" {
		t.Fatalf("healthz status = %v, want ok", body["status"])
	}
	ready := getJSON(t, ts.URL+"/readyz", http.StatusOK)
	if ready["status"] != "ready" {
		t.Fatalf("readyz status = %v, want ready", ready["status"])
	}
}

type downCatalog struct {
	*catalog.InMemoryFacade
}

func (downCatalog) QueryPersonalized(context.Context, []string, []string, int) ([]catalog.ContentItem, error) {
	return nil, fmt.Errorf("%w: query personalized: connection refused", catalog.ErrUnavailable)
}

func (downCatalog) QueryCurated(context.Context, int) ([]catalog.ContentItem, error) {
	return nil, fmt.Errorf("%w: query curated: connection refused", catalog.ErrUnavailable)
}

func (downCatalog) Ping(context.Context) error {
	return fmt.Errorf("%w: ping: connection refused", catalog.ErrUnavailable)
}

func TestRecommendCatalogUnavailable(t *testing.T) {
	inner := catalog.NewInMemoryFacade()
	inner.AddUser("plain", nil)
	ts := newServerWith(t, downCatalog{inner})

	res, err := http.Get(ts.URL + "/v1/users/plain/recommendations")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusServiceUnavailable)
	}
	if got := res.Header.Get("Retry-After"); got != "1" {
		t.Fatalf("Retry-After = %q, want 1", got)
	}
	var body errorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Code != "catalog_unavailable" {
		t.Fatalf("code = %q, want catalog_unavailable", body.Code)
	}
}

func TestReadyWhenCatalogDown(t *testing.T) {
	ts := newServerWith(t, downCatalog{catalog.NewInMemoryFacade()})

	body := getJSON(t, ts.URL+"/readyz", http.StatusServiceUnavailable)
	if body["code"] != "catalog_unavailable" {
		t.Fatalf("code = %v, want catalog_unavailable", body["code"])
	}
}

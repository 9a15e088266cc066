package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ferrwyn/autocompleted/pkg/cache"
	"github.com/ferrwyn/autocompleted/pkg/config"
	"github.com/ferrwyn/autocompleted/pkg/search"
	"github.com/ferrwyn/autocompleted/pkg/store"
)

// failingStore errors on every read, standing in for a lost database.
type failingStore struct{}

func (failingStore) TagsByPrefix(context.Context, string, int, int) ([]search.Tag, error) {
	return nil, errors.New("database file vanished")
}

func (failingStore) AliasesByPrefix(context.Context, string, []search.AliasStatus, int, int) ([]search.AliasedTag, error) {
	return nil, errors.New("database file vanished")
}

func testRouter(t *testing.T, responses *cache.ResponseCache) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := store.NewMemoryStore()
	s.AddTag(search.Tag{ID: 1, Name: "cats", PostCount: 500})
	s.AddTag(search.Tag{ID: 2, Name: "dogs", PostCount: 300, Category: 5})
	s.AddAlias(search.Alias{ID: 10, AntecedentName: "kittens", ConsequentName: "cats", Status: search.StatusActive, PostCount: 50})

	engine := search.NewEngine(s, search.DefaultLimits())
	return newRouter(engine, config.DefaultConfig(), responses)
}

func get(router *gin.Engine, query string, header map[string]string) *httptest.ResponseRecorder {
	q := url.Values{}
	if query != "" {
		q.Set(searchParam, query)
	}
	req := httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearchSuccess(t *testing.T) {
	router := testRouter(t, nil)
	w := get(router, "kit", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200 (body %s)", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeJSON {
		t.Errorf("Content-Type = %q, expected %q", ct, contentTypeJSON)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cachePublic {
		t.Errorf("Cache-Control = %q, expected %q", cc, cachePublic)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, expected '*'", origin)
	}
	if allowed := w.Header().Get("Access-Control-Allow-Headers"); allowed != "Authorization" {
		t.Errorf("Access-Control-Allow-Headers = %q, expected 'Authorization'", allowed)
	}
	if id := w.Header().Get("X-Request-ID"); id == "" {
		t.Error("expected a generated request id")
	}

	var got []search.Candidate
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(got) != 1 || got[0].Name != "cats" || got[0].PostCount != 500 {
		t.Fatalf("Input 'kit': expected cats/500, got %+v", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"matched_via":"alias"`) || !strings.Contains(body, `"antecedent_name":"kittens"`) {
		t.Errorf("body missing alias wire fields: %s", body)
	}
}

func TestSearchNormalizesQuery(t *testing.T) {
	tests := []struct {
		description string
		query       string
		wantName    string
	}{
		{"uppercase folds to lowercase", "KIT", "cats"},
		{"trailing wildcard stripped", "kit*", "cats"},
		{"interior whitespace stripped", "DO GS", "dogs"},
	}

	router := testRouter(t, nil)
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			w := get(router, tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, expected 200", w.Code)
			}
			var got []search.Candidate
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if len(got) == 0 || got[0].Name != tt.wantName {
				t.Errorf("Input '%s': expected '%s' first, got %+v", tt.query, tt.wantName, got)
			}
		})
	}
}

func TestSearchValidation(t *testing.T) {
	tests := []struct {
		description string
		query       string
	}{
		{"missing parameter", ""},
		{"below minimum length", "ab"},
		{"above maximum length", strings.Repeat("a", 101)},
	}

	router := testRouter(t, nil)
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			w := get(router, tt.query, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, expected 400", w.Code)
			}
			if body := w.Body.String(); body != `{"error":"bad request"}` {
				t.Errorf("body = %s, expected the fixed error envelope", body)
			}
			if cc := w.Header().Get("Cache-Control"); cc != cachePrivate {
				t.Errorf("Cache-Control = %q, expected %q", cc, cachePrivate)
			}
			if ct := w.Header().Get("Content-Type"); ct != contentTypeJSON {
				t.Errorf("Content-Type = %q, expected %q", ct, contentTypeJSON)
			}
		})
	}
}

func TestSearchEmptyResult(t *testing.T) {
	router := testRouter(t, nil)
	w := get(router, "zzzz", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
	if body := w.Body.String(); body != "[]" {
		t.Errorf("body = %s, expected a bare empty array", body)
	}
}

func TestSearchStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := search.NewEngine(failingStore{}, search.DefaultLimits())
	router := newRouter(engine, config.DefaultConfig(), nil)

	w := get(router, "cats", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, expected 500", w.Code)
	}
	if body := w.Body.String(); body != `{"error":"internal error"}` {
		t.Errorf("body = %s, expected the fixed error envelope", body)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cachePrivate {
		t.Errorf("Cache-Control = %q, expected %q", cc, cachePrivate)
	}
}

func TestSearchCacheFlow(t *testing.T) {
	responses := cache.New(8, time.Minute)
	router := testRouter(t, responses)

	first := get(router, "kit", nil)
	second := get(router, "kit", nil)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("status = %d / %d, expected 200s", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("cached body diverged: %s vs %s", first.Body, second.Body)
	}
	if cc := second.Header().Get("Cache-Control"); cc != cachePublic {
		t.Errorf("cache hit Cache-Control = %q, expected %q", cc, cachePublic)
	}

	// Same normalized key, so this is a third hit on the same entry.
	third := get(router, "KIT*", nil)
	if third.Body.String() != first.Body.String() {
		t.Errorf("normalized query missed the cache: %s", third.Body)
	}

	stats := responses.Stats()
	if stats["misses"] != 1 || stats["hits"] != 2 {
		t.Errorf("expected 1 miss / 2 hits, got %d / %d", stats["misses"], stats["hits"])
	}
}

func TestRequestIDEcho(t *testing.T) {
	router := testRouter(t, nil)
	w := get(router, "kit", map[string]string{requestIDHeader: "trace-123"})

	if got := w.Header().Get(requestIDHeader); got != "trace-123" {
		t.Errorf("X-Request-ID = %q, expected the client id echoed", got)
	}
}

func TestHealthz(t *testing.T) {
	router := testRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
	if body := w.Body.String(); body != `{"status":"ok"}` {
		t.Errorf("body = %s", body)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Error("liveness responses should carry CORS headers too")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "autocompleted_search_duration_seconds") {
		t.Error("expected the search histogram in the scrape")
	}
}

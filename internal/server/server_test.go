package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/chrolicious/hoolgg-roster/internal/config"
	"github.com/chrolicious/hoolgg-roster/internal/metrics"
	"github.com/chrolicious/hoolgg-roster/internal/provider"
	"github.com/chrolicious/hoolgg-roster/internal/reconcile"
	"github.com/chrolicious/hoolgg-roster/internal/roster"
	"github.com/chrolicious/hoolgg-roster/internal/server/ratelimit"
	"github.com/chrolicious/hoolgg-roster/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC)

// stubProvider serves one equipment snapshot for every character.
type stubProvider struct {
	mu           sync.Mutex
	equipmentErr error
}

func (p *stubProvider) Token(_ context.Context, creds provider.Credentials) (*provider.Token, error) {
	return &provider.Token{AccessToken: "token-" + creds.ClientID, Expiry: fixedNow.Add(time.Hour)}, nil
}

func (p *stubProvider) Equipment(context.Context, provider.Session, string, string) (*reconcile.EquipmentSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.equipmentErr != nil {
		return nil, p.equipmentErr
	}
	return &reconcile.EquipmentSnapshot{EquippedItems: []reconcile.EquippedItem{{
		Slot:    reconcile.TypeRef{Type: "HEAD"},
		Name:    "Crown",
		Level:   reconcile.ItemLevel(320),
		Item:    reconcile.IDRef{ID: 100},
		Quality: reconcile.TypeRef{Type: "EPIC"},
	}}}, nil
}

func (p *stubProvider) Profile(context.Context, provider.Session, string, string) (*reconcile.Profile, error) {
	return &reconcile.Profile{CharacterClass: reconcile.TypeName{Name: "Paladin"}, Level: 90}, nil
}

func (p *stubProvider) Media(context.Context, provider.Session, string, string) (*reconcile.Media, error) {
	return &reconcile.Media{}, nil
}

func (p *stubProvider) Statistics(context.Context, provider.Session, string, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (p *stubProvider) ItemMedia(_ context.Context, _ provider.Session, itemID int) (*reconcile.Media, error) {
	if itemID != 100 {
		return nil, &provider.Error{Fetch: provider.FetchItemMedia, StatusCode: http.StatusNotFound, Message: "API error: 404"}
	}
	return &reconcile.Media{Assets: []reconcile.Asset{{Key: reconcile.AssetIcon, Value: "https://render/icons/100.jpg"}}}, nil
}

type testServer struct {
	*Server
	provider *stubProvider
	metrics  *metrics.Metrics
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	store := storage.NewFileStore(filepath.Join(t.TempDir(), storage.DefaultFileName), storage.WithClock(clock))
	stub := &stubProvider{}
	svc := roster.NewService(store,
		roster.WithProvider(stub),
		roster.WithSharedCredentials("shared", "secret"),
		roster.WithClock(clock))

	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	s := New(svc, opts)
	t.Cleanup(s.Close)
	return &testServer{Server: s, provider: stub, metrics: opts.Metrics}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(t, http.MethodGet, "/health", nil, RequestIDHeader, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(t, http.MethodGet, "/api/data", nil)

	w := ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roster_http_requests_total")
}

func TestCharacterLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(t, http.MethodPost, "/api/characters", map[string]any{
		"name": "Thrain", "realm": "Stormrage", "character_name": "thrain", "professions": []string{"Mining"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["character"].(map[string]any)["id"])

	w = ts.do(t, http.MethodPost, "/api/character/1/gear", map[string]any{"slot": "head", "item_level": 160})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 10.0, decode(t, w)["character"].(map[string]any)["avg_ilvl"])

	w = ts.do(t, http.MethodPost, "/api/character/1/crests", map[string]any{"crest_type": "runed", "amount": 45})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/character/1/tasks", map[string]any{"task_type": "daily", "task_id": "world_quests", "done": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/character/1/weekly-progress", map[string]any{"highest_delve_tier": 8})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["weekly_progress"], "0")

	w = ts.do(t, http.MethodPut, "/api/characters/1/professions", map[string]any{"professions": []string{"Mining", "Blacksmithing"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/character/1/config", map[string]any{"name": "Thrain II"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)
	chars := data["characters"].([]any)
	require.Len(t, chars, 1)
	assert.Equal(t, "Thrain II", chars[0].(map[string]any)["name"])
	assert.Contains(t, data, "weekly_target")
	assert.Contains(t, data, "weekly_crest_cap")

	w = ts.do(t, http.MethodGet, "/api/character/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/characters/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/characters/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestWeekAndDailyReset(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(t, http.MethodPost, "/api/meta", map[string]any{"current_week": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(4), decode(t, w)["meta"].(map[string]any)["current_week"])

	w = ts.do(t, http.MethodPost, "/api/meta", map[string]any{"current_week": 13})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/reset-daily", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWishlistRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(t, http.MethodPost, "/api/characters", map[string]any{"name": "Thrain"})

	w := ts.do(t, http.MethodPost, "/api/character/1/bis", map[string]any{"slot": "head", "item_name": "Crown", "item_id": 100})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Crown", decode(t, w)["item"].(map[string]any)["item_name"])

	w = ts.do(t, http.MethodPut, "/api/character/1/bis/1", map[string]any{"obtained": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["item"].(map[string]any)["obtained"])

	w = ts.do(t, http.MethodPost, "/api/character/1/bis", map[string]any{"slot": "head"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "item name is required")

	w = ts.do(t, http.MethodDelete, "/api/character/1/bis/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/character/1/bis/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/character/1/talents", map[string]any{"category": "raid", "name": "Single target", "talent_string": "ABC"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "raid", decode(t, w)["build"].(map[string]any)["category"])

	w = ts.do(t, http.MethodPut, "/api/character/1/talents/1", map[string]any{"name": "Cleave"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cleave", decode(t, w)["build"].(map[string]any)["name"])

	w = ts.do(t, http.MethodDelete, "/api/character/1/talents/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(t, http.MethodPost, "/api/characters", map[string]any{"name": "Thrain"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "non-numeric id", method: http.MethodGet, path: "/api/character/abc", status: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/api/character/1/gear", body: "{not json", status: http.StatusBadRequest},
		{name: "missing slot", method: http.MethodPost, path: "/api/character/1/gear", body: map[string]any{}, status: http.StatusBadRequest},
		{name: "unknown character", method: http.MethodPost, path: "/api/character/7/gear", body: map[string]any{"slot": "head"}, status: http.StatusNotFound},
		{name: "bad task type", method: http.MethodPost, path: "/api/character/1/tasks", body: map[string]any{"task_type": "hourly", "task_id": "x"}, status: http.StatusBadRequest},
		{name: "bad region", method: http.MethodPost, path: "/api/provider/config", body: map[string]any{"region": "mars"}, status: http.StatusBadRequest},
		{name: "unknown route", method: http.MethodGet, path: "/api/nothing", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestSyncRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(t, http.MethodPost, "/api/characters", map[string]any{"name": "Thrain", "realm": "Stormrage", "character_name": "thrain"})
	ts.do(t, http.MethodPost, "/api/characters", map[string]any{"name": "Alt"})

	w := ts.do(t, http.MethodPost, "/api/character/1/sync", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	c := body["character"].(map[string]any)
	assert.Equal(t, "Paladin", c["class"])
	assert.Equal(t, 20.0, c["avg_ilvl"])
	assert.Len(t, body["fetches"], 4)

	w = ts.do(t, http.MethodPost, "/api/character/2/sync", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "unconfigured character")

	w = ts.do(t, http.MethodPost, "/api/sync-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, float64(1), body["synced"])
	assert.Equal(t, float64(1), body["failed"])

	w = ts.do(t, http.MethodGet, "/api/item/100/icon", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://render/icons/100.jpg", decode(t, w)["icon_url"])

	w = ts.do(t, http.MethodGet, "/api/item/5/icon", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = ts.do(t, http.MethodGet, "/api/debug/character/1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Thrain", decode(t, w)["character"])

	ts.provider.mu.Lock()
	ts.provider.equipmentErr = &provider.Error{Fetch: provider.FetchEquipment, StatusCode: http.StatusTooManyRequests, Message: "API error: 429"}
	ts.provider.mu.Unlock()
	w = ts.do(t, http.MethodPost, "/api/character/1/sync", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, provider.RateLimitHint, decode(t, w)["error"])
}

func TestSyncAllStream(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(t, http.MethodPost, "/api/characters", map[string]any{"name": "Thrain", "realm": "Stormrage", "character_name": "thrain"})
	ts.do(t, http.MethodPost, "/api/characters", map[string]any{"name": "Alt"})

	w := ts.do(t, http.MethodPost, "/api/sync-all/stream", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	stream := w.Body.String()
	assert.Equal(t, 2, strings.Count(stream, "event: result\n"))
	assert.Contains(t, stream, "event: complete\n")
	assert.Contains(t, stream, `"synced":1`)
}

func TestProviderConfigAlias(t *testing.T) {
	ts := newTestServer(t, Options{})

	for _, path := range []string{"/api/provider/config", "/api/blizzard/config"} {
		w := ts.do(t, http.MethodPost, path, map[string]any{"credential_mode": "custom", "client_id": "id", "client_secret": "s"})
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestAuth(t *testing.T) {
	jwtCfg, err := config.NewJWTConfig(testJWTSecret, 1)
	require.NoError(t, err)
	ts := newTestServer(t, Options{JWT: jwtCfg})

	w := ts.do(t, http.MethodGet, "/api/data", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health is public")

	token, err := NewJWTService(jwtCfg).GenerateToken("dashboard")
	require.NoError(t, err)
	w = ts.do(t, http.MethodGet, "/api/data", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Options{CORSOrigins: []string{"https://hool.gg"}})

	w := ts.do(t, http.MethodOptions, "/api/data", nil, "Origin", "https://hool.gg")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://hool.gg", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	w = ts.do(t, http.MethodGet, "/api/data", nil, "Origin", "https://evil.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	open := newTestServer(t, Options{})
	w = open.do(t, http.MethodGet, "/health", nil, "Origin", "https://anywhere.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{RateLimit: &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  2,
		DefaultWindow: time.Hour,
	}})

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodGet, "/api/data", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodGet, "/api/data", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(2), body["limit"])

	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health is never limited")
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	ts := newTestServer(t, Options{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ts.ListenAndServe(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

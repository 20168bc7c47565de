package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/lysyi3m/dino-relay/app/budget"
	"github.com/lysyi3m/dino-relay/app/classify"
	"github.com/lysyi3m/dino-relay/app/database"
	"github.com/lysyi3m/dino-relay/app/dedup"
	"github.com/lysyi3m/dino-relay/app/feed"
	"github.com/lysyi3m/dino-relay/app/metrics"
)

const testKey = "secret"

type fakeBreaker struct{ state string }

func (b fakeBreaker) State() string { return b.state }

type fakeHealth struct{ status string }

func (h fakeHealth) Health() map[string]interface{} {
	return map[string]interface{}{"status": h.status, "type": "redis"}
}

type testAPI struct {
	deps   HandlerDeps
	sent   *dedup.SentSet
	judge  *budget.Counter
	server http.Handler
}

func newTestAPI(t *testing.T, mutate func(*HandlerDeps)) *testAPI {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sourcesDir := filepath.Join(dir, "sources")
	if err := os.MkdirAll(sourcesDir, 0755); err != nil {
		t.Fatal(err)
	}
	config := "url: https://example.com/rss\ndisplay_name: Science Daily\nsettings:\n  enabled: true\n"
	if err := os.WriteFile(filepath.Join(sourcesDir, "science.yml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	configCache := feed.NewConfigCache(sourcesDir)
	if err := configCache.Run(); err != nil {
		t.Fatalf("Failed to load sources: %v", err)
	}

	api := &testAPI{
		sent:  dedup.New(dedup.NewFileBackend(filepath.Join(dir, "sent_items.json"))),
		judge: budget.NewCounter("judge", filepath.Join(dir, "usage_judge.json"), 100, 0),
	}

	api.deps = HandlerDeps{
		ConfigCache:  configCache,
		SourceRepo:   database.NewSourceRepository(db),
		ClassRepo:    database.NewClassificationRepository(db),
		DeliveryRepo: database.NewDeliveryRepository(db),
		Generator:    feed.NewGenerator(feed.GeneratorConfig{SelfURL: "https://relay.example.com/feed"}),
		Classifier:   classify.NewOrchestrator(classify.DefaultPolicy(), nil, nil),
		Sent:         api.sent,
		Counters:     []*budget.Counter{api.judge},
		Breakers:     map[string]BreakerInterface{"judge": fakeBreaker{state: "closed"}},
		Metrics:      metrics.New(),
	}
	if mutate != nil {
		mutate(&api.deps)
	}

	api.server = NewServer(NewHandler(api.deps), testKey, "test")
	return api
}

func (a *testAPI) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	a.server.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
	if body["loaded_sources"] != float64(1) {
		t.Errorf("Expected 1 loaded source, got %v", body["loaded_sources"])
	}
	breakers, _ := body["breakers"].(map[string]interface{})
	if breakers["judge"] != "closed" {
		t.Errorf("Expected judge breaker state, got %v", body["breakers"])
	}
}

func TestHealth_DedupUnhealthy(t *testing.T) {
	api := newTestAPI(t, func(d *HandlerDeps) {
		d.DedupHealth = fakeHealth{status: "unhealthy"}
	})

	w := api.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", w.Code)
	}
	if decode(t, w)["status"] != "degraded" {
		t.Error("Expected degraded status")
	}
}

func TestStats(t *testing.T) {
	api := newTestAPI(t, nil)
	api.judge.Record(0.002)

	if err := api.deps.SourceRepo.UpsertSource("science", "https://example.com/rss"); err != nil {
		t.Fatal(err)
	}
	err := api.deps.ClassRepo.RecordClassification(database.Classification{
		ItemID: "a", Source: "Science Daily", Title: "T. rex", Decision: true,
		Confidence: 0.95, Method: string(classify.MethodKeywordOnly),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := api.deps.DeliveryRepo.RecordDelivery(database.Delivery{ItemID: "a", Source: "Science Daily", Status: database.DeliveryStatusFailed, Error: "boom"}); err != nil {
		t.Fatal(err)
	}

	w := api.do(http.MethodGet, "/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)

	sources, _ := body["sources"].(map[string]interface{})
	if sources["total"] != float64(1) {
		t.Errorf("Expected 1 source, got %v", body["sources"])
	}

	methods, _ := body["classifications_24h"].(map[string]interface{})
	keyword, _ := methods["keyword_only"].(map[string]interface{})
	if keyword["relevant"] != float64(1) {
		t.Errorf("Expected 1 relevant keyword_only decision, got %v", body["classifications_24h"])
	}

	deliveries, _ := body["deliveries"].(map[string]interface{})
	if deliveries["failed"] != float64(1) || deliveries["sent"] != float64(0) {
		t.Errorf("Expected 1 failed delivery, got %v", body["deliveries"])
	}

	budgets, _ := body["budgets"].(map[string]interface{})
	judge, _ := budgets["judge"].(map[string]interface{})
	if judge["daily_calls"] != float64(1) {
		t.Errorf("Expected judge usage, got %v", body["budgets"])
	}
}

func TestFeed(t *testing.T) {
	api := newTestAPI(t, nil)

	err := api.deps.DeliveryRepo.RecordDelivery(database.Delivery{
		ItemID:          "abc",
		Source:          "Science Daily",
		TitleOriginal:   "Giant sauropod found",
		TitleTranslated: "거대 용각류 발견",
		Link:            "https://example.com/sauropod",
		Status:          database.DeliveryStatusSent,
	})
	if err != nil {
		t.Fatal(err)
	}

	w := api.do(http.MethodGet, "/feed", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected XML content type, got %s", ct)
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected 1 feed item, got %s", w.Header().Get("X-Feed-Items"))
	}
	if !strings.Contains(w.Body.String(), "https://example.com/sauropod") {
		t.Errorf("Expected delivered link in feed, got %s", w.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	api := newTestAPI(t, nil)
	api.deps.Metrics.Delivered(true)

	w := api.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "dino_relay_deliveries_total") {
		t.Error("Expected relay counters in metrics output")
	}
}

func TestAuthMiddleware(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": testKey}, http.StatusOK},
		{"bearer token", map[string]string{"Authorization": "Bearer " + testKey}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodGet, "/api/sources", "", tt.headers)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	api := newTestAPI(t, nil)
	server := NewServer(NewHandler(api.deps), "", "test")

	req := httptest.NewRequest(http.MethodPost, "/api/sent/reset", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without an access key, got %d", w.Code)
	}
}

func TestAPIListSources(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodGet, "/api/sources", "", map[string]string{"X-API-Key": testKey})
	body := decode(t, w)

	sources, _ := body["sources"].([]interface{})
	if len(sources) != 1 {
		t.Fatalf("Expected 1 source, got %v", body)
	}
	source := sources[0].(map[string]interface{})
	if source["display_name"] != "Science Daily" || source["max_items"] != float64(10) {
		t.Errorf("Expected configured source with defaults, got %v", source)
	}
}

func TestAPIClassify(t *testing.T) {
	api := newTestAPI(t, nil)
	headers := map[string]string{"X-API-Key": testKey}

	w := api.do(http.MethodPost, "/api/classify", `{"title":"New dinosaur species from Argentina"}`, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decode(t, w)
	result, _ := body["result"].(map[string]interface{})
	if result["decision"] != true || result["method"] != "prefilter" {
		t.Errorf("Expected prefilter approval, got %v", result)
	}
	if body["prefilter"] != classify.Approve.String() {
		t.Errorf("Expected prefilter verdict, got %v", body["prefilter"])
	}

	w = api.do(http.MethodPost, "/api/classify", `{"summary":"no title"}`, headers)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing title, got %d", w.Code)
	}
}

func TestAPIResetSent(t *testing.T) {
	api := newTestAPI(t, nil)

	id := dedup.ItemID("Giant sauropod found", "https://example.com/sauropod")
	api.sent.IsNew(id)
	api.sent.MarkDelivered(id)
	if err := api.sent.Commit(); err != nil {
		t.Fatal(err)
	}

	w := api.do(http.MethodPost, "/api/sent/reset", "", map[string]string{"X-API-Key": testKey})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if decode(t, w)["cleared"] != float64(1) {
		t.Error("Expected 1 cleared item")
	}
	if api.sent.Len() != 0 || api.sent.Contains(id) {
		t.Error("Expected sent set to be empty after reset")
	}
}

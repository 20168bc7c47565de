package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Classified(t *testing.T) {
	m := New()

	m.Classified("keyword_only", true, false)
	m.Classified("remote_judge", false, true)
	m.Classified("remote_judge", false, true)

	if got := testutil.ToFloat64(m.Classifications.WithLabelValues("remote_judge", "irrelevant")); got != 2 {
		t.Errorf("Expected 2 remote_judge classifications, got %v", got)
	}
	if got := testutil.ToFloat64(m.JudgeCalls); got != 2 {
		t.Errorf("Expected 2 judge consultations, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.Classified("prefilter", true, false)
	m.Translated("hit")
	m.Delivered(true)
	m.ItemSeen("nature", "new")
	m.FeedFailed("nature")
	m.ObserveCycle(time.Second)

	if m.Handler() == nil {
		t.Error("Expected default handler for nil metrics")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Delivered(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `dino_relay_deliveries_total{status="failed"} 1`) {
		t.Errorf("Expected deliveries metric in output, got:\n%s", body)
	}
}

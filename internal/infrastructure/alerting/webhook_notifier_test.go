package alerting

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/resilience"
	"github.com/riskibarqy/touchdown-picks/internal/usecase"
)

func TestWebhookNotifier_DeliversQueuedAlerts(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		payloads []webhookPayload
		auth     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload webhookPayload
		if err := sonic.Unmarshal(raw, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, payload)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{
		URL:    server.URL,
		Token:  "secret-token",
		Source: "touchdown-worker",
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	notifier.Notify(context.Background(), usecase.Alert{
		Subject:  "Import failed for season 2025",
		Message:  "provider unreachable",
		Severity: usecase.AlertSeverityCritical,
		Context:  map[string]any{"job_id": "job-1"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := notifier.Close(ctx); err != nil {
		t.Fatalf("close notifier: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 {
		t.Fatalf("unexpected payload count: got=%d want=1", len(payloads))
	}
	got := payloads[0]
	if got.Subject != "Import failed for season 2025" || got.Severity != "critical" || got.Source != "touchdown-worker" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Context["job_id"] != "job-1" {
		t.Fatalf("unexpected context: %v", got.Context)
	}
	if auth != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
}

func TestWebhookNotifier_DropsAfterClose(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		count int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{URL: server.URL}, logging.NewNop())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := notifier.Close(context.Background()); err != nil {
		t.Fatalf("close notifier: %v", err)
	}
	notifier.Notify(context.Background(), usecase.Alert{Subject: "late"})

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("expected no delivery after close, got %d", count)
	}
}

func TestWebhookNotifier_ClassifiesStatus(t *testing.T) {
	t.Parallel()

	status := http.StatusServiceUnavailable
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{
		URL: server.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	defer notifier.Close(context.Background())

	if err := notifier.deliver(webhookPayload{Subject: "a"}); err == nil {
		t.Fatalf("expected 503 to fail delivery")
	}
	if state := notifier.breaker.State(); state != resilience.CircuitStateOpen {
		t.Fatalf("unexpected breaker state: got=%s want=%s", state, resilience.CircuitStateOpen)
	}
	if err := notifier.deliver(webhookPayload{Subject: "b"}); err == nil {
		t.Fatalf("expected open breaker to reject delivery")
	}
}

func TestNewWebhookNotifier_RejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://alerts.example.com", "https://"} {
		if _, err := NewWebhookNotifier(WebhookConfig{URL: raw}, logging.NewNop()); err == nil {
			t.Fatalf("expected error for url %q", raw)
		}
	}
}

type recordingNotifier struct {
	alerts []usecase.Alert
}

func (r *recordingNotifier) Notify(_ context.Context, alert usecase.Alert) {
	r.alerts = append(r.alerts, alert)
}

func TestFanout_NotifiesEveryTarget(t *testing.T) {
	t.Parallel()

	first := &recordingNotifier{}
	second := &recordingNotifier{}
	fanout := Fanout{NewLogNotifier(logging.NewNop()), first, nil, second}

	fanout.Notify(context.Background(), usecase.Alert{Subject: "sweep", Severity: usecase.AlertSeverityWarning})

	if len(first.alerts) != 1 || len(second.alerts) != 1 {
		t.Fatalf("unexpected deliveries: first=%d second=%d", len(first.alerts), len(second.alerts))
	}
}

package alerting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/resilience"
	"github.com/riskibarqy/touchdown-picks/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultQueueSize = 256

var errWebhookTransient = crerr.New("alert webhook transient failure")

type WebhookConfig struct {
	URL            string
	Token          string
	Source         string
	Timeout        time.Duration
	QueueSize      int
	CircuitBreaker resilience.CircuitBreakerConfig
}

type webhookPayload struct {
	Source   string         `json:"source"`
	Subject  string         `json:"subject"`
	Message  string         `json:"message"`
	Severity string         `json:"severity"`
	Context  map[string]any `json:"context,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

// WebhookNotifier posts alerts as JSON from a single background sender.
// Notify never blocks; alerts are dropped when the queue is full.
type WebhookNotifier struct {
	endpoint string
	token    string
	source   string
	client   *http.Client
	breaker  *resilience.CircuitBreaker
	breakOn  bool
	logger   *logging.Logger
	clock    clockwork.Clock

	queue     chan webhookPayload
	queueMu   sync.RWMutex
	closeOnce sync.Once
	closed    atomic.Bool
	wg        sync.WaitGroup
	dropped   atomic.Uint64
}

func NewWebhookNotifier(cfg WebhookConfig, logger *logging.Logger) (*WebhookNotifier, error) {
	endpoint, err := validateWebhookURL(cfg.URL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid ALERT_WEBHOOK_URL")
	}
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	source := strings.TrimSpace(cfg.Source)
	if source == "" {
		source = "touchdown-picks"
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	n := &WebhookNotifier{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Token),
		source:   source,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: resilience.NewCircuitBreaker(breakerCfg, nil),
		breakOn: cfg.CircuitBreaker.Enabled,
		logger:  logger.Named("alert_webhook"),
		clock:   clockwork.NewRealClock(),
		queue:   make(chan webhookPayload, queueSize),
	}
	n.wg.Add(1)
	go n.run()
	return n, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, alert usecase.Alert) {
	n.queueMu.RLock()
	defer n.queueMu.RUnlock()
	if n.closed.Load() {
		return
	}

	payload := webhookPayload{
		Source:   n.source,
		Subject:  alert.Subject,
		Message:  alert.Message,
		Severity: string(alert.Severity),
		Context:  alert.Context,
		SentAt:   n.clock.Now().UTC(),
	}
	select {
	case n.queue <- payload:
	default:
		dropped := n.dropped.Add(1)
		if dropped == 1 || dropped%100 == 0 {
			n.logger.WarnContext(ctx, "alert queue full, dropping alert", "subject", alert.Subject, "dropped", dropped)
		}
	}
}

func (n *WebhookNotifier) Dropped() uint64 {
	return n.dropped.Load()
}

func (n *WebhookNotifier) run() {
	defer n.wg.Done()

	for payload := range n.queue {
		if err := n.deliver(payload); err != nil {
			n.logger.Warn("deliver alert failed", "subject", payload.Subject, "error", err)
		}
	}
}

func (n *WebhookNotifier) deliver(payload webhookPayload) error {
	if !n.breakOn {
		return n.send(payload)
	}
	err := n.breaker.Do(func() error {
		return n.send(payload)
	}, func(err error) bool {
		return errors.Is(err, errWebhookTransient)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("alert webhook is temporarily unavailable: %w", err)
	}
	return err
}

func (n *WebhookNotifier) send(payload webhookPayload) error {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal alert payload")
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.Write(raw)

	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(buf.B))
	if err != nil {
		return crerr.Wrap(err, "create alert request")
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post alert: %v", errWebhookTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if isRetryableStatus(resp.StatusCode) {
			return fmt.Errorf("%w: status=%d body=%s", errWebhookTransient, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return crerr.Newf("alert webhook rejected payload status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close stops accepting alerts and waits for queued ones to be sent.
func (n *WebhookNotifier) Close(ctx context.Context) error {
	n.closeOnce.Do(func() {
		n.queueMu.Lock()
		n.closed.Store(true)
		close(n.queue)
		n.queueMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validateWebhookURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return candidate, nil
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

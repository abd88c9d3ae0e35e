package nfldata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/metrics"
	"github.com/riskibarqy/touchdown-picks/internal/platform/resilience"
	"github.com/riskibarqy/touchdown-picks/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout   = 20 * time.Second
	maxResponseBytes = 6 << 20
	apiKeyHeader     = "X-API-Key"
)

var (
	errNFLDataTransient = crerr.New("nfl data transient failure")
	errNotFound         = crerr.New("nfl data resource not found")
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	Metrics        *metrics.Metrics
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client implements usecase.NFLDataProvider over the provider's JSON API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	retryBackoff   time.Duration
	logger         *logging.Logger
	metrics        *metrics.Metrics
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	clock          clockwork.Clock
}

var _ usecase.NFLDataProvider = (*Client)(nil)

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL, err := validateBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid NFL_DATA_BASE_URL")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	clock := clockwork.NewRealClock()

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		retryBackoff:   backoff,
		logger:         logger.Named("nfldata"),
		metrics:        cfg.Metrics,
		breaker:        resilience.NewCircuitBreaker(breakerCfg, clock),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
		clock:          clock,
	}, nil
}

func (c *Client) FetchGames(ctx context.Context, season, week int) ([]usecase.ExternalGame, error) {
	if season <= 0 || week <= 0 {
		return nil, fmt.Errorf("%w: season and week must be greater than zero", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/seasons/%d/weeks/%d/games", season, week)
	var envelope gamesEnvelope
	if err := c.doJSON(ctx, "games", path, &envelope); err != nil {
		if errors.Is(err, errNotFound) {
			return []usecase.ExternalGame{}, nil
		}
		return nil, fmt.Errorf("fetch games season=%d week=%d: %w", season, week, err)
	}

	out := make([]usecase.ExternalGame, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		out = append(out, mapGame(item, season, week))
	}
	return out, nil
}

func (c *Client) FetchGameResult(ctx context.Context, externalGameID string) (usecase.ExternalGameResult, bool, error) {
	externalGameID = strings.TrimSpace(externalGameID)
	if externalGameID == "" {
		return usecase.ExternalGameResult{}, false, fmt.Errorf("%w: external game id is required", usecase.ErrInvalidInput)
	}

	var envelope resultEnvelope
	if err := c.doJSON(ctx, "result", "/games/"+url.PathEscape(externalGameID)+"/result", &envelope); err != nil {
		if errors.Is(err, errNotFound) {
			return usecase.ExternalGameResult{}, false, nil
		}
		return usecase.ExternalGameResult{}, false, fmt.Errorf("fetch result game=%s: %w", externalGameID, err)
	}
	if envelope.Data.HomeScore == nil || envelope.Data.AwayScore == nil {
		return usecase.ExternalGameResult{}, false, nil
	}

	return usecase.ExternalGameResult{
		HomeScore: *envelope.Data.HomeScore,
		AwayScore: *envelope.Data.AwayScore,
		Final:     isFinalStatus(envelope.Data.Status),
	}, true, nil
}

// FetchTouchdownScorers keeps a missing scorer_ids field as nil so validation
// can tell it apart from a game with no touchdowns.
func (c *Client) FetchTouchdownScorers(ctx context.Context, externalGameID string) (usecase.ExternalTouchdownScorers, bool, error) {
	externalGameID = strings.TrimSpace(externalGameID)
	if externalGameID == "" {
		return usecase.ExternalTouchdownScorers{}, false, fmt.Errorf("%w: external game id is required", usecase.ErrInvalidInput)
	}

	var envelope touchdownsEnvelope
	if err := c.doJSON(ctx, "touchdowns", "/games/"+url.PathEscape(externalGameID)+"/touchdowns", &envelope); err != nil {
		if errors.Is(err, errNotFound) {
			return usecase.ExternalTouchdownScorers{}, false, nil
		}
		return usecase.ExternalTouchdownScorers{}, false, fmt.Errorf("fetch touchdowns game=%s: %w", externalGameID, err)
	}

	out := usecase.ExternalTouchdownScorers{
		FirstScorerID: strings.TrimSpace(envelope.Data.FirstScorerID),
	}
	if envelope.Data.ScorerIDs != nil {
		out.AllScorerIDs = make([]string, 0, len(envelope.Data.ScorerIDs))
		for _, id := range envelope.Data.ScorerIDs {
			if id = strings.TrimSpace(id); id != "" {
				out.AllScorerIDs = append(out.AllScorerIDs, id)
			}
		}
	}
	return out, true, nil
}

func (c *Client) doJSON(ctx context.Context, endpoint, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "nfl data circuit breaker rejected request", "state", c.breaker.State())
			c.metrics.ProviderRequest(endpoint, "circuit_open")
			return fmt.Errorf("%w: nfl data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && errors.Is(reqErr, errNFLDataTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		c.metrics.ProviderRequest(endpoint, outcomeOf(err))
		if errors.Is(err, errNFLDataTransient) {
			return fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err)
		}
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return crerr.Newf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		c.metrics.ProviderRequest(endpoint, "decode_error")
		return crerr.Wrap(err, "decode provider payload")
	}
	c.metrics.ProviderRequest(endpoint, "ok")
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set(apiKeyHeader, c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = fmt.Errorf("%w: send request: %s", errNFLDataTransient, c.redact(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errNFLDataTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, errNotFound
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errNFLDataTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clock.After(time.Duration(attempt+1) * c.retryBackoff):
		}
	}

	c.logger.WarnContext(ctx, "nfl data request failed", "url", fullURL, "attempts", c.maxRetries+1, "error", lastErr)
	return nil, lastErr
}

func (c *Client) redact(value string) string {
	if c.apiKey == "" {
		return value
	}
	return strings.ReplaceAll(value, c.apiKey, "REDACTED")
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, errNotFound):
		return "not_found"
	case errors.Is(err, errNFLDataTransient):
		return "transient_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func validateBaseURL(raw string) (string, error) {
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
	return strings.TrimRight(candidate, "/"), nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 256 {
		return text
	}
	return text[:256] + "...(" + strconv.Itoa(len(text)) + " bytes)"
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/resilience"
	"github.com/robfig/cron/v3"
)

// Config stores runtime configuration for the worker.
type Config struct {
	AppEnv                  string
	ServiceName             string
	ServiceVersion          string
	LogLevel                logging.Level
	LogFormat               string
	DBURL                   string
	DBDisablePreparedBinary bool
	DBMaxOpenConns          int
	DBSeedEnabled           bool
	RedisURL                string
	ProgressTTL             time.Duration
	MetricsAddr             string
	ShutdownTimeout         time.Duration

	NFLDataBaseURL      string
	NFLDataAPIKey       string
	NFLDataTimeout      time.Duration
	NFLDataMaxRetries   int
	NFLDataRetryBackoff time.Duration
	NFLDataCircuit      resilience.CircuitBreakerConfig

	AlertWebhookURL       string
	AlertWebhookToken     string
	AlertWebhookTimeout   time.Duration
	AlertWebhookQueueSize int
	AlertWebhookCircuit   resilience.CircuitBreakerConfig

	SchedulerEnabled      bool
	SchedulerTimezone     *time.Location
	SchedulerIngestCron   string
	SchedulerGradingCrons []string
	SchedulerSeason       int
	SchedulerWeeks        []int

	ImportJobTimeout time.Duration
	MaxWeeks         int
	JobWorkers       int
	SweepConcurrency int

	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"

	defaultGradingCrons = "30 23 * * 4;30 23 * * 0;30 23 * * 1"
)

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	logFormat := strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", LogFormatJSON)))
	if logFormat != LogFormatJSON && logFormat != LogFormatConsole {
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: valid values are %s, %s", logFormat, LogFormatJSON, LogFormatConsole)
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	dbMaxOpenConns, err := getEnvAsInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	if dbMaxOpenConns < 1 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1")
	}
	dbSeedEnabled, err := strconv.ParseBool(getEnv("DB_SEED_ENABLED", strconv.FormatBool(appEnv == EnvDev)))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_SEED_ENABLED: %w", err)
	}

	progressTTL, err := time.ParseDuration(getEnv("PROGRESS_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PROGRESS_TTL: %w", err)
	}
	if progressTTL <= 0 {
		return Config{}, fmt.Errorf("PROGRESS_TTL must be > 0")
	}

	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SHUTDOWN_TIMEOUT: %w", err)
	}
	if shutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0")
	}

	nflDataBaseURL := strings.TrimSpace(getEnv("NFL_DATA_BASE_URL", ""))
	if nflDataBaseURL == "" {
		return Config{}, fmt.Errorf("NFL_DATA_BASE_URL is required")
	}
	nflDataTimeout, err := time.ParseDuration(getEnv("NFL_DATA_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse NFL_DATA_TIMEOUT: %w", err)
	}
	if nflDataTimeout <= 0 {
		return Config{}, fmt.Errorf("NFL_DATA_TIMEOUT must be > 0")
	}
	nflDataMaxRetries, err := getEnvAsInt("NFL_DATA_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse NFL_DATA_MAX_RETRIES: %w", err)
	}
	if nflDataMaxRetries < 0 {
		return Config{}, fmt.Errorf("NFL_DATA_MAX_RETRIES must be >= 0")
	}
	nflDataRetryBackoff, err := time.ParseDuration(getEnv("NFL_DATA_RETRY_BACKOFF", "500ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse NFL_DATA_RETRY_BACKOFF: %w", err)
	}
	if nflDataRetryBackoff < 0 {
		return Config{}, fmt.Errorf("NFL_DATA_RETRY_BACKOFF must be >= 0")
	}
	nflDataCircuit, err := loadCircuit("NFL_DATA")
	if err != nil {
		return Config{}, err
	}

	alertWebhookURL := strings.TrimSpace(getEnv("ALERT_WEBHOOK_URL", ""))
	alertWebhookTimeout, err := time.ParseDuration(getEnv("ALERT_WEBHOOK_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_TIMEOUT: %w", err)
	}
	if alertWebhookTimeout <= 0 {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_TIMEOUT must be > 0")
	}
	alertWebhookQueueSize, err := getEnvAsInt("ALERT_WEBHOOK_QUEUE_SIZE", 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_QUEUE_SIZE: %w", err)
	}
	if alertWebhookQueueSize < 1 {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_QUEUE_SIZE must be >= 1")
	}
	alertWebhookCircuit, err := loadCircuit("ALERT_WEBHOOK")
	if err != nil {
		return Config{}, err
	}

	schedulerEnabled, err := strconv.ParseBool(getEnv("SCHEDULER_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_ENABLED: %w", err)
	}
	schedulerTimezone, err := time.LoadLocation(getEnv("SCHEDULER_TIMEZONE", "America/New_York"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_TIMEZONE: %w", err)
	}
	schedulerIngestCron := strings.TrimSpace(getEnv("SCHEDULER_INGEST_CRON", "0 6 * * *"))
	schedulerGradingCrons := splitList(getEnv("SCHEDULER_GRADING_CRONS", defaultGradingCrons), ";")
	if len(schedulerGradingCrons) == 0 {
		return Config{}, fmt.Errorf("SCHEDULER_GRADING_CRONS cannot be empty")
	}
	for _, spec := range append([]string{schedulerIngestCron}, schedulerGradingCrons...) {
		if _, err := cron.ParseStandard(spec); err != nil {
			return Config{}, fmt.Errorf("invalid cron expression %q: %w", spec, err)
		}
	}
	schedulerSeason, err := getEnvAsInt("SCHEDULER_SEASON", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_SEASON: %w", err)
	}
	if schedulerSeason < 0 {
		return Config{}, fmt.Errorf("SCHEDULER_SEASON must be >= 0")
	}

	maxWeeks, err := getEnvAsInt("MAX_WEEKS", 18)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_WEEKS: %w", err)
	}
	if maxWeeks < 1 || maxWeeks > 22 {
		return Config{}, fmt.Errorf("MAX_WEEKS must be between 1 and 22")
	}
	schedulerWeeks, err := parseWeeks(getEnv("SCHEDULER_WEEKS", ""), maxWeeks)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_WEEKS: %w", err)
	}

	importJobTimeout, err := time.ParseDuration(getEnv("IMPORT_JOB_TIMEOUT", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse IMPORT_JOB_TIMEOUT: %w", err)
	}
	if importJobTimeout <= 0 {
		return Config{}, fmt.Errorf("IMPORT_JOB_TIMEOUT must be > 0")
	}
	jobWorkers, err := getEnvAsInt("JOB_WORKERS", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse JOB_WORKERS: %w", err)
	}
	if jobWorkers < 1 {
		return Config{}, fmt.Errorf("JOB_WORKERS must be >= 1")
	}
	sweepConcurrency, err := getEnvAsInt("SWEEP_CONCURRENCY", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SWEEP_CONCURRENCY: %w", err)
	}
	if sweepConcurrency < 1 {
		return Config{}, fmt.Errorf("SWEEP_CONCURRENCY must be >= 1")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "touchdown-picks-worker"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:                   logging.ParseLevel(getEnv("LOG_LEVEL", "info")),
		LogFormat:                  logFormat,
		DBURL:                      strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary:    dbDisablePreparedBinary,
		DBMaxOpenConns:             dbMaxOpenConns,
		DBSeedEnabled:              dbSeedEnabled,
		RedisURL:                   strings.TrimSpace(getEnv("REDIS_URL", "")),
		ProgressTTL:                progressTTL,
		MetricsAddr:                strings.TrimSpace(getEnv("METRICS_ADDR", ":9090")),
		ShutdownTimeout:            shutdownTimeout,
		NFLDataBaseURL:             nflDataBaseURL,
		NFLDataAPIKey:              strings.TrimSpace(getEnv("NFL_DATA_API_KEY", "")),
		NFLDataTimeout:             nflDataTimeout,
		NFLDataMaxRetries:          nflDataMaxRetries,
		NFLDataRetryBackoff:        nflDataRetryBackoff,
		NFLDataCircuit:             nflDataCircuit,
		AlertWebhookURL:            alertWebhookURL,
		AlertWebhookToken:          strings.TrimSpace(getEnv("ALERT_WEBHOOK_TOKEN", "")),
		AlertWebhookTimeout:        alertWebhookTimeout,
		AlertWebhookQueueSize:      alertWebhookQueueSize,
		AlertWebhookCircuit:        alertWebhookCircuit,
		SchedulerEnabled:           schedulerEnabled,
		SchedulerTimezone:          schedulerTimezone,
		SchedulerIngestCron:        schedulerIngestCron,
		SchedulerGradingCrons:      schedulerGradingCrons,
		SchedulerSeason:            schedulerSeason,
		SchedulerWeeks:             schedulerWeeks,
		ImportJobTimeout:           importJobTimeout,
		MaxWeeks:                   maxWeeks,
		JobWorkers:                 jobWorkers,
		SweepConcurrency:           sweepConcurrency,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if appEnv == EnvProd && cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when APP_ENV=%s", EnvProd)
	}

	return cfg, nil
}

// loadCircuit reads <PREFIX>_CIRCUIT_ENABLED, _FAILURE_COUNT, _OPEN_TIMEOUT
// and _HALF_OPEN_MAX_REQ.
func loadCircuit(prefix string) (resilience.CircuitBreakerConfig, error) {
	enabled, err := strconv.ParseBool(getEnv(prefix+"_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_ENABLED: %w", prefix, err)
	}
	failureCount, err := getEnvAsInt(prefix+"_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_FAILURE_COUNT: %w", prefix, err)
	}
	openTimeout, err := time.ParseDuration(getEnv(prefix+"_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_OPEN_TIMEOUT: %w", prefix, err)
	}
	halfOpenMaxReq, err := getEnvAsInt(prefix+"_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_HALF_OPEN_MAX_REQ: %w", prefix, err)
	}

	cfg := resilience.CircuitBreakerConfig{
		Enabled:          enabled,
		FailureThreshold: failureCount,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMaxReq,
	}
	if err := cfg.Validate(prefix); err != nil {
		return resilience.CircuitBreakerConfig{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitList(v, sep string) []string {
	parts := strings.Split(v, sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

// parseWeeks reads a comma separated week list. Empty means every week.
func parseWeeks(raw string, maxWeeks int) ([]int, error) {
	items := splitList(raw, ",")
	out := make([]int, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		week, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid week %q: %w", item, err)
		}
		if week < 1 || week > maxWeeks {
			return nil, fmt.Errorf("week %d out of range 1..%d", week, maxWeeks)
		}
		if _, ok := seen[week]; ok {
			continue
		}
		seen[week] = struct{}{}
		out = append(out, week)
	}
	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileEnvKey names the optional YAML file read before the environment.
const FileEnvKey = "WORKSPACE_CONFIG_FILE"

type Config struct {
	APIPort     string
	MetricsPort string
	LogLevel    string

	BackendURL            string
	BackendTimeoutSeconds int
	BackendRateLimitRPS   float64
	BackendRateLimitBurst int

	PreviewDir string

	MaxUploadBytes         int64
	QuizQuestionCount      int
	SummaryMaxLength       int
	SummaryDefaultMode     string
	LibraryCacheTTLSeconds int

	NATSURL           string
	NATSSubjectPrefix string

	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int

	RetryMaxAttempts      int
	RetryInitialBackoffMS int
	RetryMaxBackoffMS     int
	RetryMultiplier       float64

	BreakerEnabled            bool
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenTimeoutSeconds int
	BreakerHalfOpenMaxCalls   int
}

// Load reads configuration from the environment. Values in the YAML file
// named by WORKSPACE_CONFIG_FILE act as defaults that env vars override.
func Load() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv(FileEnvKey)); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}

	return Config{
		APIPort:     src.mustEnv("API_PORT", "8080"),
		MetricsPort: src.mustEnv("METRICS_PORT", ""),
		LogLevel:    src.mustEnv("LOG_LEVEL", "info"),

		BackendURL:            src.mustEnv("BACKEND_URL", "http://localhost:8000"),
		BackendTimeoutSeconds: src.mustEnvInt("BACKEND_TIMEOUT_SECONDS", 120),
		BackendRateLimitRPS:   src.mustEnvFloat("BACKEND_RATE_LIMIT_RPS", 10),
		BackendRateLimitBurst: src.mustEnvInt("BACKEND_RATE_LIMIT_BURST", 20),

		PreviewDir: src.mustEnv("PREVIEW_DIR", ""),

		MaxUploadBytes:         int64(src.mustEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		QuizQuestionCount:      src.mustEnvInt("QUIZ_QUESTION_COUNT", 10),
		SummaryMaxLength:       src.mustEnvInt("SUMMARY_MAX_LENGTH", 500),
		SummaryDefaultMode:     src.mustEnv("SUMMARY_DEFAULT_MODE", "concise"),
		LibraryCacheTTLSeconds: src.mustEnvInt("LIBRARY_CACHE_TTL_SECONDS", 30),

		NATSURL:           src.mustEnv("NATS_URL", ""),
		NATSSubjectPrefix: src.mustEnv("NATS_SUBJECT_PREFIX", "workspace"),

		APIRateLimitRPS:   src.mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: src.mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:    src.mustEnvInt("API_MAX_IN_FLIGHT", 64),

		RetryMaxAttempts:      src.mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoffMS: src.mustEnvInt("RETRY_INITIAL_BACKOFF_MS", 100),
		RetryMaxBackoffMS:     src.mustEnvInt("RETRY_MAX_BACKOFF_MS", 400),
		RetryMultiplier:       src.mustEnvFloat("RETRY_MULTIPLIER", 2),

		BreakerEnabled:            src.mustEnvBool("BREAKER_ENABLED", true),
		BreakerMinRequests:        src.mustEnvInt("BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio:       src.mustEnvFloat("BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeoutSeconds: src.mustEnvInt("BREAKER_OPEN_TIMEOUT_SECONDS", 30),
		BreakerHalfOpenMaxCalls:   src.mustEnvInt("BREAKER_HALF_OPEN_MAX_CALLS", 2),
	}, nil
}

// readFile decodes a flat YAML mapping keyed by env var name. Keys are
// matched case-insensitively.
func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(doc))
	for k, v := range doc {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("parse config file %s: key %q must be a scalar", path, k)
		case nil:
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = fmt.Sprint(v)
	}
	return out, nil
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

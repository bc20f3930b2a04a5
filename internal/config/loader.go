package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "voxcheck.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "VOXCHECK_PORT")
	setString(&cfg.Server.CORSOrigin, "VOXCHECK_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "VOXCHECK_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "VOXCHECK_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "VOXCHECK_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "VOXCHECK_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "VOXCHECK_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.Logging.Level, "VOXCHECK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "VOXCHECK_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "VOXCHECK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "VOXCHECK_BREAKER_TIMEOUT")

	// Ensemble
	setString(&cfg.Ensemble.EvaluatorAModel, "VOXCHECK_ENSEMBLE_EVALUATOR_A")
	setString(&cfg.Ensemble.EvaluatorBModel, "VOXCHECK_ENSEMBLE_EVALUATOR_B")
	setString(&cfg.Ensemble.CuratorModel, "VOXCHECK_ENSEMBLE_CURATOR")
	setFloat64(&cfg.Ensemble.ScoreTolerance, "VOXCHECK_ENSEMBLE_TOLERANCE")
	setDuration(&cfg.Ensemble.CallTimeout, "VOXCHECK_ENSEMBLE_CALL_TIMEOUT")
	setDuration(&cfg.Ensemble.PipelineTimeout, "VOXCHECK_ENSEMBLE_PIPELINE_TIMEOUT")
	setInt(&cfg.Ensemble.MaxRetries, "VOXCHECK_ENSEMBLE_MAX_RETRIES")
	setDuration(&cfg.Ensemble.RetryBaseDelay, "VOXCHECK_ENSEMBLE_RETRY_BASE_DELAY")
	setDuration(&cfg.Ensemble.RetryMaxDelay, "VOXCHECK_ENSEMBLE_RETRY_MAX_DELAY")
	setFloat64(&cfg.Ensemble.Temperature, "VOXCHECK_ENSEMBLE_TEMPERATURE")
	setInt(&cfg.Ensemble.MaxTokens, "VOXCHECK_ENSEMBLE_MAX_TOKENS")

	// Queue
	setDuration(&cfg.Queue.ClaimTimeout, "VOXCHECK_QUEUE_CLAIM_TIMEOUT")
	setDuration(&cfg.Queue.PendingTimeout, "VOXCHECK_QUEUE_PENDING_TIMEOUT")
	setDuration(&cfg.Queue.SweepInterval, "VOXCHECK_QUEUE_SWEEP_INTERVAL")
	setDuration(&cfg.Queue.StatsCacheTTL, "VOXCHECK_QUEUE_STATS_CACHE_TTL")
	setInt64(&cfg.Queue.CacheMaxBytes, "VOXCHECK_QUEUE_CACHE_MAX_BYTES")

	setString(&cfg.OOS.Sentinel, "VOXCHECK_OOS_SENTINEL")

	setBool(&cfg.Otel.Enabled, "VOXCHECK_OTEL_ENABLED")
	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Ensemble.ScoreTolerance < 0 || cfg.Ensemble.ScoreTolerance > 1 {
		return errors.New("ensemble.score_tolerance must be in [0,1]")
	}
	if cfg.Ensemble.MaxRetries < 1 {
		return errors.New("ensemble.max_retries must be >= 1")
	}
	if cfg.Queue.ClaimTimeout <= 0 {
		return errors.New("queue.claim_timeout must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

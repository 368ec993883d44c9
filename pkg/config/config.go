package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for blockgraph.
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Server         ServerConfig         `mapstructure:"server"`
	Codegen        CodegenConfig        `mapstructure:"codegen"`
	Cache          CacheConfig          `mapstructure:"cache"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"` // gin mode
	// MaxBodyBytes caps posted subgraph documents.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"min=1024"`
}

// CodegenConfig controls the ontology dependency traversal.
type CodegenConfig struct {
	MaxConcurrency int    `mapstructure:"max_concurrency" validate:"min=1,max=256"`
	FetchTimeout   int    `mapstructure:"fetch_timeout" validate:"min=1"` // in seconds
	Retries        int    `mapstructure:"retries" validate:"min=0,max=10"`
	RetryBackoff   int    `mapstructure:"retry_backoff_ms" validate:"min=0"`
	ManifestPath   string `mapstructure:"manifest_path"`
}

// CacheConfig selects the schema cache backing the fetcher.
type CacheConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=none memory badger"`
	Path   string `mapstructure:"path" validate:"required_if=Driver badger"`
	TTL    int    `mapstructure:"ttl" validate:"min=0"` // in seconds, 0 keeps entries forever
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval" validate:"min=0"` // in seconds
	Timeout          int     `mapstructure:"timeout" validate:"min=0"`  // in seconds
	MinRequests      uint32  `mapstructure:"min_requests"`
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio" validate:"gte=0,lte=1"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ParquetPath string `mapstructure:"parquet_path" validate:"required_if=Enabled true"`
	BatchSize   int    `mapstructure:"batch_size" validate:"min=1"`
}

// Neo4jConfig holds the export target.
type Neo4jConfig struct {
	URI       string `mapstructure:"uri" validate:"omitempty,uri"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	BatchSize int    `mapstructure:"batch_size" validate:"min=1"`
}

// FetchTimeoutDuration returns FetchTimeout as a duration.
func (c CodegenConfig) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// RetryBackoffDuration returns the base retry backoff.
func (c CodegenConfig) RetryBackoffDuration() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Millisecond
}

// TTLDuration returns TTL as a duration.
func (c CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Load loads configuration from the viper registry (config file, flags) and
// environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.max_body_bytes", 32<<20)

	viper.SetDefault("codegen.max_concurrency", 8)
	viper.SetDefault("codegen.fetch_timeout", 30)
	viper.SetDefault("codegen.retries", 3)
	viper.SetDefault("codegen.retry_backoff_ms", 200)
	viper.SetDefault("codegen.manifest_path", "")

	viper.SetDefault("cache.driver", "memory")
	viper.SetDefault("cache.ttl", 0)

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.min_requests", 5)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.batch_size", 100)

	viper.SetDefault("neo4j.uri", "")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.batch_size", 500)

	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", filepath.Join(home, ".blockgraph", "telemetry"))
		viper.SetDefault("cache.path", filepath.Join(home, ".blockgraph", "schema-cache"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) error {
	if level := os.Getenv("BLOCKGRAPH_LOG_LEVEL"); level != "" {
		config.Log.Level = strings.ToLower(level)
	}
	if format := os.Getenv("BLOCKGRAPH_LOG_FORMAT"); format != "" {
		config.Log.Format = strings.ToLower(format)
	}

	if host := os.Getenv("BLOCKGRAPH_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("BLOCKGRAPH_SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("%w: BLOCKGRAPH_SERVER_PORT=%q: %v", ErrInvalidConfig, port, err)
		}
		config.Server.Port = p
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	if n := os.Getenv("BLOCKGRAPH_MAX_CONCURRENCY"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return fmt.Errorf("%w: BLOCKGRAPH_MAX_CONCURRENCY=%q: %v", ErrInvalidConfig, n, err)
		}
		config.Codegen.MaxConcurrency = v
	}

	if driver := os.Getenv("BLOCKGRAPH_CACHE_DRIVER"); driver != "" {
		config.Cache.Driver = driver
	}
	if path := os.Getenv("BLOCKGRAPH_CACHE_PATH"); path != "" {
		config.Cache.Path = path
	}

	if path := os.Getenv("BLOCKGRAPH_TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Neo4j.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Neo4j.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		config.Neo4j.Database = db
	}
	return nil
}

var validate = validator.New()

// Validate checks the struct tags and joins every failure into one error wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
	}
}

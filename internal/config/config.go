package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the activity worker
	Config struct {
		// Diagnostics API
		APIHost  string
		APIPort  int
		LogLevel string

		// Flow loading
		FlowDir       string
		DefaultFlow   string
		FlowCacheSize int

		// Citation enrichment
		ChunkServiceURL string
		ChunkTimeout    time.Duration
		Annotate        bool

		// Optional chunk cache
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		ChunkCacheTTL time.Duration
	}
)

const (
	DefaultAPIHost       = "0.0.0.0"
	DefaultAPIPort       = 8080
	MaxTCPPort           = 65535
	DefaultFlowName      = "qa_default"
	DefaultFlowCacheSize = 256
	MaxFlowCacheSize     = 1_000_000
	DefaultChunkTimeout  = 30 * time.Second
	DefaultChunkCacheTTL = 24 * time.Hour

	// DevFlowDir is the bundled development directory used when FLOW_DIR
	// is unset; FallbackFlowDir is the fixed deployment default
	DevFlowDir      = "resources/flows"
	FallbackFlowDir = "/opt/docflow/flows"
)

var (
	ErrInvalidAPIPort      = errors.New("invalid API port")
	ErrInvalidCacheSize    = errors.New("flow cache size must be positive")
	ErrInvalidChunkTimeout = errors.New("chunk timeout must be positive")
	ErrDefaultFlowEmpty    = errors.New("default flow name empty")
)

// NewDefaultConfig creates a configuration with sensible defaults for all
// worker settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:       DefaultAPIHost,
		APIPort:       DefaultAPIPort,
		LogLevel:      "info",
		FlowDir:       resolveFlowDir(),
		DefaultFlow:   DefaultFlowName,
		FlowCacheSize: DefaultFlowCacheSize,
		ChunkTimeout:  DefaultChunkTimeout,
		Annotate:      true,
		ChunkCacheTTL: DefaultChunkCacheTTL,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if dir := os.Getenv("FLOW_DIR"); dir != "" {
		c.FlowDir = dir
	}
	if name := os.Getenv("DEFAULT_FLOW"); name != "" {
		c.DefaultFlow = name
	}
	if url := os.Getenv("CHUNK_SERVICE_URL"); url != "" {
		c.ChunkServiceURL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.RedisPassword = password
	}
	if annotate := os.Getenv("ANNOTATE"); annotate != "" {
		v, err := strconv.ParseBool(annotate)
		if err != nil {
			return fmt.Errorf("invalid ANNOTATE: %q", annotate)
		}
		c.Annotate = v
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"FLOW_CACHE_SIZE", &c.FlowCacheSize, 0, MaxFlowCacheSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"REDIS_DB", &c.RedisDB, -1, 15,
	); err != nil {
		return err
	}

	if err := loadEnvDuration("CHUNK_TIMEOUT", &c.ChunkTimeout); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"CHUNK_CACHE_TTL", &c.ChunkCacheTTL,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.FlowCacheSize <= 0 {
		return ErrInvalidCacheSize
	}
	if c.ChunkTimeout <= 0 {
		return ErrInvalidChunkTimeout
	}
	if c.DefaultFlow == "" {
		return ErrDefaultFlowEmpty
	}
	return nil
}

// resolveFlowDir picks the flow directory when FLOW_DIR is unset: the
// bundled development directory if it exists, else the deployment default
func resolveFlowDir() string {
	if info, err := os.Stat(DevFlowDir); err == nil && info.IsDir() {
		return DevFlowDir
	}
	return FallbackFlowDir
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	*dst = d
	return nil
}

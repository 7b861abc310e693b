// Package config provides unified configuration loading for lecturecast.
// Supports YAML files, .env files, environment variables and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/spherical/lecturecast/internal/domain"
)

// Config holds all configuration for lecturecast.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Expansion     ExpansionConfig     `yaml:"expansion"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
// Uploads answer only after the run finishes, so WriteTimeout must outlast
// pipeline.run_timeout. ReadTimeout covers the whole body and is off by default;
// RequestTimeout bounds the other API routes.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	GracefulShutdown  time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
}

// StorageConfig holds filesystem layout settings.
type StorageConfig struct {
	UploadDir       string `yaml:"upload_dir"`
	WorkDir         string `yaml:"work_dir"`          // parsed/scripts/converted, cleared per run
	PublicDir       string `yaml:"public_dir"`        // images/audio, served statically
	PublicURLPrefix string `yaml:"public_url_prefix"` // mount point of PublicDir
}

// ExtractionConfig holds document conversion and rendering settings.
type ExtractionConfig struct {
	ConverterBinary   string        `yaml:"converter_binary"`
	ConversionTimeout time.Duration `yaml:"conversion_timeout"`
	RenderScale       float64       `yaml:"render_scale"`
}

// ExpansionConfig holds generative-text settings.
type ExpansionConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// SynthesisConfig holds text-to-speech settings.
type SynthesisConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	VoiceID        string        `yaml:"voice_id"`
	ModelID        string        `yaml:"model_id"`
	OutputFormat   string        `yaml:"output_format"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// PipelineConfig holds run-level settings.
type PipelineConfig struct {
	RunTimeout      time.Duration `yaml:"run_timeout"`
	PageConcurrency int           `yaml:"page_concurrency"`
}

// DatabaseConfig holds run ledger settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies .env and environment overrides.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8000,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      35 * time.Minute,
			IdleTimeout:       120 * time.Second,
			RequestTimeout:    30 * time.Second,
			GracefulShutdown:  30 * time.Second,
			AllowedOrigins:    []string{"http://localhost:3000"},
			MaxUploadBytes:    200 << 20,
		},
		Storage: StorageConfig{
			UploadDir:       "uploads",
			WorkDir:         "outputs",
			PublicDir:       "static",
			PublicURLPrefix: "/static",
		},
		Extraction: ExtractionConfig{
			ConverterBinary:   "libreoffice",
			ConversionTimeout: 2 * time.Minute,
			RenderScale:       2,
		},
		Expansion: ExpansionConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "google/gemini-2.5-flash",
			RequestTimeout: 90 * time.Second,
			MaxRetries:     3,
		},
		Synthesis: SynthesisConfig{
			BaseURL:        "https://api.elevenlabs.io",
			VoiceID:        "fJE3lSefh7YI494JMYYz",
			ModelID:        "eleven_multilingual_v2",
			OutputFormat:   "mp3_44100_128",
			RequestTimeout: 2 * time.Minute,
			MaxRetries:     3,
		},
		Pipeline: PipelineConfig{
			RunTimeout:      30 * time.Minute,
			PageConcurrency: 1,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path: "outputs/lecturecast.db",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "lecturecast",
		},
	}
}

// Validate checks the configuration for structural errors. Credentials are checked separately.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return domain.ConfigError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}

	if c.Server.WriteTimeout > 0 && c.Pipeline.RunTimeout > 0 && c.Server.WriteTimeout <= c.Pipeline.RunTimeout {
		return domain.ConfigError(fmt.Sprintf(
			"server.write_timeout (%s) must exceed pipeline.run_timeout (%s)",
			c.Server.WriteTimeout, c.Pipeline.RunTimeout), nil)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return domain.ConfigError(fmt.Sprintf("invalid database driver: %s", c.Database.Driver), nil)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return domain.ConfigError("postgres driver requires database.postgres.dsn", nil)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return domain.ConfigError(fmt.Sprintf("invalid cache driver: %s", c.Cache.Driver), nil)
	}

	if c.Extraction.RenderScale <= 0 || c.Extraction.RenderScale > 8 {
		return domain.ConfigError(fmt.Sprintf("render_scale must be in (0, 8], got %v", c.Extraction.RenderScale), nil)
	}

	if c.Pipeline.PageConcurrency < 1 {
		return domain.ConfigError("page_concurrency must be at least 1", nil)
	}

	for name, dir := range map[string]string{
		"upload_dir": c.Storage.UploadDir,
		"work_dir":   c.Storage.WorkDir,
		"public_dir": c.Storage.PublicDir,
	} {
		if strings.TrimSpace(dir) == "" {
			return domain.ConfigError(fmt.Sprintf("storage.%s must not be empty", name), nil)
		}
	}

	return nil
}

// ValidateCredentials fails when an external capability has no API key.
// Anything that can run the pipeline calls this at startup.
func (c *Config) ValidateCredentials() error {
	if c.Expansion.APIKey == "" {
		return domain.ConfigError("OPENROUTER_API_KEY environment variable not set", nil)
	}
	if c.Synthesis.APIKey == "" {
		return domain.ConfigError("ELEVENLABS_API_KEY environment variable not set", nil)
	}
	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Expansion.APIKey = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Expansion.Model = v
	}

	// ELEVEN_API_KEY is the older name, kept so existing .env files keep working
	if v := os.Getenv("ELEVEN_API_KEY"); v != "" {
		cfg.Synthesis.APIKey = v
	}

	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		cfg.Synthesis.APIKey = v
	}

	if v := os.Getenv("ELEVENLABS_VOICE_ID"); v != "" {
		cfg.Synthesis.VoiceID = v
	}

	if v := os.Getenv("ELEVENLABS_MODEL_ID"); v != "" {
		cfg.Synthesis.ModelID = v
	}

	if v := os.Getenv("SOFFICE_PATH"); v != "" {
		cfg.Extraction.ConverterBinary = v
	}

	if v := os.Getenv("RENDER_SCALE"); v != "" {
		if scale, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Extraction.RenderScale = scale
		}
	}

	if v := os.Getenv("PAGE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.PageConcurrency = n
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		if opts, err := redis.ParseURL(v); err == nil {
			cfg.Cache.Redis.Addr = opts.Addr
			cfg.Cache.Redis.Password = opts.Password
			cfg.Cache.Redis.DB = opts.DB
		} else {
			cfg.Cache.Redis.Addr = v
		}
	}

	if v := os.Getenv("LECTURECAST_UPLOAD_DIR"); v != "" {
		cfg.Storage.UploadDir = v
	}

	if v := os.Getenv("LECTURECAST_WORK_DIR"); v != "" {
		cfg.Storage.WorkDir = v
	}

	if v := os.Getenv("LECTURECAST_PUBLIC_DIR"); v != "" {
		cfg.Storage.PublicDir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/repository"
)

// EnvPrefix prefixes every environment override (ANSWER_BRIDGE_SERVER_PORT, ...).
const EnvPrefix = "ANSWER_BRIDGE"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Answer     AnswerConfig     `mapstructure:"answer"`
	FileUpload FileUploadConfig `mapstructure:"file_upload"`
	Renderer   RendererConfig   `mapstructure:"renderer"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Messages   MessagesConfig   `mapstructure:"messages"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds inbound request authentication settings.
type AuthConfig struct {
	MaxRequestAge time.Duration `mapstructure:"max_request_age"`
}

// RegistryConfig selects where bot credentials come from.
type RegistryConfig struct {
	Type   string                        `mapstructure:"type"` // "memory", "file", "sqlite", or "mysql"
	Bots   []repository.CredentialRecord `mapstructure:"bots"` // used by "memory"
	File   FileRegistryConfig            `mapstructure:"file"`
	SQLite SQLiteConfig                  `mapstructure:"sqlite"`
	MySQL  MySQLConfig                   `mapstructure:"mysql"`
}

// FileRegistryConfig holds settings for the YAML credentials file.
type FileRegistryConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `mapstructure:"path"` // Database file path, use ":memory:" for in-memory
}

// MySQLConfig holds MySQL-specific settings.
type MySQLConfig struct {
	Primary   MySQLInstanceConfig `mapstructure:"primary"`
	Replica   MySQLReplicaConfig  `mapstructure:"replica"`
	Pool      MySQLPoolConfig     `mapstructure:"pool"`
	Timeout   time.Duration       `mapstructure:"timeout"`
	ParseTime bool                `mapstructure:"parse_time"`
	Charset   string              `mapstructure:"charset"`
}

// MySQLInstanceConfig holds MySQL instance connection settings.
type MySQLInstanceConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MySQLReplicaConfig holds MySQL replica settings.
type MySQLReplicaConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MySQLPoolConfig holds MySQL connection pool settings.
type MySQLPoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// SlackConfig holds Slack Web API settings shared by all bots.
type SlackConfig struct {
	APIURL                   string      `mapstructure:"api_url"` // empty uses https://slack.com/api/
	ProfileLookupConcurrency int         `mapstructure:"profile_lookup_concurrency"`
	Retry                    RetryConfig `mapstructure:"retry"`
}

// RetryConfig holds retry settings for outbound Slack posts.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// AnswerConfig holds answer service settings.
type AnswerConfig struct {
	URL            string               `mapstructure:"url"`
	Timeout        time.Duration        `mapstructure:"timeout"` // 0 means no timeout
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// FileUploadConfig holds file service settings.
type FileUploadConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	TempDir string        `mapstructure:"temp_dir"` // empty uses os.TempDir()
}

// RendererConfig holds answer rendering settings.
type RendererConfig struct {
	ImageProbeTimeout time.Duration `mapstructure:"image_probe_timeout"`
}

// LedgerConfig holds deduplication ledger settings.
type LedgerConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

// MessagesConfig holds user-facing texts. Bot records may override the per-bot ones.
type MessagesConfig struct {
	CourtesyNotice string `mapstructure:"courtesy_notice"`
	Loading        string `mapstructure:"loading"`
	Welcome        string `mapstructure:"welcome"`
	Unanswerable   string `mapstructure:"unanswerable"`
}

// Load reads configuration from file and environment.
// A missing file is not an error; defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			// Expand environment variables in YAML
			expanded := os.ExpandEnv(string(data))
			if err := v.ReadConfig(strings.NewReader(expanded)); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides bind to it.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("auth.max_request_age", 5*time.Minute)

	// Registry defaults
	v.SetDefault("registry.type", "memory")
	v.SetDefault("registry.file.path", "./config/bots.yaml")
	v.SetDefault("registry.file.watch", true)
	v.SetDefault("registry.sqlite.path", "./data/answer-bridge.db")
	v.SetDefault("registry.mysql.primary.host", "")
	v.SetDefault("registry.mysql.primary.port", 3306)
	v.SetDefault("registry.mysql.primary.database", "")
	v.SetDefault("registry.mysql.primary.username", "")
	v.SetDefault("registry.mysql.primary.password", "")
	v.SetDefault("registry.mysql.replica.enabled", false)
	v.SetDefault("registry.mysql.replica.port", 3306)
	v.SetDefault("registry.mysql.pool.max_open_conns", 25)
	v.SetDefault("registry.mysql.pool.max_idle_conns", 5)
	v.SetDefault("registry.mysql.pool.conn_max_lifetime", 3*time.Minute)
	v.SetDefault("registry.mysql.pool.conn_max_idle_time", time.Minute)
	v.SetDefault("registry.mysql.timeout", 5*time.Second)
	v.SetDefault("registry.mysql.parse_time", true)
	v.SetDefault("registry.mysql.charset", "utf8mb4")

	// Slack defaults
	v.SetDefault("slack.api_url", "")
	v.SetDefault("slack.profile_lookup_concurrency", 4)
	v.SetDefault("slack.retry.max_attempts", 3)
	v.SetDefault("slack.retry.initial_interval", 100*time.Millisecond)
	v.SetDefault("slack.retry.max_interval", 5*time.Second)

	v.SetDefault("answer.url", "")
	v.SetDefault("answer.timeout", time.Duration(0))
	v.SetDefault("answer.circuit_breaker.max_failures", 5)
	v.SetDefault("answer.circuit_breaker.reset_timeout", 30*time.Second)

	v.SetDefault("file_upload.url", "")
	v.SetDefault("file_upload.timeout", 2*time.Minute)
	v.SetDefault("file_upload.temp_dir", "")

	v.SetDefault("renderer.image_probe_timeout", 5*time.Second)

	v.SetDefault("ledger.retention", 30*time.Minute)
	v.SetDefault("ledger.prune_schedule", "@every 1m")

	v.SetDefault("messages.courtesy_notice", "Please mention only one bot at a time. Please start a new thread with a single bot mention.")
	v.SetDefault("messages.loading", "Thinking...")
	v.SetDefault("messages.welcome", "Hi! Mention me with a question and I will answer in this thread.")
	v.SetDefault("messages.unanswerable", "Sorry, I could not get an answer right now. Please try again later.")
}

// normalize lower-cases enumerations.
func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Registry.Type = strings.ToLower(c.Registry.Type)
}

// BotDefaults fills empty per-bot messages from the global ones.
func (c *Config) BotDefaults(r repository.CredentialRecord) repository.CredentialRecord {
	if r.LoadingMessage == "" {
		r.LoadingMessage = c.Messages.Loading
	}
	if r.WelcomeMessage == "" {
		r.WelcomeMessage = c.Messages.Welcome
	}
	if r.UnanswerableMessage == "" {
		r.UnanswerableMessage = c.Messages.Unanswerable
	}
	return r
}

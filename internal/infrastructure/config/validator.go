package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// maxSignatureWindow is the replay window enforced by Slack's signature primitive.
const maxSignatureWindow = 5 * time.Minute

// reloadableKeys defines the whitelist of configuration keys that can be hot-reloaded.
var reloadableKeys = map[string]bool{
	"logging.level": true,
}

// staticKeys defines configuration keys that require application restart.
var staticKeys = map[string]string{
	"server.port":          "HTTP listener restart required",
	"logging.format":       "Log handler recreation required",
	"registry.type":        "Registry backend initialization required",
	"registry.sqlite.path": "Database connection recreation required",
	"registry.mysql":       "Database connection pool recreation required",
	"answer.url":           "Answer client recreation required",
	"file_upload.url":      "File relay recreation required",
}

// IsReloadable returns true if the given config key can be hot-reloaded.
func IsReloadable(key string) bool {
	return reloadableKeys[key]
}

// RestartReason returns the reason why a static config key requires restart.
func RestartReason(key string) string {
	if reason, ok := staticKeys[key]; ok {
		return reason
	}
	return "unknown configuration requires restart"
}

// ChangedKeys lists the watched keys whose values differ between two configs.
func ChangedKeys(old, updated *Config) []string {
	var keys []string
	add := func(key string, changed bool) {
		if changed {
			keys = append(keys, key)
		}
	}

	add("logging.level", old.Logging.Level != updated.Logging.Level)
	add("logging.format", old.Logging.Format != updated.Logging.Format)
	add("server.port", old.Server.Port != updated.Server.Port)
	add("registry.type", old.Registry.Type != updated.Registry.Type)
	add("registry.sqlite.path", old.Registry.SQLite.Path != updated.Registry.SQLite.Path)
	add("registry.mysql", old.Registry.MySQL.Primary != updated.Registry.MySQL.Primary)
	add("answer.url", old.Answer.URL != updated.Answer.URL)
	add("file_upload.url", old.FileUpload.URL != updated.FileUpload.URL)

	return keys
}

// ValidateLogLevel checks if the log level is valid.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
	return nil
}

// ValidateLogFormat checks if the log format is valid.
func ValidateLogFormat(format string) error {
	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[format] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", format)
	}
	return nil
}

// ValidateNonEmpty checks if a string is non-empty.
func ValidateNonEmpty(value string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateDuration checks if a duration is greater than zero.
func ValidateDuration(duration time.Duration, fieldName string) error {
	if duration <= 0 {
		return fmt.Errorf("%s must be greater than 0", fieldName)
	}
	return nil
}

// ValidatePort checks if a port number is valid.
func ValidatePort(port int, fieldName string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", fieldName, port)
	}
	return nil
}

// ValidateURL checks that value is an absolute http(s) URL.
func ValidateURL(value string, fieldName string) error {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", fieldName, value)
	}
	return nil
}

// ValidateRegistryType checks if the registry type is valid.
func ValidateRegistryType(registryType string) error {
	validTypes := map[string]bool{
		"memory": true,
		"file":   true,
		"sqlite": true,
		"mysql":  true,
	}
	if !validTypes[registryType] {
		return fmt.Errorf("invalid registry type: %s (must be memory, file, sqlite, or mysql)", registryType)
	}
	return nil
}

// ValidateSchedule checks a cron spec or descriptor such as "@every 1m".
func ValidateSchedule(spec string, fieldName string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%s is not a valid schedule: %w", fieldName, err)
	}
	return nil
}

// Validate performs comprehensive validation on the configuration.
// Returns an error if any validation fails.
func (c *Config) Validate() error {
	var errors []string
	check := func(err error) {
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	// Server validation
	check(ValidatePort(c.Server.Port, "server.port"))
	check(ValidateDuration(c.Server.ReadTimeout, "server.read_timeout"))
	check(ValidateDuration(c.Server.WriteTimeout, "server.write_timeout"))
	check(ValidateDuration(c.Server.ShutdownTimeout, "server.shutdown_timeout"))
	if c.Server.MaxBodyBytes <= 0 {
		errors = append(errors, "server.max_body_bytes must be greater than 0")
	}

	// Logging validation
	check(ValidateLogLevel(c.Logging.Level))
	check(ValidateLogFormat(c.Logging.Format))

	// Auth validation
	check(ValidateDuration(c.Auth.MaxRequestAge, "auth.max_request_age"))
	if c.Auth.MaxRequestAge > maxSignatureWindow {
		errors = append(errors, fmt.Sprintf("auth.max_request_age cannot exceed %s", maxSignatureWindow))
	}

	// Registry validation
	check(ValidateRegistryType(c.Registry.Type))
	switch c.Registry.Type {
	case "memory":
		seen := make(map[string]bool)
		for i, bot := range c.Registry.Bots {
			field := fmt.Sprintf("registry.bots[%d]", i)
			check(ValidateNonEmpty(bot.RoutingKey, field+".routing_key"))
			check(ValidateNonEmpty(bot.SlackToken, field+".slack_token"))
			check(ValidateNonEmpty(bot.SigningSecret, field+".signing_secret"))
			if seen[bot.RoutingKey] {
				errors = append(errors, fmt.Sprintf("%s.routing_key %q is duplicated", field, bot.RoutingKey))
			}
			seen[bot.RoutingKey] = true
		}
	case "file":
		check(ValidateNonEmpty(c.Registry.File.Path, "registry.file.path"))
	case "sqlite":
		check(ValidateNonEmpty(c.Registry.SQLite.Path, "registry.sqlite.path"))
	case "mysql":
		mysql := c.Registry.MySQL
		check(ValidateNonEmpty(mysql.Primary.Host, "registry.mysql.primary.host"))
		check(ValidatePort(mysql.Primary.Port, "registry.mysql.primary.port"))
		check(ValidateNonEmpty(mysql.Primary.Database, "registry.mysql.primary.database"))
		check(ValidateNonEmpty(mysql.Primary.Username, "registry.mysql.primary.username"))
		check(ValidateNonEmpty(mysql.Primary.Password, "registry.mysql.primary.password"))

		// Replica validation (if enabled)
		if mysql.Replica.Enabled {
			check(ValidateNonEmpty(mysql.Replica.Host, "registry.mysql.replica.host"))
			check(ValidatePort(mysql.Replica.Port, "registry.mysql.replica.port"))
			check(ValidateNonEmpty(mysql.Replica.Database, "registry.mysql.replica.database"))
			check(ValidateNonEmpty(mysql.Replica.Username, "registry.mysql.replica.username"))
			check(ValidateNonEmpty(mysql.Replica.Password, "registry.mysql.replica.password"))
		}

		// Connection pool validation
		if mysql.Pool.MaxOpenConns < 1 {
			errors = append(errors, "registry.mysql.pool.max_open_conns must be at least 1")
		}
		if mysql.Pool.MaxIdleConns < 0 {
			errors = append(errors, "registry.mysql.pool.max_idle_conns cannot be negative")
		}
		if mysql.Pool.MaxIdleConns > mysql.Pool.MaxOpenConns {
			errors = append(errors, "registry.mysql.pool.max_idle_conns cannot exceed max_open_conns")
		}
	}

	// Slack validation
	if c.Slack.APIURL != "" {
		check(ValidateURL(c.Slack.APIURL, "slack.api_url"))
	}
	if c.Slack.Retry.MaxAttempts < 1 {
		errors = append(errors, "slack.retry.max_attempts must be at least 1")
	}

	// Downstream services
	check(ValidateURL(c.Answer.URL, "answer.url"))
	if c.Answer.Timeout < 0 {
		errors = append(errors, "answer.timeout cannot be negative")
	}
	if c.Answer.CircuitBreaker.MaxFailures < 1 {
		errors = append(errors, "answer.circuit_breaker.max_failures must be at least 1")
	}
	check(ValidateDuration(c.Answer.CircuitBreaker.ResetTimeout, "answer.circuit_breaker.reset_timeout"))
	check(ValidateURL(c.FileUpload.URL, "file_upload.url"))
	check(ValidateDuration(c.Renderer.ImageProbeTimeout, "renderer.image_probe_timeout"))

	// Ledger validation
	check(ValidateDuration(c.Ledger.Retention, "ledger.retention"))
	if c.Ledger.Retention > 0 && c.Ledger.Retention <= c.Auth.MaxRequestAge {
		errors = append(errors, "ledger.retention must be greater than auth.max_request_age")
	}
	check(ValidateSchedule(c.Ledger.PruneSchedule, "ledger.prune_schedule"))

	// Return all validation errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", joinErrors(errors))
	}

	return nil
}

// joinErrors joins multiple error messages with newlines and bullets.
func joinErrors(errors []string) string {
	if len(errors) == 0 {
		return ""
	}
	result := errors[0]
	for i := 1; i < len(errors); i++ {
		result += "\n  - " + errors[i]
	}
	return result
}

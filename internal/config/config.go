package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Parser    ParserConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// UploadConfig holds document upload limits.
type UploadConfig struct {
	MaxFileSizeBytes  int64    `mapstructure:"max_file_size_bytes"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// ProviderConfig holds settings for a single model provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ParserConfig holds model gateway settings with multi-provider fallback.
type ParserConfig struct {
	// Legacy flat fields (single-provider deployments)
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`

	MaxAttempts     int   `mapstructure:"max_attempts"`
	RetryBaseSecs   int   `mapstructure:"retry_base_secs"`
	MaxRequestBytes int64 `mapstructure:"max_request_bytes"`

	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary provider config, falling back to the
// legacy flat fields.
func (p *ParserConfig) PrimaryConfig() *ProviderConfig {
	if p.Primary.Provider != "" {
		return &p.Primary
	}
	return &ProviderConfig{
		Provider:     p.Provider,
		APIKey:       p.APIKey,
		DefaultModel: p.DefaultModel,
		MaxTokens:    p.MaxTokens,
		TimeoutSecs:  p.TimeoutSecs,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (p *ParserConfig) SecondaryConfig() *ProviderConfig {
	if p.Secondary.Provider != "" {
		return &p.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (p *ParserConfig) TertiaryConfig() *ProviderConfig {
	if p.Tertiary.Provider != "" {
		return &p.Tertiary
	}
	return nil
}

// RateLimitConfig holds the process-wide upstream rate limit.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the HOADON_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOADON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// Upload defaults
	v.SetDefault("upload.max_file_size_bytes", 10*1024*1024)
	v.SetDefault("upload.allowed_extensions", "jpg,jpeg,png,pdf")

	// Parser defaults (legacy flat)
	v.SetDefault("parser.provider", "openai")
	v.SetDefault("parser.api_key", "")
	v.SetDefault("parser.default_model", "gpt-4o")
	v.SetDefault("parser.max_tokens", 4096)
	v.SetDefault("parser.timeout_secs", 60)

	v.SetDefault("parser.max_attempts", 3)
	v.SetDefault("parser.retry_base_secs", 1)
	v.SetDefault("parser.max_request_bytes", 20*1024*1024)

	// Parser primary/secondary/tertiary defaults
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("parser."+tier+".provider", "")
		v.SetDefault("parser."+tier+".api_key", "")
		v.SetDefault("parser."+tier+".default_model", "")
		v.SetDefault("parser."+tier+".max_tokens", 4096)
		v.SetDefault("parser."+tier+".timeout_secs", 60)
	}

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_minute", 60)
	v.SetDefault("rate_limit.burst", 10)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "HOADON_SERVER_PORT",
		"server.read_timeout":            "HOADON_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "HOADON_SERVER_WRITE_TIMEOUT",
		"server.environment":             "HOADON_SERVER_ENVIRONMENT",
		"upload.max_file_size_bytes":     "HOADON_UPLOAD_MAX_FILE_SIZE_BYTES",
		"upload.allowed_extensions":      "HOADON_UPLOAD_ALLOWED_EXTENSIONS",
		"parser.provider":                "HOADON_PARSER_PROVIDER",
		"parser.api_key":                 "HOADON_PARSER_API_KEY",
		"parser.default_model":           "HOADON_PARSER_DEFAULT_MODEL",
		"parser.max_tokens":              "HOADON_PARSER_MAX_TOKENS",
		"parser.timeout_secs":            "HOADON_PARSER_TIMEOUT_SECS",
		"parser.max_attempts":            "HOADON_PARSER_MAX_ATTEMPTS",
		"parser.retry_base_secs":         "HOADON_PARSER_RETRY_BASE_SECS",
		"parser.max_request_bytes":       "HOADON_PARSER_MAX_REQUEST_BYTES",
		"parser.primary.provider":        "HOADON_PARSER_PRIMARY_PROVIDER",
		"parser.primary.api_key":         "HOADON_PARSER_PRIMARY_API_KEY",
		"parser.primary.default_model":   "HOADON_PARSER_PRIMARY_DEFAULT_MODEL",
		"parser.primary.max_tokens":      "HOADON_PARSER_PRIMARY_MAX_TOKENS",
		"parser.primary.timeout_secs":    "HOADON_PARSER_PRIMARY_TIMEOUT_SECS",
		"parser.secondary.provider":      "HOADON_PARSER_SECONDARY_PROVIDER",
		"parser.secondary.api_key":       "HOADON_PARSER_SECONDARY_API_KEY",
		"parser.secondary.default_model": "HOADON_PARSER_SECONDARY_DEFAULT_MODEL",
		"parser.secondary.max_tokens":    "HOADON_PARSER_SECONDARY_MAX_TOKENS",
		"parser.secondary.timeout_secs":  "HOADON_PARSER_SECONDARY_TIMEOUT_SECS",
		"parser.tertiary.provider":       "HOADON_PARSER_TERTIARY_PROVIDER",
		"parser.tertiary.api_key":        "HOADON_PARSER_TERTIARY_API_KEY",
		"parser.tertiary.default_model":  "HOADON_PARSER_TERTIARY_DEFAULT_MODEL",
		"parser.tertiary.max_tokens":     "HOADON_PARSER_TERTIARY_MAX_TOKENS",
		"parser.tertiary.timeout_secs":   "HOADON_PARSER_TERTIARY_TIMEOUT_SECS",
		"rate_limit.requests_per_minute": "HOADON_RATE_LIMIT_REQUESTS_PER_MINUTE",
		"rate_limit.burst":               "HOADON_RATE_LIMIT_BURST",
		"cors.allowed_origins":           "HOADON_CORS_ALLOWED_ORIGINS",
		"log.level":                      "HOADON_LOG_LEVEL",
		"log.format":                     "HOADON_LOG_FORMAT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	// Provider API keys may also come from the conventional vendor variables.
	if v.GetString("parser.api_key") == "" {
		for _, env := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
			if key := os.Getenv(env); key != "" {
				v.Set("parser.api_key", key)
				break
			}
		}
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if HOADON_SERVER_PORT
	// is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("HOADON_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}

	cfg.Upload = UploadConfig{
		MaxFileSizeBytes:  v.GetInt64("upload.max_file_size_bytes"),
		AllowedExtensions: splitList(v.GetString("upload.allowed_extensions")),
	}

	cfg.Parser = ParserConfig{
		Provider:        v.GetString("parser.provider"),
		APIKey:          v.GetString("parser.api_key"),
		DefaultModel:    v.GetString("parser.default_model"),
		MaxTokens:       v.GetInt("parser.max_tokens"),
		TimeoutSecs:     v.GetInt("parser.timeout_secs"),
		MaxAttempts:     v.GetInt("parser.max_attempts"),
		RetryBaseSecs:   v.GetInt("parser.retry_base_secs"),
		MaxRequestBytes: v.GetInt64("parser.max_request_bytes"),
		Primary:         providerConfig(v, "primary"),
		Secondary:       providerConfig(v, "secondary"),
		Tertiary:        providerConfig(v, "tertiary"),
	}

	cfg.RateLimit = RateLimitConfig{
		RequestsPerMinute: v.GetInt("rate_limit.requests_per_minute"),
		Burst:             v.GetInt("rate_limit.burst"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	return cfg, nil
}

func providerConfig(v *viper.Viper, tier string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString("parser." + tier + ".provider"),
		APIKey:       v.GetString("parser." + tier + ".api_key"),
		DefaultModel: v.GetString("parser." + tier + ".default_model"),
		MaxTokens:    v.GetInt("parser." + tier + ".max_tokens"),
		TimeoutSecs:  v.GetInt("parser." + tier + ".timeout_secs"),
	}
}

// splitList parses a comma-separated string into a trimmed slice.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

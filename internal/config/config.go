package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Generator GeneratorConfig
	Log       LogConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Archive   ArchiveConfig
	DB        DBConfig
	S3        S3Config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// UploadConfig holds the constraints applied to uploaded documents.
type UploadConfig struct {
	MaxFileSizeMB    int64  `mapstructure:"max_file_size_mb"`
	MinFileSizeBytes int64  `mapstructure:"min_file_size_bytes"`
	MagicSignature   string `mapstructure:"magic_signature"`
	AllowedExtension string `mapstructure:"allowed_extension"`
	ContentType      string `mapstructure:"content_type"`
}

// MaxBytes returns the maximum upload size in bytes.
func (u *UploadConfig) MaxBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// ProviderConfig holds settings for a single generation provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// Timeout returns the provider request timeout, defaulting to 120s.
func (p *ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(p.TimeoutSecs) * time.Second
}

// GeneratorConfig holds LLM generation settings with multi-provider support.
type GeneratorConfig struct {
	// Legacy flat fields
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`

	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary provider config, falling back to legacy flat fields.
func (g *GeneratorConfig) PrimaryConfig() *ProviderConfig {
	if g.Primary.Provider != "" {
		return &g.Primary
	}
	return &ProviderConfig{
		Provider:     g.Provider,
		APIKey:       g.APIKey,
		DefaultModel: g.DefaultModel,
		MaxRetries:   g.MaxRetries,
		TimeoutSecs:  g.TimeoutSecs,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (g *GeneratorConfig) SecondaryConfig() *ProviderConfig {
	if g.Secondary.Provider != "" {
		return &g.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (g *GeneratorConfig) TertiaryConfig() *ProviderConfig {
	if g.Tertiary.Provider != "" {
		return &g.Tertiary
	}
	return nil
}

// Chain returns the configured providers in fallback order.
func (g *GeneratorConfig) Chain() []*ProviderConfig {
	chain := []*ProviderConfig{g.PrimaryConfig()}
	if s := g.SecondaryConfig(); s != nil {
		chain = append(chain, s)
	}
	if t := g.TertiaryConfig(); t != nil {
		chain = append(chain, t)
	}
	return chain
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ArchiveConfig toggles persistence of completed analyses.
type ArchiveConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for archiving source documents.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// Load reads configuration from environment variables with the LABINSIGHT_ prefix.
func Load() (*Config, error) {
	cfg := read()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDB reads only the database settings. Tools that never call a
// generation provider use it so they do not need an API key.
func LoadDB() *DBConfig {
	return &read().DB
}

func read() *Config {
	v := viper.New()
	v.SetEnvPrefix("LABINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 10)
	v.SetDefault("upload.min_file_size_bytes", 100)
	v.SetDefault("upload.magic_signature", "%PDF-")
	v.SetDefault("upload.allowed_extension", ".pdf")
	v.SetDefault("upload.content_type", "application/pdf")

	// Generator defaults (legacy flat)
	v.SetDefault("generator.provider", "gemini")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.default_model", "gemini-2.5-flash")
	v.SetDefault("generator.max_retries", 2)
	v.SetDefault("generator.timeout_secs", 120)

	// Generator primary/secondary/tertiary defaults
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("generator."+tier+".provider", "")
		v.SetDefault("generator."+tier+".api_key", "")
		v.SetDefault("generator."+tier+".default_model", "")
		v.SetDefault("generator."+tier+".max_retries", 2)
		v.SetDefault("generator."+tier+".timeout_secs", 120)
	}

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", "*")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window", "1m")

	// Archive defaults
	v.SetDefault("archive.enabled", false)

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "labinsight")
	v.SetDefault("db.password", "labinsight_secret")
	v.SetDefault("db.name", "labinsight_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                "LABINSIGHT_SERVER_PORT",
		"server.read_timeout":        "LABINSIGHT_SERVER_READ_TIMEOUT",
		"server.write_timeout":       "LABINSIGHT_SERVER_WRITE_TIMEOUT",
		"server.environment":         "LABINSIGHT_SERVER_ENVIRONMENT",
		"upload.max_file_size_mb":    "LABINSIGHT_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.min_file_size_bytes": "LABINSIGHT_UPLOAD_MIN_FILE_SIZE_BYTES",
		"upload.magic_signature":     "LABINSIGHT_UPLOAD_MAGIC_SIGNATURE",
		"upload.allowed_extension":   "LABINSIGHT_UPLOAD_ALLOWED_EXTENSION",
		"upload.content_type":        "LABINSIGHT_UPLOAD_CONTENT_TYPE",
		"generator.provider":         "LABINSIGHT_GENERATOR_PROVIDER",
		"generator.api_key":          "LABINSIGHT_GENERATOR_API_KEY",
		"generator.default_model":    "LABINSIGHT_GENERATOR_DEFAULT_MODEL",
		"generator.max_retries":      "LABINSIGHT_GENERATOR_MAX_RETRIES",
		"generator.timeout_secs":     "LABINSIGHT_GENERATOR_TIMEOUT_SECS",
		"log.level":                  "LABINSIGHT_LOG_LEVEL",
		"log.format":                 "LABINSIGHT_LOG_FORMAT",
		"cors.allowed_origins":       "LABINSIGHT_CORS_ALLOWED_ORIGINS",
		"rate_limit.enabled":         "LABINSIGHT_RATE_LIMIT_ENABLED",
		"rate_limit.requests":        "LABINSIGHT_RATE_LIMIT_REQUESTS",
		"rate_limit.window":          "LABINSIGHT_RATE_LIMIT_WINDOW",
		"archive.enabled":            "LABINSIGHT_ARCHIVE_ENABLED",
		"db.host":                    "LABINSIGHT_DB_HOST",
		"db.port":                    "LABINSIGHT_DB_PORT",
		"db.user":                    "LABINSIGHT_DB_USER",
		"db.password":                "LABINSIGHT_DB_PASSWORD",
		"db.name":                    "LABINSIGHT_DB_NAME",
		"db.sslmode":                 "LABINSIGHT_DB_SSLMODE",
		"db.max_open":                "LABINSIGHT_DB_MAX_OPEN",
		"db.max_idle":                "LABINSIGHT_DB_MAX_IDLE",
		"s3.region":                  "LABINSIGHT_S3_REGION",
		"s3.bucket":                  "LABINSIGHT_S3_BUCKET",
		"s3.endpoint":                "LABINSIGHT_S3_ENDPOINT",
		"s3.access_key":              "LABINSIGHT_S3_ACCESS_KEY",
		"s3.secret_key":              "LABINSIGHT_S3_SECRET_KEY",
		"s3.presign_expiry":          "LABINSIGHT_S3_PRESIGN_EXPIRY",
	}
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		for _, field := range []string{"provider", "api_key", "default_model", "max_retries", "timeout_secs"} {
			key := "generator." + tier + "." + field
			envBindings[key] = "LABINSIGHT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Cloud platforms set a bare PORT. Use it if LABINSIGHT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("LABINSIGHT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB:    v.GetInt64("upload.max_file_size_mb"),
		MinFileSizeBytes: v.GetInt64("upload.min_file_size_bytes"),
		MagicSignature:   v.GetString("upload.magic_signature"),
		AllowedExtension: strings.ToLower(v.GetString("upload.allowed_extension")),
		ContentType:      v.GetString("upload.content_type"),
	}
	cfg.Generator = GeneratorConfig{
		Provider:     v.GetString("generator.provider"),
		APIKey:       v.GetString("generator.api_key"),
		DefaultModel: v.GetString("generator.default_model"),
		MaxRetries:   v.GetInt("generator.max_retries"),
		TimeoutSecs:  v.GetInt("generator.timeout_secs"),
		Primary:      loadProvider(v, "primary"),
		Secondary:    loadProvider(v, "secondary"),
		Tertiary:     loadProvider(v, "tertiary"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.RateLimit = RateLimitConfig{
		Enabled:  v.GetBool("rate_limit.enabled"),
		Requests: v.GetInt("rate_limit.requests"),
		Window:   v.GetDuration("rate_limit.window"),
	}
	cfg.Archive = ArchiveConfig{Enabled: v.GetBool("archive.enabled")}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	return cfg
}

func loadProvider(v *viper.Viper, tier string) ProviderConfig {
	prefix := "generator." + tier + "."
	return ProviderConfig{
		Provider:     v.GetString(prefix + "provider"),
		APIKey:       v.GetString(prefix + "api_key"),
		DefaultModel: v.GetString(prefix + "default_model"),
		MaxRetries:   v.GetInt(prefix + "max_retries"),
		TimeoutSecs:  v.GetInt(prefix + "timeout_secs"),
	}
}

func (c *Config) validate() error {
	if c.Generator.PrimaryConfig().APIKey == "" {
		return fmt.Errorf("generator api key is required (LABINSIGHT_GENERATOR_API_KEY)")
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("upload.max_file_size_mb must be positive")
	}
	if c.Upload.MinFileSizeBytes < 0 || c.Upload.MinFileSizeBytes > c.Upload.MaxBytes() {
		return fmt.Errorf("upload.min_file_size_bytes must be between 0 and the maximum size")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kr1s57/lookupx/internal/adapter/external/riskintel"
)

type Config struct {
	App       AppConfig
	Cache     CacheConfig
	Providers ProvidersConfig
	Batch     BatchConfig
	HTTP      HTTPConfig
}

type AppConfig struct {
	Env  string
	Port int
	Host string
}

type CacheConfig struct {
	// RedisURL selects the Redis backend; empty keeps results in memory
	RedisURL        string
	TTL             time.Duration
	CleanupInterval time.Duration
}

type ProvidersConfig struct {
	Credentials       riskintel.Credentials
	Timeout           time.Duration
	PolicyFile        string
	DisposableDomains []string
	Dedup             bool
}

type BatchConfig struct {
	Size           int
	MaxIdentifiers int
}

type HTTPConfig struct {
	CORSAllowedOrigins []string
	RateLimit          int // requests per minute per client IP, 0 disables
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env is the normal production case
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	v.AddConfigPath("/etc/lookupx")

	v.AutomaticEnv()
	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("Error reading config file", "error", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		App: AppConfig{
			Env:  v.GetString("APP_ENV"),
			Port: v.GetInt("APP_PORT"),
			Host: v.GetString("APP_HOST"),
		},
		Cache: CacheConfig{
			RedisURL:        v.GetString("REDIS_URL"),
			TTL:             time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
			CleanupInterval: durationOrSeconds(v, "CACHE_CLEANUP_INTERVAL"),
		},
		Providers: ProvidersConfig{
			Credentials: riskintel.Credentials{
				AbuseIPDB:        v.GetString("ABUSEIPDB_API_KEY"),
				IPQualityScore:   v.GetString("IPQUALITYSCORE_API_KEY"),
				IPInfo:           v.GetString("IPINFO_API_KEY"),
				ProxyCheck:       v.GetString("PROXYCHECK_API_KEY"),
				EmailRep:         v.GetString("EMAILREP_API_KEY"),
				ZeroBounce:       v.GetString("ZEROBOUNCE_API_KEY"),
				AbstractAPIEmail: v.GetString("ABSTRACTAPI_EMAIL_KEY"),
				Numverify:        v.GetString("NUMVERIFY_API_KEY"),
				AbstractAPIPhone: v.GetString("ABSTRACTAPI_PHONE_KEY"),
				Veriphone:        v.GetString("VERIPHONE_API_KEY"),
			},
			Timeout:           durationOrSeconds(v, "PROVIDER_TIMEOUT"),
			PolicyFile:        v.GetString("PROVIDER_POLICY_FILE"),
			DisposableDomains: splitList(v.GetString("DISPOSABLE_DOMAINS")),
			Dedup:             v.GetBool("LOOKUP_DEDUP"),
		},
		Batch: BatchConfig{
			Size:           v.GetInt("BATCH_SIZE"),
			MaxIdentifiers: v.GetInt("BATCH_MAX_IDENTIFIERS"),
		},
		HTTP: HTTPConfig{
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			RateLimit:          v.GetInt("HTTP_RATE_LIMIT"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid APP_PORT %d", c.App.Port)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if c.Providers.Timeout < time.Millisecond {
		return fmt.Errorf("PROVIDER_TIMEOUT %s is below 1ms", c.Providers.Timeout)
	}
	if c.Cache.CleanupInterval < time.Millisecond {
		return fmt.Errorf("CACHE_CLEANUP_INTERVAL %s is below 1ms", c.Cache.CleanupInterval)
	}
	if c.Batch.Size <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	if c.Batch.MaxIdentifiers < c.Batch.Size {
		return fmt.Errorf("BATCH_MAX_IDENTIFIERS (%d) below BATCH_SIZE (%d)", c.Batch.MaxIdentifiers, c.Batch.Size)
	}
	return nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("APP_ENV")
	v.BindEnv("APP_PORT")
	v.BindEnv("APP_HOST")

	// Cache
	v.BindEnv("REDIS_URL")
	v.BindEnv("CACHE_TTL_SECONDS")
	v.BindEnv("CACHE_CLEANUP_INTERVAL")

	// Provider credentials
	v.BindEnv("ABUSEIPDB_API_KEY")
	v.BindEnv("IPQUALITYSCORE_API_KEY")
	v.BindEnv("IPINFO_API_KEY")
	v.BindEnv("PROXYCHECK_API_KEY")
	v.BindEnv("EMAILREP_API_KEY")
	v.BindEnv("ZEROBOUNCE_API_KEY")
	v.BindEnv("ABSTRACTAPI_EMAIL_KEY")
	v.BindEnv("NUMVERIFY_API_KEY")
	v.BindEnv("ABSTRACTAPI_PHONE_KEY")
	v.BindEnv("VERIPHONE_API_KEY")

	// Provider behavior
	v.BindEnv("PROVIDER_TIMEOUT")
	v.BindEnv("PROVIDER_POLICY_FILE")
	v.BindEnv("DISPOSABLE_DOMAINS")
	v.BindEnv("LOOKUP_DEDUP")

	// Batch
	v.BindEnv("BATCH_SIZE")
	v.BindEnv("BATCH_MAX_IDENTIFIERS")

	// HTTP
	v.BindEnv("CORS_ALLOWED_ORIGINS")
	v.BindEnv("HTTP_RATE_LIMIT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", 3001)
	v.SetDefault("APP_HOST", "0.0.0.0")

	// Cache defaults
	v.SetDefault("CACHE_TTL_SECONDS", 86400)
	v.SetDefault("CACHE_CLEANUP_INTERVAL", 10*time.Minute)

	// Provider defaults
	v.SetDefault("PROVIDER_TIMEOUT", riskintel.DefaultTimeout)
	v.SetDefault("LOOKUP_DEDUP", true)

	// Batch defaults
	v.SetDefault("BATCH_SIZE", 10)
	v.SetDefault("BATCH_MAX_IDENTIFIERS", 50)

	// HTTP defaults
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("HTTP_RATE_LIMIT", 100)
}

// durationOrSeconds reads key as a duration; a bare number means seconds
func durationOrSeconds(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(n * float64(time.Second))
	}
	return v.GetDuration(key)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func SetupLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"whistlemcp/internal/domain"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	RateStoreMemory = "memory"
	RateStoreRedis  = "redis"
)

// Config is the resolved server configuration. Values come from defaults,
// an optional YAML file, and WHISTLE_-prefixed environment variables, in
// ascending precedence.
type Config struct {
	Environment          string        `mapstructure:"environment"`
	Transport            string        `mapstructure:"transport"`
	ListenAddress        string        `mapstructure:"listenAddress"`
	ObservabilityAddress string        `mapstructure:"observabilityAddress"`
	MetricsEnabled       bool          `mapstructure:"metricsEnabled"`
	LogLevel             string        `mapstructure:"logLevel"`
	BackendBaseURL       string        `mapstructure:"backendBaseURL"`
	APIKey               string        `mapstructure:"apiKey"`
	OpenAIAPIKey         string        `mapstructure:"openaiAPIKey"`
	MaxRetries           int           `mapstructure:"maxRetries"`
	RetryBaseDelay       time.Duration `mapstructure:"retryBaseDelay"`
	RetryMaxDelay        time.Duration `mapstructure:"retryMaxDelay"`
	RequestTimeout       time.Duration `mapstructure:"requestTimeout"`
	RateLimitStore       string        `mapstructure:"rateLimitStore"`
	RedisAddress         string        `mapstructure:"redisAddress"`
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func newConfigViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	}
	setDefaults(v)
	v.SetEnvPrefix("WHISTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("transport", TransportHTTP)
	v.SetDefault("listenAddress", "0.0.0.0:8080")
	v.SetDefault("observabilityAddress", "0.0.0.0:9090")
	v.SetDefault("metricsEnabled", true)
	v.SetDefault("logLevel", "")
	v.SetDefault("backendBaseURL", domain.DefaultBackendBaseURL)
	// Empty defaults keep these keys visible to AutomaticEnv.
	v.SetDefault("apiKey", "")
	v.SetDefault("openaiAPIKey", "")
	v.SetDefault("maxRetries", domain.DefaultMaxRetries)
	v.SetDefault("retryBaseDelay", domain.DefaultRetryBaseDelay)
	v.SetDefault("retryMaxDelay", domain.DefaultRetryMaxDelay)
	v.SetDefault("requestTimeout", domain.DefaultRequestTimeout)
	v.SetDefault("rateLimitStore", RateStoreMemory)
	v.SetDefault("redisAddress", "127.0.0.1:6379")
}

// Load reads the configuration. A missing config file is not an error;
// defaults and environment still apply. A .env file in the working
// directory is folded into the environment first, without overriding
// variables already set.
func Load(path string) (Config, error) {
	loadDotEnv()

	v := newConfigViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyEnvironmentDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv() {
	values, err := godotenv.Read(".env")
	if err != nil {
		return
	}
	for key, value := range values {
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}

func applyEnvironmentDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		if cfg.IsProduction() {
			cfg.LogLevel = "info"
		} else {
			cfg.LogLevel = "debug"
		}
	}
	// Platform-injected port wins over the configured listen address.
	if port := os.Getenv("PORT"); port != "" {
		cfg.ListenAddress = "0.0.0.0:" + port
	}
}

func (c Config) Validate() error {
	switch c.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("config: environment must be development, staging or production, got %q", c.Environment)
	}
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("config: transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport)
	}
	if c.BackendBaseURL == "" {
		return errors.New("config: backendBaseURL is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: maxRetries must be >= 1, got %d", c.MaxRetries)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: requestTimeout must be > 0, got %s", c.RequestTimeout)
	}
	switch c.RateLimitStore {
	case RateStoreMemory:
	case RateStoreRedis:
		if c.RedisAddress == "" {
			return errors.New("config: redisAddress is required when rateLimitStore is redis")
		}
	default:
		return fmt.Errorf("config: rateLimitStore must be %q or %q, got %q", RateStoreMemory, RateStoreRedis, c.RateLimitStore)
	}
	return nil
}

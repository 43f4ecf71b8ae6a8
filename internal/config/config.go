package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Stats     StatsConfig
}

type AppConfig struct {
	Port string
	// BaseDomain is the public domain used to compose short URLs,
	// e.g. "https://wey.sh".
	BaseDomain string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host string
	Port string
}

type AuthConfig struct {
	APIKeys map[string]string // API key -> name/description
}

type RateLimitConfig struct {
	// Per-IP limits for the HTTP surface.
	RequestsPerSecond float64
	BurstSize         int
}

type SecurityConfig struct {
	// LinksPerWindow caps link creations per identity inside a rolling window.
	LinksPerWindow int
	Window         time.Duration
	// BlockedDomains is merged with the built-in blocklist.
	BlockedDomains []string
	MaxURLLength   int
	ProbeTimeout   time.Duration
}

type StatsConfig struct {
	// Timezone is the reference zone for "today" in click counts.
	Timezone string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// .env is optional; environment variables alone are enough.
	_ = viper.ReadInConfig()

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	cfg.App.BaseDomain = viper.GetString("BASE_DOMAIN")
	if cfg.App.BaseDomain == "" {
		cfg.App.BaseDomain = "http://localhost:" + cfg.App.Port
	}
	cfg.App.BaseDomain = strings.TrimSuffix(cfg.App.BaseDomain, "/")

	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")

	// Auth config - parse API keys from comma-separated string
	// Format: key1:name1,key2:name2
	cfg.Auth.APIKeys = parseAPIKeys(viper.GetString("API_KEYS"))

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Security.LinksPerWindow = viper.GetInt("LINKS_PER_HOUR")
	if cfg.Security.LinksPerWindow == 0 {
		cfg.Security.LinksPerWindow = 10
	}
	cfg.Security.Window = time.Hour
	cfg.Security.BlockedDomains = splitAndTrim(viper.GetString("BLOCKED_DOMAINS"))
	cfg.Security.MaxURLLength = viper.GetInt("MAX_URL_LENGTH")
	if cfg.Security.MaxURLLength == 0 {
		cfg.Security.MaxURLLength = 2000
	}
	probeSeconds := viper.GetInt("PROBE_TIMEOUT_SECONDS")
	if probeSeconds == 0 {
		probeSeconds = 5
	}
	cfg.Security.ProbeTimeout = time.Duration(probeSeconds) * time.Second

	cfg.Stats.Timezone = viper.GetString("STATS_TIMEZONE")
	if cfg.Stats.Timezone == "" {
		cfg.Stats.Timezone = "UTC"
	}

	return &cfg, nil
}

// parseAPIKeys parses comma-separated API keys in format "key1:name1,key2:name2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

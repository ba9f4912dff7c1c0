package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`

	DatabaseDSN string `mapstructure:"database_dsn"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	StripeAPIKey        string `mapstructure:"stripe_api_key"`
	StripeWebhookSecret string `mapstructure:"stripe_webhook_secret"`
	StripeAPIVersion    string `mapstructure:"stripe_api_version"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SMTPFrom     string `mapstructure:"smtp_from"`
}

// Load reads configuration from the environment, with an optional .env file
// for local development. Secrets are injected here and passed to constructors
// explicitly; nothing reads the environment after startup.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SUBTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database_dsn", "")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("stripe_api_key", "")
	v.SetDefault("stripe_webhook_secret", "")
	v.SetDefault("stripe_api_version", "2023-10-16")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_from", "")

	keys := []string{
		"http_addr", "database_dsn",
		"redis_addr", "redis_password", "redis_db",
		"stripe_api_key", "stripe_webhook_secret", "stripe_api_version",
		"smtp_host", "smtp_port", "smtp_username", "smtp_password", "smtp_from",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

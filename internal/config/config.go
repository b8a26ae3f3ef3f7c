package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
)

// Config is loaded once at startup from the environment (a .env file is
// picked up automatically) and treated as immutable.
type Config struct {
	BotToken      string `env:"BOT_TOKEN,required,notEmpty"`
	WebhookURL    string `env:"WEBHOOK_URL,required,notEmpty"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8080"`
	DBPath        string `env:"DB_PATH" envDefault:"reminder.db"`

	// Webhook rate limit, requests per second per remote address.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"30"`
	RateBurst int     `env:"RATE_BURST" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

package identity

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every tunable the identity core needs. It is loaded once
// at startup and treated as immutable; components receive it explicitly at
// construction time.
type Config struct {
	SigningKey string `env:"JWT_SECRET,required"`
	Issuer     string `env:"JWT_ISSUER" envDefault:"eitsa"`

	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`

	HTTPPort string `env:"PORT" envDefault:"3000"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	GoogleMapsAPIKey string `env:"GOOGLE_MAPS_API_KEY"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

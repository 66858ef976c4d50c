package config

import (
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port          string        `envconfig:"API_PORT" default:"8080"`
	StoreDriver   string        `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI      string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string        `envconfig:"MONGO_DATABASE" default:"vetclinic"`
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	FrontendURL   string        `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string        `envconfig:"LOG_FORMAT" default:"json"`
	RedisURL      string        `envconfig:"REDIS_URL"`
	// TrustedProxies lists proxy IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	Admin  AdminConfig  `envconfig:"ADMIN"`
	Tokens TokenConfig  `envconfig:"TOKEN"`
	SMTP   SMTPConfig   `envconfig:"SMTP"`
	SMS    SMSConfig    `envconfig:"TEXTBELT"`
	Notify NotifyConfig `envconfig:"NOTIFY"`
	Login  LoginConfig  `envconfig:"LOGIN"`
}

// AdminConfig holds the credentials of the account created when no admin exists.
type AdminConfig struct {
	Name     string `envconfig:"NAME" default:"Super Admin"`
	Email    string `envconfig:"EMAIL" default:"admin@vetclinic.com"`
	Password string `envconfig:"PASSWORD" default:"Admin123!"`
}

type TokenConfig struct {
	ConfirmationTTL time.Duration `envconfig:"CONFIRMATION_TTL" default:"72h"`
	ResetTTL        time.Duration `envconfig:"RESET_TTL" default:"1h"`
}

type SMTPConfig struct {
	Host string `envconfig:"HOST"`
	Port int    `envconfig:"PORT" default:"587"`
	User string `envconfig:"USER"`
	Pass string `envconfig:"PASS"`
	From string `envconfig:"FROM" default:"Clínica Veterinaria <administracion@clinicaveterinaria.com>"`
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" }

type SMSConfig struct {
	APIKey string `envconfig:"API_KEY"`
	URL    string `envconfig:"URL" default:"https://textbelt.com/text"`
}

func (c SMSConfig) Enabled() bool { return c.APIKey != "" }

type NotifyConfig struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	Backoff     time.Duration `envconfig:"BACKOFF" default:"2s"`
}

// LoginConfig bounds the per-IP request rate on login and password-reset endpoints.
type LoginConfig struct {
	RatePerMinute float64 `envconfig:"RATE_PER_MINUTE" default:"10"`
	Burst         int     `envconfig:"BURST" default:"5"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, relying on environment variables.")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", p)
			}
		}
	}
	if c.Notify.MaxAttempts < 1 {
		c.Notify.MaxAttempts = 1
	}
	return nil
}

// README: Config loader; every setting comes from TAXI_* environment variables with defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPConfig struct {
	Addr            string        `env:"TAXI_HTTP_ADDR" env-default:":8080" env-description:"HTTP listen address"`
	ShutdownTimeout time.Duration `env:"TAXI_HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DBConfig struct {
	DSN           string `env:"TAXI_DB_DSN" env-description:"Postgres DSN; bookings are kept in memory when empty"`
	MigrationsDir string `env:"TAXI_DB_MIGRATIONS" env-default:"migrations" env-description:"directory of *.sql files applied at startup"`
}

type RedisConfig struct {
	Addr string `env:"TAXI_REDIS_ADDR" env-description:"Redis address for the distance cache; disabled when empty"`
}

type MapsConfig struct {
	APIKey           string        `env:"TAXI_MAPS_API_KEY" env-description:"Google Maps API key; distance lookup disabled when empty"`
	Region           string        `env:"TAXI_MAPS_REGION" env-default:"in" env-description:"region bias for place search"`
	Timeout          time.Duration `env:"TAXI_MAPS_TIMEOUT" env-default:"5s"`
	DistanceCacheTTL time.Duration `env:"TAXI_DISTANCE_CACHE_TTL" env-default:"24h"`
}

type KafkaConfig struct {
	Brokers       []string `env:"TAXI_KAFKA_BROKERS" env-separator:"," env-description:"Kafka brokers; events are dropped when empty"`
	BookingsTopic string   `env:"TAXI_KAFKA_TOPIC_BOOKINGS" env-default:"bookings"`
}

type FirebaseConfig struct {
	ProjectID       string `env:"TAXI_FIREBASE_PROJECT_ID" env-description:"Firebase project; auth disabled when empty"`
	CredentialsFile string `env:"TAXI_FIREBASE_CREDENTIALS"`
}

type LoggerConfig struct {
	Level  string `env:"TAXI_LOG_LEVEL" env-default:"info"`
	Format string `env:"TAXI_LOG_FORMAT" env-default:"json"`
	File   string `env:"TAXI_LOG_FILE"`
}

// PricingConfig selects where the rate table comes from.
type PricingConfig struct {
	RateSource         string `env:"TAXI_RATE_SOURCE" env-default:"default" env-description:"default, file or db"`
	RateFile           string `env:"TAXI_RATE_FILE"`
	Timezone           string `env:"TAXI_TIMEZONE" env-description:"IANA zone for the night window; pickup time zone when empty"`
	Currency           string `env:"TAXI_CURRENCY" env-default:"INR"`
	FreeWaitingMinutes int    `env:"TAXI_FREE_WAITING_MINUTES" env-default:"0"`
}

type Config struct {
	HTTP     HTTPConfig
	DB       DBConfig
	Redis    RedisConfig
	Maps     MapsConfig
	Kafka    KafkaConfig
	Firebase FirebaseConfig
	Logger   LoggerConfig
	Pricing  PricingConfig
}

const (
	RateSourceDefault = "default"
	RateSourceFile    = "file"
	RateSourceDB      = "db"
)

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Pricing.RateSource) {
	case RateSourceDefault:
	case RateSourceFile:
		if c.Pricing.RateFile == "" {
			return fmt.Errorf("TAXI_RATE_FILE is required when TAXI_RATE_SOURCE=file")
		}
	case RateSourceDB:
		if c.DB.DSN == "" {
			return fmt.Errorf("TAXI_DB_DSN is required when TAXI_RATE_SOURCE=db")
		}
	default:
		return fmt.Errorf("unknown TAXI_RATE_SOURCE %q", c.Pricing.RateSource)
	}
	if c.Pricing.FreeWaitingMinutes < 0 {
		return fmt.Errorf("TAXI_FREE_WAITING_MINUTES must be >= 0")
	}
	return nil
}

// Usage lists every supported variable, for -h output.
func Usage() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config agrupa la configuración necesaria para correr la aplicación.
type Config struct {
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	Port           string        `envconfig:"PORT" default:"8080"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	TxTimeout      time.Duration `envconfig:"DB_TX_TIMEOUT" default:"15s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	JWTSecret      string        `envconfig:"JWT_SECRET"`
	JWTTTL         time.Duration `envconfig:"JWT_TTL" default:"8h"`
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	Users          Credentials   `envconfig:"AUTH_USERS"`
	LoginRateLimit int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
}

// UserCredential es una entrada del almacén fijo de credenciales.
type UserCredential struct {
	Username     string
	SupplierID   int64
	PasswordHash string
}

// Credentials decodifica AUTH_USERS con el formato "usuario:idProveedor:hashBcrypt;...".
type Credentials []UserCredential

// Decode implementa envconfig.Decoder.
func (credentials *Credentials) Decode(value string) error {
	var out Credentials
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("AUTH_USERS: invalid entry %q", entry)
		}
		supplierID, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || supplierID <= 0 {
			return fmt.Errorf("AUTH_USERS: invalid supplier id for user %q", parts[0])
		}
		out = append(out, UserCredential{
			Username:     strings.TrimSpace(parts[0]),
			SupplierID:   supplierID,
			PasswordHash: strings.TrimSpace(parts[2]),
		})
	}
	*credentials = out
	return nil
}

// Load lee variables de entorno (y un .env opcional) y valida lo mínimo indispensable.
func Load() (Config, error) {
	// El .env es opcional; las variables ya definidas tienen prioridad.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	// Normalizamos por si alguien manda ":8080"
	cfg.Port = strings.TrimPrefix(cfg.Port, ":")

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing required env var: DATABASE_URL")
	}

	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return cfg, nil
}

// IsProduction indica si la app corre en producción.
func (cfg Config) IsProduction() bool {
	return cfg.AppEnv == "production"
}

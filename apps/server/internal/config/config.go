package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the relay configuration.
type Config struct {
	Addr        string `validate:"required"`
	Version     string
	Environment string `validate:"oneof=dev staging prod"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	LedgerMode string `validate:"oneof=memory sqlite postgres"`
	LedgerDSN  string `validate:"required_if=LedgerMode postgres"`
	SQLitePath string `validate:"required_if=LedgerMode sqlite"`

	MaxRooms    int           `validate:"gte=1"`
	RoomIdleTTL time.Duration `validate:"gte=1s"`
	TicketTTL   time.Duration `validate:"gte=1s"`

	AllowedOrigins []string `validate:"dive,url|eq=*"`

	ArtEndpoint string `validate:"omitempty,url"`
	ArtAPIKey   string
	ArtModel    string
}

// Load reads the environment, loading .env first when one exists.
func Load() (*Config, error) {
	// a missing .env is fine, real env vars win anyway
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getEnv("ADDR", ":8080"),
		Version:        getEnv("VERSION", "dev"),
		Environment:    strings.ToLower(getEnv("ENVIRONMENT", "dev")),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LedgerMode:     strings.ToLower(getEnv("LEDGER_MODE", "memory")),
		LedgerDSN:      firstEnv("LEDGER_DATABASE_DSN", "DATABASE_URL"),
		SQLitePath:     getEnv("LEDGER_SQLITE_PATH", "cookduel.db"),
		AllowedOrigins: getList("ALLOWED_ORIGINS"),
		ArtEndpoint:    getEnv("ART_ENDPOINT", ""),
		ArtAPIKey:      getEnv("ART_API_KEY", ""),
		ArtModel:       getEnv("ART_MODEL", "flux"),
	}

	var err error
	if cfg.MaxRooms, err = getInt("MAX_ROOMS", 200); err != nil {
		return nil, err
	}
	if cfg.RoomIdleTTL, err = getDuration("ROOM_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TicketTTL, err = getDuration("TICKET_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and reports every failing field by env-style name.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Field(), e.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// getList splits a comma-separated value, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}

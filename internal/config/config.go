// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes database, server
// query, channel, command throttle, ops HTTP, logging, and observability
// settings.
//
// Each recognized setting maps one dotted key of the deployment config to an
// environment variable: database.host -> DATABASE_HOST, teamspeak.user ->
// TEAMSPEAK_USER, channel.name -> CHANNEL_NAME, and so on. Layered `.env`
// files are loaded by the main package before Load runs; process environment
// always wins over file-provided values.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig selects and parameterizes the storage backend.
type DatabaseConfig struct {
	Driver   string // DATABASE_DRIVER: sqlite|postgres
	Path     string // DATABASE_PATH (sqlite file)
	Host     string // DATABASE_HOST
	Port     string // DATABASE_PORT
	Name     string // DATABASE_NAME
	User     string // DATABASE_USER
	Password string // DATABASE_PASSWORD
}

// TeamspeakConfig parameterizes the server query connection.
type TeamspeakConfig struct {
	Host            string        // TEAMSPEAK_HOST
	Port            string        // TEAMSPEAK_PORT (query port)
	User            string        // TEAMSPEAK_USER
	Password        string        // TEAMSPEAK_PASSWORD
	ServerID        int           // TEAMSPEAK_SERVER_ID (virtual server)
	Nickname        string        // BOT_NICKNAME
	ConnectAttempts int           // CONNECT_ATTEMPTS (0 = retry forever)
	ConnectBackoff  time.Duration // CONNECT_BACKOFF (initial backoff)
}

// ChannelConfig names the channel the query identity lives in.
type ChannelConfig struct {
	Name        string // CHANNEL_NAME
	Description string // CHANNEL_DESCRIPTION
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	Database  DatabaseConfig
	Teamspeak TeamspeakConfig
	Channel   ChannelConfig

	// Commands
	Locale       string  // BOT_LOCALE: BCP 47 tag for confirmations
	CommandRPS   float64 // COMMAND_RPS: per-client command tokens/second
	CommandBurst int     // COMMAND_BURST: per-client command burst

	// Ops HTTP
	HTTPEnabled bool   // HTTP_ENABLED
	HTTPPort    string // HTTP_PORT
	GinMode     string // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getenv("DATABASE_DRIVER", "sqlite")),
			Path:     getenv("DATABASE_PATH", "tsoracle.db"),
			Host:     getenv("DATABASE_HOST", "localhost"),
			Port:     getenv("DATABASE_PORT", "5432"),
			Name:     getenv("DATABASE_NAME", "tsoracle"),
			User:     getenv("DATABASE_USER", ""),
			Password: getenv("DATABASE_PASSWORD", ""),
		},
		Teamspeak: TeamspeakConfig{
			Host:            getenv("TEAMSPEAK_HOST", "localhost"),
			Port:            getenv("TEAMSPEAK_PORT", "10011"),
			User:            getenv("TEAMSPEAK_USER", "serveradmin"),
			Password:        getenv("TEAMSPEAK_PASSWORD", ""),
			ServerID:        getint("TEAMSPEAK_SERVER_ID", 1),
			Nickname:        getenv("BOT_NICKNAME", "Das Orakel"),
			ConnectAttempts: getint("CONNECT_ATTEMPTS", 10),
			ConnectBackoff:  getdur("CONNECT_BACKOFF", 2*time.Second),
		},
		Channel: ChannelConfig{
			Name:        getenv("CHANNEL_NAME", "Orakelkanal"),
			Description: getenv("CHANNEL_DESCRIPTION", ""),
		},

		Locale:       getenv("BOT_LOCALE", "de"),
		CommandRPS:   getfloat("COMMAND_RPS", 0.2),
		CommandBurst: getint("COMMAND_BURST", 3),

		HTTPEnabled: getbool("HTTP_ENABLED", true),
		HTTPPort:    getenv("HTTP_PORT", "8080"),
		GinMode:     strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "tsoracle"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Database.Path) == "" {
			return cfg, errors.New("DATABASE_PATH must not be empty for the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return cfg, errors.New("DATABASE_HOST and DATABASE_NAME must not be empty for the postgres driver")
		}
		if strings.TrimSpace(cfg.Database.User) == "" {
			return cfg, errors.New("DATABASE_USER must not be empty for the postgres driver")
		}
	default:
		return cfg, errors.New("DATABASE_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Teamspeak.Host) == "" {
		return cfg, errors.New("TEAMSPEAK_HOST must not be empty")
	}
	if cfg.Teamspeak.ServerID < 1 {
		return cfg, errors.New("TEAMSPEAK_SERVER_ID must be >= 1")
	}
	if cfg.Teamspeak.ConnectAttempts < 0 {
		return cfg, errors.New("CONNECT_ATTEMPTS must be >= 0")
	}
	if cfg.Teamspeak.ConnectBackoff <= 0 {
		return cfg, errors.New("CONNECT_BACKOFF must be a positive duration")
	}
	if strings.TrimSpace(cfg.Channel.Name) == "" {
		return cfg, errors.New("CHANNEL_NAME must not be empty")
	}
	if cfg.CommandRPS < 0 {
		return cfg, errors.New("COMMAND_RPS must be >= 0")
	}
	if cfg.CommandBurst < 1 {
		return cfg, errors.New("COMMAND_BURST must be >= 1")
	}
	if cfg.HTTPEnabled && strings.TrimSpace(cfg.HTTPPort) == "" {
		return cfg, errors.New("HTTP_PORT must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

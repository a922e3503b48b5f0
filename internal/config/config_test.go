package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host environment leakage
// cannot skew the defaults under test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_DRIVER", "DATABASE_PATH", "DATABASE_HOST", "DATABASE_PORT",
		"DATABASE_NAME", "DATABASE_USER", "DATABASE_PASSWORD",
		"TEAMSPEAK_HOST", "TEAMSPEAK_PORT", "TEAMSPEAK_USER", "TEAMSPEAK_PASSWORD",
		"TEAMSPEAK_SERVER_ID", "BOT_NICKNAME", "CONNECT_ATTEMPTS", "CONNECT_BACKOFF",
		"CHANNEL_NAME", "CHANNEL_DESCRIPTION",
		"BOT_LOCALE", "COMMAND_RPS", "COMMAND_BURST",
		"HTTP_ENABLED", "HTTP_PORT", "GIN_MODE",
		"LOG_LEVEL", "LOG_PRETTY",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "tsoracle.db" {
		t.Fatalf("database defaults: %+v", cfg.Database)
	}
	if cfg.Teamspeak.Host != "localhost" || cfg.Teamspeak.Port != "10011" {
		t.Fatalf("teamspeak defaults: %+v", cfg.Teamspeak)
	}
	if cfg.Teamspeak.User != "serveradmin" || cfg.Teamspeak.ServerID != 1 {
		t.Fatalf("teamspeak defaults: %+v", cfg.Teamspeak)
	}
	if cfg.Teamspeak.Nickname != "Das Orakel" {
		t.Fatalf("nickname default: %q", cfg.Teamspeak.Nickname)
	}
	if cfg.Teamspeak.ConnectAttempts != 10 || cfg.Teamspeak.ConnectBackoff != 2*time.Second {
		t.Fatalf("retry defaults: %+v", cfg.Teamspeak)
	}
	if cfg.Channel.Name != "Orakelkanal" {
		t.Fatalf("channel default: %q", cfg.Channel.Name)
	}
	if cfg.Locale != "de" || cfg.CommandRPS != 0.2 || cfg.CommandBurst != 3 {
		t.Fatalf("command defaults: locale=%q rps=%v burst=%d", cfg.Locale, cfg.CommandRPS, cfg.CommandBurst)
	}
	if !cfg.HTTPEnabled || cfg.HTTPPort != "8080" || cfg.GinMode != "release" {
		t.Fatalf("http defaults: %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.LogPretty {
		t.Fatalf("log defaults: level=%q pretty=%v", cfg.LogLevel, cfg.LogPretty)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.ServiceName != "tsoracle" || cfg.OTEL.SampleRatio != 1.0 {
		t.Fatalf("otel defaults: %+v", cfg.OTEL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_NAME", "audit")
	t.Setenv("DATABASE_USER", "bot")
	t.Setenv("TEAMSPEAK_HOST", "ts.example.org")
	t.Setenv("TEAMSPEAK_SERVER_ID", "3")
	t.Setenv("CONNECT_ATTEMPTS", "0")
	t.Setenv("CONNECT_BACKOFF", "500ms")
	t.Setenv("BOT_LOCALE", "en")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "weird")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver not lowercased: %q", cfg.Database.Driver)
	}
	if cfg.Teamspeak.Host != "ts.example.org" || cfg.Teamspeak.ServerID != 3 {
		t.Fatalf("teamspeak overrides: %+v", cfg.Teamspeak)
	}
	if cfg.Teamspeak.ConnectAttempts != 0 || cfg.Teamspeak.ConnectBackoff != 500*time.Millisecond {
		t.Fatalf("retry overrides: %+v", cfg.Teamspeak)
	}
	if cfg.Locale != "en" {
		t.Fatalf("locale override: %q", cfg.Locale)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("warning alias not normalized: %q", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("invalid gin mode not normalized: %q", cfg.GinMode)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "oracle"}, "DATABASE_DRIVER"},
		{"postgres without user", map[string]string{"DATABASE_DRIVER": "postgres"}, "DATABASE_USER"},
		{"sqlite without path", map[string]string{"DATABASE_PATH": " "}, "DATABASE_PATH"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"server id zero", map[string]string{"TEAMSPEAK_SERVER_ID": "0"}, "TEAMSPEAK_SERVER_ID"},
		{"negative attempts", map[string]string{"CONNECT_ATTEMPTS": "-1"}, "CONNECT_ATTEMPTS"},
		{"blank channel", map[string]string{"CHANNEL_NAME": " "}, "CHANNEL_NAME"},
		{"negative rps", map[string]string{"COMMAND_RPS": "-1"}, "COMMAND_RPS"},
		{"zero burst", map[string]string{"COMMAND_BURST": "0"}, "COMMAND_BURST"},
		{"sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestLoad_BadNumbersFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEAMSPEAK_SERVER_ID", "not-a-number")
	t.Setenv("COMMAND_RPS", "lots")
	t.Setenv("CONNECT_BACKOFF", "soon")
	t.Setenv("HTTP_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Teamspeak.ServerID != 1 || cfg.CommandRPS != 0.2 {
		t.Fatalf("unparseable numbers must keep defaults: %+v", cfg)
	}
	if cfg.Teamspeak.ConnectBackoff != 2*time.Second || !cfg.HTTPEnabled {
		t.Fatalf("unparseable values must keep defaults: %+v", cfg)
	}
}

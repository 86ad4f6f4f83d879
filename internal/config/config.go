// Package config resolves server settings from command-line flags with
// environment fallbacks.
package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"example.com/chess_session_server/internal/errors"
)

// Config holds the server settings.
type Config struct {
	Addr           string        // listen address, e.g. ":8080"
	AllowedOrigins []string      // empty means any origin
	DatabaseURL    string        // PostgreSQL DSN; empty selects the in-memory store
	HouseRules     string        // optional Lua rules file
	SendBuffer     int           // per-connection outbound queue
	WriteTimeout   time.Duration // per websocket frame write
	PingInterval   time.Duration
	CommandTimeout time.Duration // store calls made for one command
	Debug          bool
}

// Load parses args (without the program name). getenv supplies the
// environment; pass os.Getenv outside tests.
func Load(args []string, getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	port := env("PORT", "8080")

	fs := flag.NewFlagSet("chess-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", ":"+port, "listen address")
	origins := fs.String("origins", env("ORIGIN_ALLOWLIST", "http://localhost:"+port+",http://127.0.0.1:"+port),
		`comma-separated allowed origins, "*" for any`)
	dsn := fs.String("db", env("CHESS_DATABASE_URL", ""), "PostgreSQL connection string (empty: in-memory store)")
	rules := fs.String("house-rules", env("CHESS_HOUSE_RULES", ""), "Lua house rules file")
	buffer := fs.String("send-buffer", env("CHESS_SEND_BUFFER", "64"), "outbound frames queued per connection")
	writeTimeout := fs.String("write-timeout", env("CHESS_WRITE_TIMEOUT", "10s"), "websocket write timeout")
	ping := fs.String("ping-interval", env("CHESS_PING_INTERVAL", "15s"), "websocket keepalive interval")
	cmdTimeout := fs.String("command-timeout", env("CHESS_COMMAND_TIMEOUT", "5s"), "store timeout per command")
	debug := fs.Bool("debug", parseBool(getenv("CHESS_DEBUG")), "development logging")
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err.Error())
	}

	cfg := &Config{
		Addr:        strings.TrimSpace(*addr),
		DatabaseURL: *dsn,
		HouseRules:  *rules,
		Debug:       *debug,
	}
	if cfg.Addr == "" {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "empty listen address")
	}
	cfg.AllowedOrigins = parseOrigins(*origins)

	n, err := strconv.Atoi(*buffer)
	if err != nil || n < 1 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "send buffer %q: want a positive integer", *buffer)
	}
	cfg.SendBuffer = n

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"write timeout", *writeTimeout, &cfg.WriteTimeout},
		{"ping interval", *ping, &cfg.PingInterval},
		{"command timeout", *cmdTimeout, &cfg.CommandTimeout},
	} {
		v, err := time.ParseDuration(d.raw)
		if err != nil || v <= 0 {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "%s %q: want a positive duration", d.name, d.raw)
		}
		*d.dst = v
	}
	return cfg, nil
}

func parseOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return nil
		}
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func (c *Config) String() string {
	store := "memory"
	if c.DatabaseURL != "" {
		store = "postgres"
	}
	return fmt.Sprintf("addr=%s store=%s origins=%v rules=%q", c.Addr, store, c.AllowedOrigins, c.HouseRules)
}

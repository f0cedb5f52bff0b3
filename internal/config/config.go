// Package config loads the server configuration from a TOML file,
// falling back to usable defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Store   Store   `toml:"store"`
	Fonts   Fonts   `toml:"fonts"`
	Media   Media   `toml:"media"`
	Chat    Chat    `toml:"chat"`
	Printer Printer `toml:"printer"`
}

type Server struct {
	Port          int    `toml:"port"`
	SessionSecret string `toml:"session_secret"`
}

type Store struct {
	Path string `toml:"path"`
}

type Fonts struct {
	Dir     string  `toml:"dir"`
	Default string  `toml:"default"`
	Size    float64 `toml:"size"`
}

type Media struct {
	Dir string `toml:"dir"`
}

type Chat struct {
	URL   string `toml:"url"`
	Model string `toml:"model"`
}

type Printer struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	MaxRetries int    `toml:"max_retries"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server:  Server{Port: 5000, SessionSecret: "dev-secret-change-me"},
		Store:   Store{Path: "webshop.db"},
		Fonts:   Fonts{Dir: "fonts"},
		Media:   Media{Dir: "static/uploads"},
		Chat:    Chat{URL: "http://localhost:11434"},
		Printer: Printer{Port: 9100, MaxRetries: 3},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error; a malformed one is. The SERVER_PORT environment
// variable overrides the configured port either way.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return cfg, fmt.Errorf("invalid SERVER_PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables, and
// an optional JSON config file. A .env file in the working directory is
// loaded first, so its values are visible as environment overrides.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the stub server's listening address (ip:port).
	Addr string

	// BaseURL is the portal backend base URL the client talks to.
	BaseURL string

	// StateDir is the directory holding client-side state
	// (cookie file and the durable key-value database).
	StateDir string

	// LogLevel sets the zap log level ("Debug", "Info", "Warn", "Error").
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8080", "run stub server on ip:port")
	flag.StringVar(&options.BaseURL, "url", "http://localhost:8080", "portal backend base URL")
	flag.StringVar(&options.StateDir, "state", defaultStateDir(), "directory for client state")
	flag.StringVar(&options.LogLevel, "log", "Info", "log level")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// defaultStateDir resolves the per-user state directory, falling back
// to the working directory when the home directory is unknown.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docsportal"
	}
	return filepath.Join(home, ".docsportal")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	// Values from .env become plain environment variables.
	_ = godotenv.Load()

	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Addr = serverAddress
	}
	if baseURL := os.Getenv("PORTAL_URL"); baseURL != "" {
		options.BaseURL = baseURL
	}
	if stateDir := os.Getenv("PORTAL_STATE_DIR"); stateDir != "" {
		options.StateDir = stateDir
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		options.LogLevel = logLevel
	}

	return options
}

package utils

import (
	"log"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

// AppConfig holds all process configuration, loadable from both
// command-line flags and environment variables. It is the single
// owner of the database and downloads paths; nothing else reads
// their environment variables.
type AppConfig struct {
	Port         string `long:"port" env:"WARCHIVE_PORT" default:"8080" description:"HTTP server port"`
	DBPath       string `long:"db-path" description:"SQLite database path (default $WARCHIVE_DB_PATH or ~/.warchive/data.db)"`
	DownloadsDir string `long:"downloads-dir" description:"Root directory for downloaded assets (default $WARCHIVE_DOWNLOADS_DIR or ~/.warchive/downloads)"`
	UserAgent    string `long:"user-agent" env:"WARCHIVE_USER_AGENT" default:"WW2ImageArchive/1.0 (Educational Project)" description:"User agent for outbound requests"`
}

// LoadConfig parses flags and environment variables. Returns nil when
// help was requested, so callers can exit cleanly.
func LoadConfig() *AppConfig {
	var cfg AppConfig

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		log.Fatalf("parse configuration: %v", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if cfg.DownloadsDir == "" {
		cfg.DownloadsDir = DefaultDownloadsDir()
	}

	return &cfg
}

// DefaultDBPath resolves the database location when no flag is given:
// $WARCHIVE_DB_PATH, else ~/.warchive/data.db.
func DefaultDBPath() string {
	if p := os.Getenv("WARCHIVE_DB_PATH"); p != "" {
		return p
	}
	return filepath.Join(homeDir(), ".warchive", "data.db")
}

// DefaultDownloadsDir resolves the downloads root when no flag is
// given: $WARCHIVE_DOWNLOADS_DIR, else ~/.warchive/downloads.
func DefaultDownloadsDir() string {
	if p := os.Getenv("WARCHIVE_DOWNLOADS_DIR"); p != "" {
		return p
	}
	return filepath.Join(homeDir(), ".warchive", "downloads")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

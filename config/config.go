package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Config contains all of the presenter settings
type Config struct {
	// Windows is the number of output windows the page is split across.
	Windows int `validate:"min=1,max=8"`
	// Split is the axis the page image is sliced along.
	Split string `validate:"oneof=horizontal vertical"`
	// CachePolicy selects the render cache shape: "indexed" keeps an entry
	// per page for the whole document, "window" keeps a sliding
	// previous/current/next window.
	CachePolicy string `validate:"oneof=indexed window"`
	// IdleWaitMS is how long the event loop waits for input while the
	// cache is still being filled.
	IdleWaitMS int `validate:"min=1,max=1000"`
	// RemoteAddr is the listen address of the HTTP remote control.
	// Empty disables it.
	RemoteAddr string
	// HistoryDB is the sqlite file holding last-viewed positions.
	// Empty disables history.
	HistoryDB string
	// AutoAdvance is a cron spec (e.g. "@every 30s") that advances to the
	// next page automatically. Empty disables it.
	AutoAdvance string
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// Setup loads configuration and returns the Config and Logger
func Setup() (Config, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("beamview.env")

	logger := setupLogging()
	Logger = logger

	cfg := Config{
		Windows:     getEnvInt("BEAMVIEW_WINDOWS", 2),
		Split:       getEnv("BEAMVIEW_SPLIT", "horizontal"),
		CachePolicy: getEnv("BEAMVIEW_CACHE_POLICY", "indexed"),
		IdleWaitMS:  getEnvInt("BEAMVIEW_IDLE_WAIT_MS", 10),
		RemoteAddr:  getEnv("BEAMVIEW_REMOTE_ADDR", ""),
		HistoryDB:   getEnv("BEAMVIEW_HISTORY_DB", defaultHistoryDB()),
		AutoAdvance: getEnv("BEAMVIEW_AUTO_ADVANCE", ""),
	}

	logger.Info("Configuration loaded",
		"windows", cfg.Windows,
		"split", cfg.Split,
		"cachePolicy", cfg.CachePolicy)

	return cfg, logger
}

// Validate checks the configuration for values the presenter cannot run with
func (cfg Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// defaultHistoryDB places the history database under the user cache
// directory, or disables history when no cache directory exists.
func defaultHistoryDB() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "beamview", "history.sqlite")
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "stderr")
	var logWriter io.Writer

	switch logOutput {
	case "stdout":
		logWriter = os.Stdout
	case "stderr":
		logWriter = os.Stderr
	default:
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "beamview.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stderr
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stderr
			} else {
				logWriter = logFile
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

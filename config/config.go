package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"

	HomeBlog    = "blog"
	HomePersons = "persons"
)

const (
	defaultAddr            = ":8080"
	defaultMaxUploadBytes  = 10 << 20
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds all runtime settings. Values come from defaults, then an
// optional YAML file, then environment variables.
type Config struct {
	Addr string `yaml:"addr"`

	// Home selects which resource is mounted at "/".
	Home string `yaml:"home"`

	Storage StorageConfig `yaml:"storage"`
	Media   MediaConfig   `yaml:"media"`
	CSRF    CSRFConfig    `yaml:"csrf"`
	Log     LogConfig     `yaml:"log"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver"`
	BadgerPath string `yaml:"badger_path"`
	SQLitePath string `yaml:"sqlite_path"`
	BackupDir  string `yaml:"backup_dir"`
}

type MediaConfig struct {
	Root           string `yaml:"root"` // uploaded files live under here
	URL            string `yaml:"url"`  // public prefix, with trailing slash
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type CSRFConfig struct {
	Enabled bool   `yaml:"enabled"`
	Key     string `yaml:"key"` // MAC secret; generated per process when empty
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Addr: defaultAddr,
		Home: HomeBlog,
		Storage: StorageConfig{
			Driver:     DriverBadger,
			BadgerPath: filepath.Join("data", "badger"),
			SQLitePath: filepath.Join("data", "crudapp.db"),
			BackupDir:  filepath.Join("data", "backups"),
		},
		Media: MediaConfig{
			Root:           filepath.Join("data", "media"),
			URL:            "/media/",
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		CSRF: CSRFConfig{Enabled: true},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int64) int64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %t. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	}

	cfg.Addr = getEnvOrDefault("CRUDAPP_ADDR", cfg.Addr)
	cfg.Home = getEnvOrDefault("CRUDAPP_HOME", cfg.Home)
	cfg.Storage.Driver = getEnvOrDefault("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.BadgerPath = getEnvOrDefault("BADGER_PATH", cfg.Storage.BadgerPath)
	cfg.Storage.SQLitePath = getEnvOrDefault("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.BackupDir = getEnvOrDefault("BACKUP_DIR", cfg.Storage.BackupDir)
	cfg.Media.Root = getEnvOrDefault("MEDIA_ROOT", cfg.Media.Root)
	cfg.Media.URL = getEnvOrDefault("MEDIA_URL", cfg.Media.URL)
	cfg.Media.MaxUploadBytes = getEnvIntOrDefault("MAX_UPLOAD_BYTES", cfg.Media.MaxUploadBytes)
	cfg.CSRF.Enabled = getEnvBoolOrDefault("CSRF_ENABLED", cfg.CSRF.Enabled)
	cfg.CSRF.Key = getEnvOrDefault("CSRF_KEY", cfg.CSRF.Key)
	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("LOG_FORMAT", cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q (want %q or %q)", c.Storage.Driver, DriverBadger, DriverSQLite)
	}
	switch c.Home {
	case HomeBlog, HomePersons:
	default:
		return fmt.Errorf("unknown home resource %q (want %q or %q)", c.Home, HomeBlog, HomePersons)
	}
	if c.Media.URL == "" || c.Media.URL[0] != '/' || c.Media.URL[len(c.Media.URL)-1] != '/' {
		return fmt.Errorf("media url %q must start and end with '/'", c.Media.URL)
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("media max_upload_bytes must be positive")
	}
	return nil
}

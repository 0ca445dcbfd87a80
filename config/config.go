package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the YAML config is looked up when no path is given
const DefaultPath = "configs/config.yml"

// Config holds the application's configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Matcher  MatcherConfig  `yaml:"matcher"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	UploadDir      string `yaml:"upload_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	Debug          bool   `yaml:"debug"`
}

// DatabaseConfig configures the reference plant store
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Name         string `yaml:"name"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	SSLMode      string `yaml:"sslmode"`
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	Migrate      bool   `yaml:"migrate"`
}

// MatcherConfig configures the perceptual hash search
type MatcherConfig struct {
	Threshold int    `yaml:"threshold"`
	Hasher    string `yaml:"hasher"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":5000",
			UploadDir:      "static/uploads",
			MaxUploadBytes: 16 * 1024 * 1024,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Name:         "plants",
			User:         "postgres",
			Password:     "postgres",
			Host:         "localhost",
			Port:         "5432",
			SSLMode:      "disable",
			Path:         "plants.db",
			MaxOpenConns: 10,
			MaxIdleConns: 1,
			Migrate:      true,
		},
		Matcher: MatcherConfig{
			Threshold: 10,
			Hasher:    "average",
		},
	}
}

// Load reads the YAML file at configPath over the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		file, err := os.Open(configPath)
		switch {
		case err == nil:
			defer file.Close()
			decoder := yaml.NewDecoder(file)
			if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	}

	// .env is optional, values already in the environment win
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("DB_DRIVER", &c.Database.Driver)
	setString("DB_NAME", &c.Database.Name)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_HOST", &c.Database.Host)
	setString("DB_PORT", &c.Database.Port)
	setString("DB_SSLMODE", &c.Database.SSLMode)
	setString("DB_PATH", &c.Database.Path)
	setString("UPLOAD_FOLDER", &c.Server.UploadDir)

	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}

	if v, ok := os.LookupEnv("MATCH_THRESHOLD"); ok && v != "" {
		threshold, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MATCH_THRESHOLD %q: %w", v, err)
		}
		c.Matcher.Threshold = threshold
	}
	return nil
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("max_open_conns must be at least 1, got %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("max_idle_conns must be between 0 and %d, got %d", c.Database.MaxOpenConns, c.Database.MaxIdleConns)
	}
	if c.Matcher.Threshold <= 0 {
		return fmt.Errorf("matcher threshold must be positive, got %d", c.Matcher.Threshold)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Server.UploadDir == "" {
		return errors.New("upload_dir must not be empty")
	}
	return nil
}

// DSN returns the data source name for the configured driver
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite3" {
		return "file:" + d.Path + "?_busy_timeout=5000"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

package config

import (
	"errors"
	"fmt"
	"gdsync/internal/util"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ChunkSize      int64         `mapstructure:"chunk_size"`
	MaxRetries     int           `mapstructure:"max_retries"`
	Concurrency    int           `mapstructure:"concurrency"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
	WatchInterval  time.Duration `mapstructure:"watch_interval"`
	IgnoreList     []string      `mapstructure:"ignore_list"`
	DBPath         string        `mapstructure:"db_path"`
	StatusPort     int           `mapstructure:"status_port"`
	TokenStore     string        `mapstructure:"token_store"`
	MarkerFile     string        `mapstructure:"marker_file"`
}

var Default = Config{
	ChunkSize:      4 * 1024 * 1024,
	MaxRetries:     8,
	Concurrency:    0,
	ReportInterval: time.Second,
	WatchInterval:  5 * time.Minute,
	IgnoreList:     []string{".id", "*.gdsync.tmp"},
	DBPath:         "gdsync.db",
	StatusPort:     0,
	TokenStore:     "file",
	MarkerFile:     ".id",
}

// Dir is where gdsync keeps its config, tokens, history and logs.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	return filepath.Join(home, ".gdsync"), nil
}

func Load() (*Config, error) {
	// .env in the working directory is optional
	_ = godotenv.Load()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	return LoadFrom(dir)
}

func LoadFrom(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("chunk_size", Default.ChunkSize)
	v.SetDefault("max_retries", Default.MaxRetries)
	v.SetDefault("concurrency", Default.Concurrency)
	v.SetDefault("report_interval", Default.ReportInterval)
	v.SetDefault("watch_interval", Default.WatchInterval)
	v.SetDefault("ignore_list", Default.IgnoreList)
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("status_port", Default.StatusPort)
	v.SetDefault("token_store", Default.TokenStore)
	v.SetDefault("marker_file", Default.MarkerFile)

	v.SetEnvPrefix("GDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(configDir, cfg.DBPath)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = Default.ReportInterval
	}
	if c.MarkerFile == "" {
		c.MarkerFile = Default.MarkerFile
	}

	// a remote file must never overwrite the marker or look like our temp files
	for _, p := range []string{c.MarkerFile, "*" + util.TempSuffix} {
		if !slices.Contains(c.IgnoreList, p) {
			c.IgnoreList = append(c.IgnoreList, p)
		}
	}

	switch c.TokenStore {
	case "file", "keyring":
	default:
		return fmt.Errorf("unknown token_store %q", c.TokenStore)
	}

	return nil
}

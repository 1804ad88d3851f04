// Package config loads wingo settings from a .env file, an optional YAML
// config file and WINGO_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rcliao/wingo/internal/ocr"
	"github.com/rcliao/wingo/internal/store"
)

// EnvPrefix prefixes every environment variable, e.g. WINGO_STORE_BACKEND.
const EnvPrefix = "WINGO"

// Config is the full set of runtime settings.
type Config struct {
	Store StoreConfig `mapstructure:"store"`
	HTTP  HTTPConfig  `mapstructure:"http"`
	OCR   OCRConfig   `mapstructure:"ocr"`
	Log   LogConfig   `mapstructure:"log"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	Format  string `mapstructure:"format"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type OCRConfig struct {
	Command string `mapstructure:"command"`
	Lang    string `mapstructure:"lang"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads settings. cfgFile may be empty, in which case config.yaml is
// looked up in ~/.config/wingo and the working directory. envFiles default
// to ".env"; missing ones are skipped.
func Load(cfgFile string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Already-set variables win over the file.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "wingo"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// WINGO_DB is the short form used by the CLI.
	if err := v.BindEnv("store.path", EnvPrefix+"_STORE_PATH", EnvPrefix+"_DB"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath(cfg.Store.Backend)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", store.BackendSQLite)
	v.SetDefault("store.path", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.format", store.FormatJSON)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("ocr.command", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// DefaultStorePath is ~/.wingo/wingo.db, or the ~/.wingo directory for the
// file backend.
func DefaultStorePath(backend string) string {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".wingo")
	if backend == store.BackendFile {
		return dir
	}
	return filepath.Join(dir, "wingo.db")
}

// StoreOptions converts the store settings for store.Open.
func (c *Config) StoreOptions(log *zap.Logger) store.Options {
	return store.Options{
		Backend: c.Store.Backend,
		Path:    c.Store.Path,
		DSN:     c.Store.DSN,
		Format:  c.Store.Format,
		Logger:  log,
	}
}

// Recognizer returns the configured tesseract runner.
func (c *Config) Recognizer() *ocr.Tesseract {
	return &ocr.Tesseract{Command: c.OCR.Command, Lang: c.OCR.Lang}
}

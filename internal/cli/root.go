// Package cli implements the wingo CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/wingo/internal/config"
	"github.com/rcliao/wingo/internal/logging"
	"github.com/rcliao/wingo/internal/store"
)

var (
	dbPath     string
	cfgFile    string
	backend    string
	logLevel   string
	logFormat  string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "wingo",
	Short: "Wingo color and size predictions that learn from corrections",
	Long: "Predicts the color and size of a Wingo serial, remembers corrections so the " +
		"same serial is answered correctly next time, and reads patterns out of results charts.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Store path (default: $WINGO_DB or ~/.wingo/wingo.db)")
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/wingo/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Store backend: sqlite, postgres or file")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// loadConfig reads the configuration and applies the global flags on top.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		exitErr("load config", err)
	}
	applyFlags(cfg)
	return cfg
}

func applyFlags(cfg *config.Config) {
	if backend != "" && backend != cfg.Store.Backend {
		// A path left at the old backend's default follows the new backend.
		if cfg.Store.Path == config.DefaultStorePath(cfg.Store.Backend) {
			cfg.Store.Path = config.DefaultStorePath(backend)
		}
		cfg.Store.Backend = backend
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		exitErr("init logger", err)
	}
	return log
}

func openStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	return store.Open(cfg.StoreOptions(log))
}

// sqlStore returns s as a SQL store, exiting when the command needs one and
// the configured backend is something else.
func sqlStore(s store.Store, op string) *store.SQLStore {
	sq, ok := s.(*store.SQLStore)
	if !ok {
		exitErr(op, fmt.Errorf("requires the sqlite or postgres backend"))
	}
	return sq
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// Package cmd implements the futari command line interface: inspection
// and maintenance tooling for a pair's shared settings documents.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/futari/internal/config"
	"github.com/zjrosen/futari/internal/log"
)

var (
	version   = "dev"
	cfgFile   string
	pairFlag  string
	useMemory bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "futari",
	Short:   "Inspect and repair a pair's shared settings",
	Long:    `Tooling for the shared settings documents of a futari pair: schedule categories, dinner statuses and quick messages. Connects to Firestore (or an in-memory store with --memory) and can show, seed and repair a pair's registries.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/futari/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&pairFlag, "pair", "",
		"pair document ID (required)")
	rootCmd.PersistentFlags().Bool("debug", false,
		"enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false,
		"use an in-memory document store instead of Firestore")
	rootCmd.PersistentFlags().String("project", "",
		"GCP project ID (overrides config)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("firestore.project", rootCmd.PersistentFlags().Lookup("project"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("registry.usage_count_ttl", defaults.Registry.UsageCountTTL)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	viper.SetDefault("log_file", defaults.LogFile)

	// FUTARI_DEBUG=true etc. override the config file.
	viper.SetEnvPrefix("FUTARI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .futari/config.yaml (current directory)
		// 2. ~/.config/futari/config.yaml (user config)
		if _, err := os.Stat(".futari/config.yaml"); err == nil {
			viper.SetConfigFile(".futari/config.yaml")
		} else {
			viper.AddConfigPath(config.Dir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create the user-level default
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := filepath.Join(config.Dir(), "config.yaml")
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)

	if cfg.LogFile != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.LogFile), 0o750)
		_, _ = log.Init(cfg.LogFile)
	}
	if !cfg.Debug {
		log.SetMinLevel(log.LevelInfo)
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

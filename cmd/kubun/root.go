package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/app"
	"github.com/hyperjump/kubun/internal/cli"
	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kubun/config.yaml"

var (
	configPath   string
	debugFlag    bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "kubun",
	Short: "Split scholarly documents into labeled sections",
	Long: `kubun finds the title, abstract, methods, and results/discussion sections of
scholarly documents by semantic heading matching, stores the extractions, and
serves them over HTTP with keyword and semantic search.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("kubun {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, json, txt, or compact")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads config from path. When path is the default, ./config.yaml wins if it
// exists, and a missing default file means built-in defaults. Returns the config and
// the path it came from (empty for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				return cfg, fallback, err
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			cfg := config.Default()
			return cfg, "", cfg.Validate()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// environment is the loaded config, logger and components shared by subcommands.
type environment struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	c          *app.Components
	format     cli.OutputFormat
}

func (e *environment) Close() {
	if e.c != nil {
		if err := e.c.Close(); err != nil {
			e.logger.Warn("close components", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

// setup loads config and builds the components. adjust, when set, may change the config
// before components are built.
func setup(ctx context.Context, warm bool, adjust func(*config.Config)) (*environment, error) {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved))
	c, err := app.New(ctx, cfg, logger, app.WithWarmup(warm))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &environment{cfg: cfg, configPath: resolved, logger: logger, c: c, format: format}, nil
}

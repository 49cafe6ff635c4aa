package main

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitereport/internal/config"
	"sitereport/internal/core"
)

// app carries the state shared by the subcommands.
type app struct {
	configPath string
	fixture    string
	logMode    string
	envFile    string

	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	zap    *zap.Logger
	logger *core.ZapLogger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sitereport",
		Short:         "Assemble SEAD site analysis reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.zap != nil {
				_ = a.zap.Sync()
			}
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to sitereport.yaml")
	flags.StringVar(&a.fixture, "fixture", "", "serve site data from a JSON fixture instead of the configured source")
	flags.StringVar(&a.logMode, "log-mode", "", "log mode: development or production")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	root.AddCommand(newRenderCmd(a), newModulesCmd(a), newServeCmd(a))
	return root
}

func (a *app) setup() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.fixture != "" {
		cfg.Source.Driver = config.SourceMemory
		cfg.Source.Fixture = a.fixture
	}
	if a.logMode != "" {
		cfg.Log.Mode = a.logMode
	}
	logger, err := cfg.Log.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.cfg = cfg
	a.zap = logger
	a.logger = core.NewZapLogger(logger)
	return nil
}

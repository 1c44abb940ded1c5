// Package commands implements the amsrender command line.
package commands

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/internal/cli/ui"
	"github.com/rails-api/active-model-serializers-sub000/internal/logging"
	"github.com/rails-api/active-model-serializers-sub000/pkg/config"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// app is the state shared by subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	noColor    bool

	config *config.Config
	logger *zap.Logger
	// types are the model types of the loaded fixture, used to explain errors.
	types []string
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

// Execute runs the command line. A failure is explained on stderr, with suggestions for
// misspelled names, and yields exit code 1.
func Execute() int {
	a := &app{}
	if err := newRootCommand(a).Execute(); err != nil {
		ui.WriteError(os.Stderr, err, a.types, a.noColor)
		return 1
	}
	return 0
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "amsrender",
		Short: "Render domain objects through serializers and adapters",
		Long: color.CyanString(`amsrender - serializer and adapter toolkit

Declare serializers and records in a YAML fixture (inline or loaded from SQL tables),
then render them as attributes, json, json_api or flat_json documents, or serve them
over HTTP with include, sparse fieldsets and pagination.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file (yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newRenderCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newCacheCommand(a))

	return rootCmd
}

func (a *app) init() error {
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}

	a.config = cfg
	a.logger = logger
	return nil
}

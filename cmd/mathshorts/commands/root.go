// Package commands implements the mathshorts CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/logging"
	"math-shorts-pipeline/internal/pipeline"
	"math-shorts-pipeline/internal/shell"
)

var versionString = "dev"

// SetVersionInfo is called from main with build metadata
func SetVersionInfo(version, commit string) {
	versionString = fmt.Sprintf("%s (commit: %s)", version, commit)
}

// app is the state shared by subcommands after flags are parsed
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	log        *slog.Logger
	// runner is swapped in tests
	runner shell.Runner
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return errorf(cmd, "Could not load configuration", err)
	}
	level := cfg.Server.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.New(cmd.ErrOrStderr(), cfg.Server.LogFormat, level)
	return nil
}

func (a *app) pipeline(ctx context.Context, cmd *cobra.Command) (*pipeline.Pipeline, error) {
	p, err := pipeline.Build(ctx, a.cfg, a.runner, a.log)
	if err != nil {
		return nil, errorf(cmd, "Could not start the pipeline", err)
	}
	return p, nil
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mathshorts",
		Short: "Turn math topics into narrated short videos",
		Long: `mathshorts picks a math topic, writes a short script, narrates it,
renders a matching animation and muxes everything into a vertical video.

Run it once from the command line or serve the REST API for automation.`,
		Version:           versionString,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "config file (.yaml or .toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override server.log_level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(a),
		newScriptCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the CLI with os.Args
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// runFlags binds the per-run options shared by run, script and batch
func runFlags(cmd *cobra.Command, o *config.RunOptions, media bool) {
	f := cmd.Flags()
	f.StringVarP(&o.Topic, "topic", "t", "", "topic name; empty lets the selector choose")
	f.StringVarP(&o.Provider, "provider", "p", "", "script provider: auto, static, ollama, local, openai, gemini")
	f.StringVarP(&o.Model, "model", "m", "", "model to request from the provider")
	f.IntVar(&o.MaxWords, "max-words", 0, "word budget for the script (0 uses the config)")
	if media {
		f.StringVarP(&o.Backend, "backend", "b", "", "render backend: ffmpeg or manim")
		f.Float64Var(&o.DurationSec, "duration", 0, "scene length in seconds (0 derives it)")
	}
}

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColor()
	}
}

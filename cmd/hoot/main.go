// Command hoot serves and chats with a being.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// load .env before reading the environment
	_ "github.com/joho/godotenv/autoload"

	"github.com/casualjim/hoot/config"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/spf13/cobra"
)

// Set at build time via ldflags.
var version = "dev"

type globals struct {
	configPath string
	beingPath  string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "hoot",
		Short:         "Talk to a being that can use tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&g.beingPath, "being", "", "path to the being file (YAML or JSON)")
	flags.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&g.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		serveCmd(g),
		chatCmd(g),
		beingCmd(g),
		historyCmd(g),
		toolsCmd(g),
		ingestCmd(g),
		configCmd(g),
	)
	return root
}

// load resolves the configuration: defaults, then the config file, then the
// environment, then flags.
func (g *globals) load(cmd *cobra.Command) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if g.beingPath != "" {
		cfg.Being = g.beingPath
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := slogx.Setup(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}

// Package commands implements the sitebuilder command line.
package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command with its global flags.
type CLI struct {
	Root    string           `short:"r" help:"Site root directory" default:"." type:"path"`
	Config  string           `short:"c" help:"Configuration file, relative to the root" default:"config.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build the site into the output directory"`
	Serve ServeCmd `cmd:"" help:"Serve the site from memory and rebuild on change"`
	Check CheckCmd `cmd:"" help:"Load the site and check its links without writing output"`
	Init  InitCmd  `cmd:"" help:"Create a new site skeleton"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel resolves the log level: --verbose wins, then
// SITEBUILDER_LOG_LEVEL, then info.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SITEBUILDER_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *CLI) loadConfig(mode config.BuildMode) (*config.Config, error) {
	return config.Load(c.Root, c.Config, mode)
}

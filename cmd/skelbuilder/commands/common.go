package commands

import (
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/skelbuilder/internal/config"
)

// Global carries state shared by every subcommand.
type Global struct {
	// Level is the live log level; serve adjusts it on config reload.
	Level *slog.LevelVar
	Out   io.Writer
}

// NewGlobal returns the defaults used by main.
func NewGlobal() *Global {
	return &Global{Level: new(slog.LevelVar), Out: os.Stdout}
}

// CLI definition & global flags.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"skelbuilder.yaml" env:"SKELBUILDER_CONFIG"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve    ServeCmd    `cmd:"" help:"Run the build service and HTTP API"`
	Generate GenerateCmd `cmd:"" help:"Render and package one project skeleton locally"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Options  OptionsCmd  `cmd:"" help:"List the selectable project options"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// AfterApply installs the default logger once flags are parsed.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	if c.Verbose {
		g.Level.Set(slog.LevelDebug)
	}
	slog.SetDefault(newLogger(os.Stderr, config.LogFormatText, g.Level))
	return nil
}

// newLogger builds the slog handler for format at a shared level.
func newLogger(w io.Writer, format config.LogFormat, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// applyLogging switches to the configured handler unless --verbose pinned debug.
func applyLogging(g *Global, verbose bool, cfg config.MonitoringLogging) {
	if !verbose {
		g.Level.Set(cfg.Level.SlogLevel())
	}
	slog.SetDefault(newLogger(os.Stderr, cfg.Format, g.Level))
}

// Command reskit keeps the generated code of a resources package up to date.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/broady/reskit/config"
)

type Globals struct {
	Config  string `help:"Config file (default: reskit.yaml when present)." short:"c" type:"path"`
	Dir     string `help:"Resources directory, overriding the config." short:"d" type:"path"`
	Verbose bool   `help:"Log debug output with timestamps." short:"v"`
}

// load reads the config, applies flag overrides and builds the logger.
func (g *Globals) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.Dir != "" {
		cfg.Dir = g.Dir
	}
	return cfg, newLogger(g.Verbose), nil
}

func newLogger(verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return slog.New(log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		Prefix:          "reskit",
	}))
}

type CLI struct {
	Globals

	Generate GenerateCmd `cmd:"" help:"Scaffold, sync names and regenerate once." default:"withargs"`
	Watch    WatchCmd    `cmd:"" help:"Regenerate whenever resource files change."`
	New      NewCmd      `cmd:"" help:"Create a resource file and regenerate."`
	Check    CheckCmd    `cmd:"" help:"Report problems without writing files."`
	Version  VersionCmd  `cmd:"" help:"Print version information."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("reskit"),
		kong.Description("Code generation for declarative admin resources."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

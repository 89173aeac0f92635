package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/broady/reskit/gen"
	"github.com/broady/reskit/resource"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
)

type GenerateCmd struct{}

func (c *GenerateCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	res, err := cfg.Pipeline(logger).Run(context.Background())
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func printResult(res gen.Result) {
	for _, f := range res.Scaffolded {
		fmt.Printf("%s scaffolded %s\n", warn("+"), f)
	}
	for _, f := range res.Synced {
		fmt.Printf("%s synced name of %s\n", warn("~"), f)
	}
	if len(res.Written) == 0 {
		fmt.Printf("%s %d resources, outputs up to date\n", success("✓"), len(res.Resources))
		return
	}
	fmt.Printf("%s %d resources, wrote %v\n", success("✓"), len(res.Resources), res.Written)
}

type WatchCmd struct {
	Debounce time.Duration `help:"Delay after the last change before regenerating, e.g. 250ms. Overrides the config."`
}

func (c *WatchCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	if c.Debounce > 0 {
		cfg.Debounce = c.Debounce
	}

	p := cfg.Pipeline(logger)
	if res, err := p.Run(context.Background()); err != nil {
		logger.Error("generation failed", slog.Any("error", err))
	} else {
		printResult(res)
	}

	w, err := gen.NewWatcher(p)
	if err != nil {
		return err
	}
	w.WithDebounce(cfg.Debounce)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}

type NewCmd struct {
	Name string `arg:"" help:"Resource name in lower-case kebab-case, e.g. berry-flavors."`
}

func (c *NewCmd) Run(g *Globals) error {
	if !resource.ValidName(c.Name) {
		return fmt.Errorf("invalid resource name %q (want lower-case kebab-case)", c.Name)
	}
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Dir, c.Name+cfg.Suffix)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return err
	}
	// An empty file is scaffolded by the run below.
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return err
	}
	res, err := cfg.Pipeline(logger).Run(context.Background())
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

type CheckCmd struct{}

func (c *CheckCmd) Run(g *Globals) error {
	cfg, _, err := g.load()
	if err != nil {
		return err
	}
	files, err := gen.Check(cfg.Dir, cfg.Suffix)
	for _, rf := range files {
		fmt.Printf("%s %s (%s)\n", success("✓"), rf.Name, filepath.Base(rf.Path))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", bad("✗"), err)
		return errors.New("check failed")
	}
	return nil
}

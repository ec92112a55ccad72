package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/version"

	"github.com/urfave/cli/v2"
)

// loadConfigWithOverrides loads the configuration of --root and applies the
// storage flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", c.String("root"), err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", root, err)
	}

	if backend := c.String("backend"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dir := c.String("dir"); dir != "" {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve storage dir %q: %w", dir, err)
		}
		cfg.Storage.Dir = absDir
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:                   "xref",
		Usage:                  "Inspect and maintain a cross-reference index",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Writer:                 out,
		ErrWriter:              out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root holding .xref.kdl or .xref.toml",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Storage backend (file, badger, memory); overrides config",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Storage directory; overrides config",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug logs to stderr",
			},
			&cli.StringFlag{
				Name:   "debug-log",
				Usage:  "Write debug logs to a timestamped file in this directory",
				Hidden: true,
			},
		},
		Before: func(c *cli.Context) error {
			if dir := c.String("debug-log"); dir != "" {
				debug.EnableDebug = "true"
				path, err := debug.InitDebugLogFile(dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Debug log: %s\n", path)
			} else if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show totals of the stored index nodes",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: statsCommand,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List stored index nodes",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: listCommand,
			},
			{
				Name:      "dump",
				Usage:     "Show the relations of one stored node",
				ArgsUsage: "NAME",
				Action:    dumpCommand,
			},
			{
				Name:  "verify",
				Usage: "Check that every stored node can be decoded",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Usage: "Parallel readers", Value: 4},
				},
				Action: verifyCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every stored node",
				Action: clearCommand,
			},
			{
				Name:  "version",
				Usage: "Show build information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					fmt.Fprintln(c.App.Writer, "build id:", version.BuildID())
					return nil
				},
			},
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

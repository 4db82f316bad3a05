package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	modes := internal.Modes{
		All:    cmd.Bool("all"),
		DryRun: cmd.Bool("dry-run"),
		Watch:  cmd.Bool("watch"),
		MCP:    cmd.Bool("mcp"),
		Paths:  cmd.StringSlice("paths"),
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithModes(modes),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "raido",
		Usage:  "Sync a Markdown corpus with YAML frontmatter into a CMS collection over its REST API",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("RAIDO_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Sync the whole corpus instead of the delta since the last run",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log the intended operations without calling the store",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Stay resident and re-sync on corpus changes",
			},
			&cli.BoolFlag{
				Name:  "mcp",
				Usage: "Serve MCP tools on stdio instead of running a sync",
			},
			&cli.StringSliceFlag{
				Name:  "paths",
				Usage: "Explicit document paths to sync (overrides delta detection)",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	err := pkgconfig.LoadOptional(cmd.String("config"), cfg,
		internal.OverrideRoots(cmd.StringSlice("root")))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("watch") {
		cfg.Watch.Enabled = cmd.Bool("watch")
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func exportSnapshot(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunExport(ctx, cmd.String("output"), cmd.String("format"),
		internal.WithConfig(cfg), internal.WithVersion(version))
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr))
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringSliceFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "Content root (repeatable); overrides corpus.roots",
			Sources: cli.EnvVars("ANSUZ_ROOTS"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "ansuz",
		Usage:   "Index Markdown notes into a browsable document index, journal and reference graph",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the JSON API and change events over HTTP",
				Action: serve,
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Watch content roots and mark the snapshot stale on change",
					},
				),
			},
			{
				Name:   "export",
				Usage:  "Build one snapshot and write it to a file",
				Action: exportSnapshot,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (default: export.path)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "json or sqlite (default: export.format)",
					},
				),
			},
			{
				Name:   "mcp",
				Usage:  "Serve read-only MCP tools over stdio",
				Action: serveMCP,
				Flags:  commonFlags(),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

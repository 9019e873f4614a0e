package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gebo/internal"
	pkgconfig "github.com/starford/gebo/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "gebo",
		Usage:  "Snippet keeper with full-text search kept in lock-step with the record store",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:  "reindex",
				Usage: "Rebuild the search index from the record store (delete all, then reindex all)",
				Flags: []cli.Flag{configFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.Reindex(ctx, cfg)
				},
			},
			{
				Name:  "mcp",
				Usage: "Serve snippet tools over MCP stdio transport",
				Flags: []cli.Flag{configFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.ServeMCP(cfg)
				},
			},
			{
				Name:  "user",
				Usage: "Manage accounts",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Create a new account",
						Flags:     []cli.Flag{configFlag},
						ArgsUsage: "<username> <password>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							cfg, err := loadConfig(cmd)
							if err != nil {
								return err
							}
							username := cmd.Args().Get(0)
							password := cmd.Args().Get(1)
							return internal.AddUser(ctx, cfg, username, password, password)
						},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

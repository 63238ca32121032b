package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/iplantc/decat/internal"
	"github.com/iplantc/decat/internal/auth"
	pkgconfig "github.com/iplantc/decat/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
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

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Export(ctx, cmd.String("output"), internal.WithConfig(cfg))
}

func mintToken(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	key, err := auth.LoadPrivateKey(cmd.String("key-path"))
	if err != nil {
		return err
	}
	token, err := auth.Mint(key, auth.Identity{
		Username:   cmd.String("username"),
		Email:      cmd.String("email"),
		GivenName:  cmd.String("given-name"),
		FamilyName: cmd.String("family-name"),
		Name:       cmd.String("name"),
	}, cfg.Auth.Issuer, cmd.Duration("lifetime"))
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, token)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "decat",
		Usage:   "App catalog service: category tree with propagated app counts",
		Version: internal.Version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the catalog to MCP clients over stdio",
				Action: serveMCP,
			},
			{
				Name:   "export",
				Usage:  "Write the current catalog as a seed document",
				Action: export,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (default stdout)",
					},
				},
			},
			{
				Name:   "mint-token",
				Usage:  "Sign an RS256 bearer token for testing jwt auth",
				Action: mintToken,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key-path", Usage: "Path to PEM RSA private key", Required: true, Sources: cli.EnvVars("DECAT_JWT_KEY")},
					&cli.StringFlag{Name: "username", Usage: "Subject of the token", Required: true},
					&cli.StringFlag{Name: "email", Usage: "Email claim"},
					&cli.StringFlag{Name: "given-name", Usage: "Given name claim"},
					&cli.StringFlag{Name: "family-name", Usage: "Family name claim"},
					&cli.StringFlag{Name: "name", Usage: "Full name claim"},
					&cli.DurationFlag{Name: "lifetime", Usage: "Token lifetime", Value: 5 * time.Minute},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

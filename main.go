package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fTrestour/bookmarks/features/bookmark"
	"github.com/fTrestour/bookmarks/internal/adapter/fetcher"
	"github.com/fTrestour/bookmarks/internal/adapter/gemini"
	"github.com/fTrestour/bookmarks/internal/app"
	"github.com/fTrestour/bookmarks/internal/config"
	"github.com/fTrestour/bookmarks/internal/logctx"
	"github.com/fTrestour/bookmarks/internal/mcp"
	"github.com/fTrestour/bookmarks/internal/queue"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	// stdout belongs to the MCP transport in serve mode; logs go to stderr.
	logger := slog.New(logctx.NewHandler(slog.NewJSONHandler(os.Stderr, nil)))
	slog.SetDefault(logger)

	if err := newCLIApp().Run(os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "bookmarks",
		Usage:   "Bookmark ingestion and semantic search",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(),
			addCmd(),
			searchCmd(),
			listCmd(),
			stuckCmd(),
			reprocessStuckCmd(),
			reindexCmd(),
			reindexAllCmd(),
		},
	}
}

// withApp boots config, database and wiring, runs fn, then drains the worker
// pool so one-shot commands finish their background work before exiting.
func withApp(fn func(ctx context.Context, cfg *config.Config, a *app.App) error) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	gem, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.SummaryModel)
	if err != nil {
		return err
	}
	defer gem.Close()

	col := app.Collaborators{
		Fetcher:    fetcher.New(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, cfg.FetchMaxBytes),
		Summarizer: gem,
		Embedder:   gem,
		Describer:  gem,
	}

	var pub bookmark.TaskPublisher
	var nsqPub *queue.NSQPublisher
	if cfg.EnableNSQ {
		nsqPub, err = queue.NewNSQPublisher(cfg.NSQDHost)
		if err != nil {
			return fmt.Errorf("nsq producer: %w", err)
		}
		defer nsqPub.Stop()
		pub = nsqPub
	}

	a := app.New(cfg, db, col, pub)
	if a.Pool != nil {
		a.Pool.Start(ctx)
		defer a.Pool.Stop()
	}

	return fn(ctx, cfg, a)
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server over stdio (starts the enrichment workers)",
		Action: func(c *cli.Context) error {
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				if cfg.EnableNSQ {
					consumer, err := queue.StartConsumer(cfg.NSQLookupd, a.Pipeline)
					if err != nil {
						return fmt.Errorf("nsq consumer: %w", err)
					}
					defer consumer.Stop()
				}

				h := mcp.NewHandlers(a.Bookmarks, a.Pipeline, a.Search, a.Tokens, cfg.RequireAuth)
				slog.Info("mcp server starting", "version", Version)
				return mcp.Run(h, Version)
			})
		},
	}
}

func addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Submit a URL for ingestion",
		ArgsUsage: "<url>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one URL argument")
			}
			return withApp(func(ctx context.Context, _ *config.Config, a *app.App) error {
				result, err := a.Bookmarks.Submit(ctx, c.Args().First())
				if err != nil {
					return err
				}
				return outputJSON(result)
			})
		},
	}
}

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Semantic search over completed bookmarks",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of results"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one query argument")
			}
			return withApp(func(ctx context.Context, _ *config.Config, a *app.App) error {
				results, err := a.Search.Search(ctx, c.Args().First(), c.Int("limit"))
				if err != nil {
					return err
				}
				return outputJSON(results)
			})
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all completed bookmarks",
		Action: func(c *cli.Context) error {
			return withApp(func(ctx context.Context, _ *config.Config, a *app.App) error {
				results, err := a.Search.Search(ctx, "", 0)
				if err != nil {
					return err
				}
				return outputJSON(results)
			})
		},
	}
}

func stuckCmd() *cli.Command {
	return &cli.Command{
		Name:  "stuck",
		Usage: "List bookmarks left in pending or processing",
		Action: func(c *cli.Context) error {
			return withApp(func(ctx context.Context, _ *config.Config, a *app.App) error {
				stuck, err := a.Pipeline.ListStuck(ctx)
				if err != nil {
					return err
				}
				return outputJSON(stuck)
			})
		},
	}
}

func reprocessStuckCmd() *cli.Command {
	return &cli.Command{
		Name:  "reprocess-stuck",
		Usage: "Re-run enrichment for every stuck bookmark",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "batch", Aliases: []string{"b"}, Usage: "Concurrent batch width"},
		},
		Action: func(c *cli.Context) error {
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				width := c.Int("batch")
				if width <= 0 {
					width = cfg.BatchWidth
				}
				report, err := a.Pipeline.ReprocessStuck(ctx, width)
				if err != nil {
					return err
				}
				return outputJSON(report)
			})
		},
	}
}

func reindexCmd() *cli.Command {
	return &cli.Command{
		Name:      "reindex",
		Usage:     "Regenerate the embedding of one bookmark from its stored content",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one bookmark id argument")
			}
			return withApp(func(ctx context.Context, _ *config.Config, a *app.App) error {
				if err := a.Pipeline.Reindex(ctx, c.Args().First()); err != nil {
					return err
				}
				return outputJSON(map[string]string{"status": "ok"})
			})
		},
	}
}

func reindexAllCmd() *cli.Command {
	return &cli.Command{
		Name:  "reindex-all",
		Usage: "Regenerate embeddings for every bookmark with content",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "batch", Aliases: []string{"b"}, Usage: "Concurrent batch width"},
		},
		Action: func(c *cli.Context) error {
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				width := c.Int("batch")
				if width <= 0 {
					width = cfg.BatchWidth
				}
				report, err := a.Pipeline.ReindexAll(ctx, width)
				if err != nil {
					return err
				}
				return outputJSON(report)
			})
		},
	}
}

func outputJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

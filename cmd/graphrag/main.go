package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OFFIS-RIT/graphrag/internal/app"
	"github.com/OFFIS-RIT/graphrag/internal/queue"
	"github.com/OFFIS-RIT/graphrag/internal/server"
	"github.com/OFFIS-RIT/graphrag/internal/util"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "graphrag",
		Usage: "Build a knowledge graph from documents and answer questions over it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` instead of .env",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if f := c.String("env-file"); f != "" {
				util.LoadEnv(f)
			} else {
				util.LoadEnv()
			}
			if c.Bool("debug") {
				return os.Setenv("DEBUG", "true")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "setup",
				Usage:  "Create the vector index and uniqueness constraints",
				Action: setupCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest files, directories, URLs or s3:// objects",
				ArgsUsage: "<path>...",
				Action:    ingestCommand,
			},
			{
				Name:      "query",
				Usage:     "Answer a question from the graph",
				ArgsUsage: "<question>",
				Action:    queryCommand,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
			},
			{
				Name:      "enqueue",
				Usage:     "Publish ingest jobs for the worker",
				ArgsUsage: "<path>...",
				Action:    enqueueCommand,
			},
		},
	}
}

// withApp builds the process collaborators, runs fn and releases them.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg := app.LoadConfig()
	app.InitLogger(cfg, "graphrag")

	a, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Error("Failed to close store", "err", err)
		}
	}()
	defer a.LogMetrics()

	return fn(c.Context, a)
}

func setupCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		failed := a.Graph.SetupSchema(ctx)
		if len(failed) == 0 {
			return nil
		}
		errs := make([]error, len(failed))
		for i, f := range failed {
			errs[i] = f
		}
		return fmt.Errorf("setup incomplete: %w", errors.Join(errs...))
	})
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("ingest requires at least one path", 2)
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		var errs []error
		for _, root := range c.Args().Slice() {
			batch, err := a.Graph.IngestPath(ctx, root)
			if err != nil {
				logger.Error("[Ingest] failed", "path", root, "err", err)
				errs = append(errs, err)
				continue
			}
			for _, f := range batch.Files {
				if f.Err != nil {
					fmt.Fprintf(c.App.Writer, "FAILED  %s: %v\n", f.Path, f.Err)
					continue
				}
				r := f.Report
				fmt.Fprintf(c.App.Writer, "OK      %s: %d chunks, %d entities, %d relationships, %d chunk failures\n",
					f.Path, r.Chunks, r.Entities, r.Relationships, len(r.Failures))
			}
		}
		return errors.Join(errs...)
	})
}

func queryCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return cli.Exit("query requires a question", 2)
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		answer, err := a.Query.Ask(ctx, question)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, answer.Answer)
		if len(answer.Sources) > 0 {
			fmt.Fprintln(c.App.Writer, "\nSources:")
			for i, s := range answer.Sources {
				fmt.Fprintf(c.App.Writer, "[%d] %s\n", i+1, s)
			}
		}
		return nil
	})
}

func serveCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		if !queue.Enabled() {
			logger.Info("RABBITMQ_HOST not set, POST /ingest is disabled")
			return server.Init(ctx, a, nil)
		}

		conn, err := queue.Init()
		if err != nil {
			return err
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open channel: %w", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, []string{queue.IngestQueue}); err != nil {
			return err
		}
		return server.Init(ctx, a, ch)
	})
}

func enqueueCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("enqueue requires at least one path", 2)
	}
	cfg := app.LoadConfig()
	app.InitLogger(cfg, "graphrag")

	conn, err := queue.Init()
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, []string{queue.IngestQueue}); err != nil {
		return err
	}
	if err := queue.PublishIngest(c.Context, ch, c.Args().Slice()...); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "queued %d job(s)\n", c.NArg())
	return nil
}

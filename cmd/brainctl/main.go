package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/project-brain/internal/adapters/cli"
	"github.com/kirillkom/project-brain/internal/bootstrap"
	"github.com/kirillkom/project-brain/internal/config"
	"github.com/kirillkom/project-brain/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries command output and MCP stdio frames.
	slog.SetDefault(logging.NewJSONLogger(os.Stderr, "brainctl", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(ctx context.Context) (cli.Services, func(), error) {
		if err := cfg.Validate(); err != nil {
			return cli.Services{}, nil, err
		}
		app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "brainctl", WithoutQueue: true})
		if err != nil {
			return cli.Services{}, nil, err
		}
		if err := app.WarmIndex(ctx); err != nil {
			app.Close()
			return cli.Services{}, nil, err
		}
		return cli.Services{
			Search:    app.Retriever,
			Query:     app.QueryUC,
			Conflicts: app.ConflictUC,
			Extract:   app.ExtractUC,
			DefaultK:  cfg.RAGTopK,
		}, app.Close, nil
	})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Command botgraph runs a chat bot whose behaviour is a tree of nodes.
//
// Usage:
//
//	botgraph -config botgraph.yaml
//
// The homeserver password may be supplied through BOTGRAPH_PASSWORD instead
// of the config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/config"
	bgerrors "github.com/randalmurphal/botgraph/pkg/botgraph/errors"
	"github.com/randalmurphal/botgraph/pkg/botgraph/health"
	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport/matrix"
)

func main() {
	configPath := flag.String("config", "botgraph.yaml", "path to the YAML or JSON config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "botgraph:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(settings.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := setupTelemetry(ctx, settings.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	store, err := state.Open(settings.State.Driver, settings.State.Location())
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()
	logStoredState(store, logger)

	client, err := matrix.New(settings.Connection.Server, matrix.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := login(ctx, client, settings, logger); err != nil {
		return err
	}

	engine := botgraph.NewEngine(client,
		botgraph.WithLogger(logger),
		botgraph.WithStore(store),
		botgraph.WithWorkerLimit(settings.Workers.Limit),
		botgraph.WithShutdownGrace(settings.Workers.ShutdownGrace.Std()),
		botgraph.WithMetrics(settings.Telemetry.Metrics),
		botgraph.WithTracing(settings.Telemetry.Tracing),
	)
	if err := buildTree(engine, settings, client.UserID(), newChatClient(settings.Node("chat"))); err != nil {
		return err
	}
	if dead := engine.Registry().Unreachable(); len(dead) > 0 {
		logger.Warn("nodes unreachable from any root", slog.Any("nodes", dead))
	}

	m := engine.Messenger("main")
	for _, room := range settings.Bot.Rooms {
		if err := m.JoinPublic(ctx, room); err != nil {
			logger.Warn("could not join room", slog.String("room", room), slog.String("error", err.Error()))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })
	if settings.Health.Addr != "" {
		g.Go(func() error {
			return health.Serve(gctx, settings.Health.Addr, health.NewRouter(engine, 0, logger), logger)
		})
	}
	return g.Wait()
}

// login authenticates, retrying transient failures with exponential backoff.
func login(ctx context.Context, client *matrix.Client, settings *config.Settings, logger *slog.Logger) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := client.Login(ctx, settings.Connection.Username, settings.Connection.Password)
		if err == nil {
			return struct{}{}, nil
		}
		if !bgerrors.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		logger.Warn("login failed, retrying", slog.String("error", err.Error()))
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(2*time.Minute))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	logger.Info("logged in", slog.String("user_id", client.UserID()))

	if name := settings.Bot.DisplayName; name != "" {
		if err := client.SetDisplayName(ctx, name); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("could not set display name", slog.String("error", err.Error()))
		}
	}
	return nil
}

// logStoredState reports which nodes have state saved from a previous run.
func logStoredState(store state.Store, logger *slog.Logger) {
	infos, err := store.List()
	if err != nil {
		logger.Warn("could not list stored node state", slog.String("error", err.Error()))
		return
	}
	for _, info := range infos {
		logger.Info("stored node state",
			slog.String("node", info.Name),
			slog.Int64("bytes", info.Size),
			slog.Time("updated_at", info.UpdatedAt),
		)
	}
}

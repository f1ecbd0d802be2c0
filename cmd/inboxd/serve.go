package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/inboxd/inboxd/internal/agentcfg"
	"github.com/inboxd/inboxd/internal/channel"
	"github.com/inboxd/inboxd/internal/completion"
	"github.com/inboxd/inboxd/internal/config"
	"github.com/inboxd/inboxd/internal/contact"
	"github.com/inboxd/inboxd/internal/conversation"
	"github.com/inboxd/inboxd/internal/db"
	"github.com/inboxd/inboxd/internal/gateway"
	"github.com/inboxd/inboxd/internal/handlers"
	"github.com/inboxd/inboxd/internal/ingest"
	"github.com/inboxd/inboxd/internal/janitor"
	"github.com/inboxd/inboxd/internal/knowledge"
	"github.com/inboxd/inboxd/internal/logger"
	"github.com/inboxd/inboxd/internal/message"
	"github.com/inboxd/inboxd/internal/reply"
	"github.com/inboxd/inboxd/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion server",
		Run: func(*cobra.Command, []string) {
			runServe()
		},
	}
}

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			contact.NewService,
			conversation.NewService,
			message.NewService,
			channel.NewService,
			agentcfg.NewService,
			knowledge.NewService,
			provideGateway,
			provideCompletion,
			reply.NewDispatchStore,
			provideLoader,
			provideDispatcher,
			provideOutbox,
			provideIngest,
			provideJanitor,
			providePingHandler,
			provideWebhookHandler,
			provideServer,
		),
		fx.Invoke(
			startOutbox,
			startJanitor,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideGateway(log *slog.Logger, cfg config.Config) *gateway.Client {
	return gateway.NewClient(log, cfg.Gateway.BaseURL, time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second)
}

func provideCompletion(log *slog.Logger, cfg config.Config) (completion.Service, error) {
	return completion.New(log, cfg.Completion)
}

func provideLoader(
	log *slog.Logger,
	cfg config.Config,
	conversations *conversation.Service,
	channels *channel.Service,
	configs *agentcfg.Service,
	kb *knowledge.Service,
	messages *message.Service,
) *reply.Loader {
	return reply.NewLoader(log, conversations, channels, configs, kb, messages, cfg.Reply.HistoryLimit)
}

func provideDispatcher(
	log *slog.Logger,
	cfg config.Config,
	client *gateway.Client,
	svc completion.Service,
	conversations *conversation.Service,
	messages *message.Service,
) *reply.Dispatcher {
	return reply.NewDispatcher(log, client, svc, conversations, messages, cfg.Gateway.ChatSuffix)
}

func provideOutbox(log *slog.Logger, cfg config.Config, loader *reply.Loader, dispatcher *reply.Dispatcher, store *reply.DispatchStore) *reply.Outbox {
	return reply.NewOutbox(log, loader, dispatcher, store,
		cfg.Reply.QueueSize, cfg.Reply.MaxAttempts,
		time.Duration(cfg.Reply.RetryBaseMs)*time.Millisecond,
	)
}

func provideIngest(
	log *slog.Logger,
	contacts *contact.Service,
	conversations *conversation.Service,
	messages *message.Service,
	outbox *reply.Outbox,
) *ingest.Service {
	return ingest.NewService(log, contacts, conversations, messages, outbox)
}

func provideJanitor(log *slog.Logger, cfg config.Config, store *reply.DispatchStore) *janitor.Service {
	return janitor.NewService(log, store, cfg.Janitor.PruneSchedule,
		time.Duration(cfg.Janitor.RetainHours)*time.Hour)
}

func providePingHandler(log *slog.Logger, pool *pgxpool.Pool) *handlers.PingHandler {
	return handlers.NewPingHandler(log, pool)
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, svc *ingest.Service, channels *channel.Service) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, svc, channels, cfg.Auth.WebhookToken)
}

func provideServer(log *slog.Logger, cfg config.Config, ping *handlers.PingHandler, webhook *handlers.WebhookHandler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Auth.JWTSecret, ping, webhook)
}

func startOutbox(lc fx.Lifecycle, outbox *reply.Outbox) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { outbox.Start(); return nil },
		OnStop:  func(context.Context) error { outbox.Stop(); return nil },
	})
}

func startJanitor(lc fx.Lifecycle, svc *janitor.Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return svc.Start() },
		OnStop:  func(context.Context) error { svc.Stop(); return nil },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting server", slog.String("addr", cfg.Server.Addr))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

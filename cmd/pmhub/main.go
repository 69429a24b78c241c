package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gorm.io/gorm"

	"pmhub/server/internal/api"
	"pmhub/server/internal/command"
	"pmhub/server/internal/config"
	"pmhub/server/internal/db"
	"pmhub/server/internal/github"
	"pmhub/server/internal/llm"
	"pmhub/server/internal/logging"
	"pmhub/server/internal/pmstore"
	"pmhub/server/internal/scheduler"
	"pmhub/server/internal/settings"
	syncpkg "pmhub/server/internal/sync"
	"pmhub/server/internal/triage"
)

var version = "dev"

type runtime struct {
	cfg    config.Config
	base   *slog.Logger
	logger *slog.Logger
	gdb    *gorm.DB

	items *pmstore.ItemStore
	syncs *pmstore.SyncStore
	convs *pmstore.ConversationStore
	queue *pmstore.QueueStore

	github *github.Client
	llm    *llm.Client
	triage *triage.Service

	basePath string
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig:   config.LoadConfig,
		RunServe:     runServe,
		RunSyncOnce:  runSyncOnce,
		RunMigrateUp: runMigrateUp,
	})
	if err := app.RunContext(rootCtx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pmhub:", err)
		os.Exit(1)
	}
}

// buildRuntime opens the database and constructs every store and client the
// server and the one-shot sync command share. Environment values win over the
// settings file; the file fills in whatever the environment leaves empty.
func buildRuntime(cfg config.Config) (*runtime, error) {
	base := logging.NewLogger(logging.Options{Level: cfg.LogLevel})
	logger := logging.WithComponent(base, logging.ComponentMain)

	stored, err := settings.NewStore(cfg.SettingsDir).LoadOrInit()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	owner := firstNonEmpty(cfg.GitHubOwner, stored.GitHub.Owner)
	repo := firstNonEmpty(cfg.GitHubRepo, stored.GitHub.Repo)
	token := firstNonEmpty(cfg.GitHubToken, stored.GitHub.Token)
	basePath := firstNonEmpty(cfg.PMBasePath, stored.GitHub.BasePath)

	gdb, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	items, err := pmstore.NewItemStore(gdb)
	if err != nil {
		return nil, err
	}
	syncs, err := pmstore.NewSyncStore(gdb)
	if err != nil {
		return nil, err
	}
	convs, err := pmstore.NewConversationStore(gdb)
	if err != nil {
		return nil, err
	}
	queue, err := pmstore.NewQueueStore(gdb)
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(github.Config{
		BaseURL: cfg.GitHubBaseURL,
		Owner:   owner,
		Repo:    repo,
		Token:   token,
	}, nil)

	llmClient := llm.NewClient(llm.Config{
		BaseURL: firstNonEmpty(cfg.OpenAIEndpoint, stored.OpenAI.Endpoint),
		Model:   firstNonEmpty(cfg.OpenAIModel, stored.OpenAI.Model),
		APIKey:  firstNonEmpty(cfg.OpenAIAPIKey, stored.OpenAI.APIKey),
	}, nil)

	return &runtime{
		cfg:      cfg,
		base:     base,
		logger:   logger,
		gdb:      gdb,
		items:    items,
		syncs:    syncs,
		convs:    convs,
		queue:    queue,
		github:   gh,
		llm:      llmClient,
		triage:   triage.NewService(llmClient),
		basePath: basePath,
	}, nil
}

func (rt *runtime) close() {
	if sqlDB, err := rt.gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	// The orchestrator publishes through the API hub, and the API triggers
	// the orchestrator. The hub is not connected until the server exists,
	// so the notify callback resolves it late.
	var srv *api.Server
	orch, err := syncpkg.NewOrchestrator(syncpkg.Options{
		Store:    rt.github,
		Items:    rt.items,
		Records:  rt.syncs,
		BasePath: rt.basePath,
		Logger:   logging.WithComponent(rt.base, logging.ComponentSync),
		Notify: func(topic string, payload map[string]any) {
			if srv != nil {
				srv.Hub().Publish(topic, payload)
			}
		},
	})
	if err != nil {
		return err
	}

	srv = api.NewServer(api.Deps{
		Items:         rt.items,
		Syncs:         rt.syncs,
		Syncer:        orch,
		Conversations: rt.convs,
		Queue:         rt.queue,
		Triage:        rt.triage,
		LLM:           rt.llm,
		ChatContext: func(ctx context.Context, agentType string) (string, error) {
			return rt.github.GetChatContext(ctx, rt.basePath, agentType)
		},
		DevBrief: func(ctx context.Context, featureID string) (string, error) {
			return rt.github.GetDevBrief(ctx, rt.basePath, featureID)
		},
		Logger:  logging.WithComponent(rt.base, logging.ComponentAPI),
		Version: version,
	})

	if cfg.AutoSyncEnabled {
		auto := scheduler.New(orch, cfg.SyncInterval, logging.WithComponent(rt.base, logging.ComponentScheduler))
		go auto.Run(ctx)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("api server listening", "addr", addr, "version", version)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		rt.logger.Info("api server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func runSyncOnce(ctx context.Context, cfg config.Config) error {
	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	orch, err := syncpkg.NewOrchestrator(syncpkg.Options{
		Store:    rt.github,
		Items:    rt.items,
		Records:  rt.syncs,
		BasePath: rt.basePath,
		Logger:   logging.WithComponent(rt.base, logging.ComponentSync),
	})
	if err != nil {
		return err
	}
	res, err := orch.RunFullSync(ctx)
	if err != nil {
		return err
	}
	rt.logger.Info("sync finished", "item_count", res.ItemCount)
	return nil
}

// runMigrateUp opens the database, which applies the schema, and exits.
func runMigrateUp(_ context.Context, cfg config.Config) error {
	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	rt.close()
	rt.logger.Info("schema is up to date", "db_path", cfg.DBPath)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

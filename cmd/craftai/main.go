package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/artisanhub/craft-ai-bridge/accounts"
	"github.com/artisanhub/craft-ai-bridge/actions"
	"github.com/artisanhub/craft-ai-bridge/dialogue"
	"github.com/artisanhub/craft-ai-bridge/flow"
	"github.com/artisanhub/craft-ai-bridge/internal/config"
	"github.com/artisanhub/craft-ai-bridge/observe"
	otelsink "github.com/artisanhub/craft-ai-bridge/observe/otel"
	"github.com/artisanhub/craft-ai-bridge/observe/store/sqlite"
	"github.com/artisanhub/craft-ai-bridge/prompt"
	"github.com/artisanhub/craft-ai-bridge/providers/factory"
	"github.com/artisanhub/craft-ai-bridge/server"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("craftai exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := config.FromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flow.RegisterBuiltins()
	if cfg.PromptDir != "" {
		loaded, err := prompt.LoadDir(cfg.PromptDir)
		if err != nil {
			return err
		}
		logger.Info("loaded prompt overrides",
			zap.String("dir", cfg.PromptDir),
			zap.Int("count", loaded),
		)
	}

	text, images, err := factory.New(ctx, factory.Config{
		Provider:         cfg.Provider,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiModel:      cfg.GeminiModel,
		GeminiImageModel: cfg.GeminiImageModel,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIModel:      cfg.OpenAIModel,
	})
	if err != nil {
		return err
	}
	logger.Info("provider ready", zap.String("provider", text.Name()))

	tracerProvider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tracerProvider)
	defer func() { _ = tracerProvider.Shutdown(context.Background()) }()

	sinks := []observe.Sink{otelsink.NewSink(tracerProvider)}
	var closers []func()
	if cfg.AuditDBPath != "" {
		store, err := sqlite.New(cfg.AuditDBPath)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = store.Close() })
		async := observe.NewAsyncSink(observe.NewStoreSink(store), 256)
		closers = append(closers, async.Close)
		sinks = append(sinks, async)
		logger.Info("audit trail enabled", zap.String("path", cfg.AuditDBPath))
	}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	runnerOpts := []flow.Option{
		flow.WithSink(observe.NewMultiSink(sinks...)),
		flow.WithMaxToolRounds(cfg.MaxToolRounds),
		flow.WithRetryPolicy(dialogue.DefaultRetryPolicy()),
	}
	if images != nil {
		runnerOpts = append(runnerOpts, flow.WithImageProvider(images))
	}
	runner, err := flow.NewRunner(text, runnerOpts...)
	if err != nil {
		return err
	}

	adapter := actions.NewAdapter(runner,
		actions.WithTimeout(cfg.FlowTimeout),
		actions.WithLogger(logger),
	)
	signUp := actions.NewSignUpAction(accounts.StubCreator{}, logger)

	srv := server.New(cfg.Addr, adapter,
		server.WithLogger(logger),
		server.WithSignUp(signUp),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

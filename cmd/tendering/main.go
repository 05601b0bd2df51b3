// Package main запускает HTTP-сервер системы тендеров.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oalbalushi/tendering-system/internal/config"
	"github.com/oalbalushi/tendering-system/internal/engine"
	"github.com/oalbalushi/tendering-system/internal/gateway"
	"github.com/oalbalushi/tendering-system/internal/handler"
	"github.com/oalbalushi/tendering-system/internal/repository"
	"github.com/oalbalushi/tendering-system/internal/service"
)

func main() {
	// Файл .env необязателен, окружение имеет приоритет.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := buildRepository(cfg, sugar)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	gw := buildGateway(cfg, logger, sugar)
	eng, err := buildEngine(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("extraction engine initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, gw, eng, logger, cfg.AdminPhone, cfg.DefaultCurrency)

	h := handler.NewHandler(svc, logger, cfg.TwilioAuthToken, cfg.IsProduction())
	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting tendering server",
			"addr", cfg.RunAddress,
			"env", cfg.AppEnv,
			"currency", cfg.DefaultCurrency)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// buildRepository выбирает хранилище: PostgreSQL при заданном DSN,
// иначе демонстрационный репозиторий в памяти.
func buildRepository(cfg *config.Config, sugar *zap.SugaredLogger) (service.Repository, error) {
	if cfg.DatabaseURI != "" {
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	}
	sugar.Info("DATABASE_URI is empty, using in-memory repository")
	return repository.NewMemoryRepository(), nil
}

// buildGateway выбирает шлюз уведомлений: Twilio при полных реквизитах,
// иначе мок-шлюз с записью в лог.
func buildGateway(cfg *config.Config, logger *zap.Logger, sugar *zap.SugaredLogger) service.Gateway {
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromPhone != "" {
		return gateway.NewTwilioGateway(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromPhone)
	}
	sugar.Info("Twilio credentials are not set, using mock gateway")
	return gateway.NewMockGateway(logger)
}

// buildEngine выбирает движок извлечения: Gemini при заданном ключе,
// иначе мок на регулярных выражениях.
func buildEngine(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (service.Engine, error) {
	if cfg.GeminiAPIKey != "" {
		return engine.NewGeminiEngine(ctx, cfg.GeminiAPIKey, cfg.DefaultCurrency)
	}
	sugar.Info("GEMINI_API_KEY is empty, using mock extraction engine")
	return engine.NewMockEngine(cfg.DefaultCurrency), nil
}

// Package main запускает HTTP-сервер админ-шлюза.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/mealboard-admin/internal/config"
	"github.com/mmeshcher/mealboard-admin/internal/enrich"
	"github.com/mmeshcher/mealboard-admin/internal/handler"
	"github.com/mmeshcher/mealboard-admin/internal/middleware"
	"github.com/mmeshcher/mealboard-admin/internal/ordercache"
	"github.com/mmeshcher/mealboard-admin/internal/service"
	"github.com/mmeshcher/mealboard-admin/internal/session"
	"github.com/mmeshcher/mealboard-admin/internal/upstream"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	if cfg.UpstreamAddress == "" {
		sugar.Fatalw("business backend address is required, use -u flag or UPSTREAM_API_ADDRESS")
	}

	orderCache, err := ordercache.Open(cfg.OrderCachePath)
	if err != nil {
		sugar.Fatalw("order cache initialization error", "error", err.Error())
	}
	defer orderCache.Close()

	sessions := session.NewManager()
	gateway := upstream.NewClient(cfg.UpstreamAddress, sessions)

	banks := enrich.NewIFSCClient(cfg.IFSCLookupAddress)
	registry := enrich.SimulatedGST{}

	svc := service.NewService(gateway, sessions, orderCache, banks, registry, logger, cfg.RefreshInterval)

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового обновления списка заказов
	g.Go(func() error {
		svc.StartOrderRefresh(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting mealboard admin server", "addr", cfg.RunAddress)
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

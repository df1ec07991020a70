package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/latestcomment/ai-battle-arena/internal/config"
	"github.com/latestcomment/ai-battle-arena/internal/handlers"
	"github.com/latestcomment/ai-battle-arena/internal/logging"
	"github.com/latestcomment/ai-battle-arena/internal/models"
	"github.com/latestcomment/ai-battle-arena/internal/services"
	"github.com/latestcomment/ai-battle-arena/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {
	cfg, cfgPath, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	zl, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		return err
	}
	defer func() {
		// stderr sync fails on some terminals; ignore it
		_ = zl.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	arena := services.NewArenaClient(cfg.BackendURL, cfg.RequestTimeout, zl.Named("arena"))
	manager := models.NewSessionManager()
	service := services.NewBattleService(manager, arena, store, cfg.Rounds, zl.Named("battle"))
	h := handlers.NewHandler(service)
	ws := handlers.NewWebSocketHandler(service)

	engine := html.New(cfg.ViewsDir, ".html")
	app := fiber.New(fiber.Config{
		Views:                 engine,
		DisableStartupMessage: true,
	})
	app.Use(logger.New())
	app.Static("/assets", cfg.ViewsDir+"/assets")
	handlers.Register(app, h, ws)

	zl.Info("battle arena starting",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.BackendURL),
		zap.String("store", cfg.Store.Driver),
		zap.String("config", cfgPath),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down")
		return app.Shutdown()
	})
	return g.Wait()
}

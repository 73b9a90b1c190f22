package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/amanigreeva/Sociosphere-sub001/internal/bot"
	"github.com/amanigreeva/Sociosphere-sub001/internal/broadcast"
	"github.com/amanigreeva/Sociosphere-sub001/internal/cache"
	cfgpkg "github.com/amanigreeva/Sociosphere-sub001/internal/config"
	"github.com/amanigreeva/Sociosphere-sub001/internal/directory"
	"github.com/amanigreeva/Sociosphere-sub001/internal/handlers"
	"github.com/amanigreeva/Sociosphere-sub001/internal/kafka"
	"github.com/amanigreeva/Sociosphere-sub001/internal/logger"
	"github.com/amanigreeva/Sociosphere-sub001/internal/middleware"
	"github.com/amanigreeva/Sociosphere-sub001/internal/repository"
	"github.com/amanigreeva/Sociosphere-sub001/internal/retention"
	"github.com/amanigreeva/Sociosphere-sub001/internal/routes"
	"github.com/amanigreeva/Sociosphere-sub001/internal/service"
	"github.com/amanigreeva/Sociosphere-sub001/internal/ws"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := cfgpkg.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(cfg.Development)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	mc, err := repository.NewMongoClient(cfg)
	if err != nil {
		zl.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.Database)

	rc, err := cache.NewRedis(cfg)
	if err != nil {
		zl.Fatalw("redis init", "err", err)
	}
	defer rc.Close()

	kprod := kafka.NewProducer(cfg)
	defer kprod.Close()
	kcons := kafka.NewConsumer(cfg)
	defer kcons.Close()

	convRepo := repository.NewMongoConversationRepo(db.Collection("conversations"))
	msgRepo := repository.NewMongoMessageRepo(db.Collection("messages"), cfg.MessageTTL)
	dir := directory.NewMongoDirectory(db.Collection("users"), rc, cfg.Bot.Username)

	chatSvc := service.NewChatService(convRepo, msgRepo, zl)
	hub := ws.NewHub(rc, zl)
	bcast := broadcast.New(hub, kprod, convRepo, zl)
	responder := bot.NewResponder(dir, convRepo, chatSvc, cfg.BotReplyDelay, zl)
	chatSvc.SetNotifier(bcast)
	chatSvc.SetReplyHook(responder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	purger := retention.NewPurger(msgRepo, cfg.MessageTTL, cfg.SweepInterval, zl)
	go purger.Run(ctx)

	go func() {
		if err := kcons.Start(ctx, func(_ string, value []byte) {
			bcast.HandleRemote(ctx, value)
		}); err != nil && ctx.Err() == nil {
			zl.Warnw("kafka consumer stopped", "err", err)
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	app.Use(recover.New())
	routes.Register(app,
		handlers.NewChatHandler(chatSvc, dir),
		handlers.NewMessageHandler(chatSvc),
		hub,
		middleware.JWTAuth(cfg.JWT.Secret),
	)

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zl.Fatalw("server listen", "err", err)
		}
	}()
	zl.Infow("chat-service started", "port", cfg.Server.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	zl.Info("chat-service stopped")
}

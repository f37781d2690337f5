package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/escalation"
	"complaintdesk/backend/internal/hub"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	logger := logging.New(cfg != nil && cfg.Development())
	defer logger.Sync()
	if err != nil {
		if cfg == nil {
			logger.Fatal("load config", zap.Error(err))
		}
		logger.Warn("config loaded with warnings", zap.Error(err))
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	db, err := storage.OpenPostgres(cfg.DatabaseURL, cfg.DebugSQL)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	if err := storage.Migrate(db); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	store := storage.NewStorageService(db)

	// 2. Notification hub, fanned out through redis when configured
	var relay *hub.RedisRelay
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, config.DefaultStoreTimeout)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Fatal("connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		relay = hub.NewRedisRelay(rdb, config.RedisChannel, logger)
	}
	notifications := hub.NewManagerService(relay, hub.RolePolicy{Lookup: store.GetComplaintByID}, logger)
	go notifications.Run(ctx)

	publishers := complaint.Publishers{notifications}
	hooks := []escalation.Hook{notifications}

	// 3. Optional staff channel on telegram
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		loc, err := localization.Bundled()
		if err != nil {
			logger.Fatal("load locales", zap.Error(err))
		}
		notifier, err := telegram.NewBotNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.NotifyLang, loc, escalation.SettingsFrom(cfg), logger)
		if err != nil {
			logger.Error("telegram notifier disabled", zap.Error(err))
		} else {
			go notifier.Run(ctx)
			publishers = append(publishers, notifier)
			hooks = append(hooks, notifier)
		}
	}

	// 4. Engine and background rules
	complaints := complaint.NewService(store, publishers, logger, complaint.Options{
		EnforceDepartmentOnClaim: cfg.EnforceDepartmentOnClaim,
		BroadcastAll:             cfg.BroadcastAll,
	})
	scheduler := escalation.NewScheduler(store, escalation.SettingsFrom(cfg), logger, hooks...)
	go scheduler.Run(ctx)

	// 5. HTTP
	h := handler.NewHandler(notifications, complaints, store, handler.NewAuthenticator(cfg.JWTSecret), logger)
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        h.Router(cfg.Development()),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	select {
	case <-notifications.Done():
	case <-shutdownCtx.Done():
	}
}

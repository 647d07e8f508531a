package main

import (
	"context"
	"fmt"
	"net/http"

	firebase "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"kinmel/internal/adapter/api/handler"
	"kinmel/internal/adapter/api/middleware"
	"kinmel/internal/adapter/api/router"
	firestorerepo "kinmel/internal/adapter/repository"
	"kinmel/internal/infrastructure/fcm"
	fbauth "kinmel/internal/infrastructure/firebase"
	"kinmel/internal/infrastructure/presence"
	ws "kinmel/internal/infrastructure/websocket"
	"kinmel/internal/usecase"
	"kinmel/pkg/config"
	"kinmel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config: %v", err)
		return
	}
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProject})
	if err != nil {
		logger.Error("failed to initialize firebase app: %v", err)
		return
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Error("failed to initialize firebase auth: %v", err)
		return
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		logger.Error("failed to initialize firebase messaging: %v", err)
		return
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		logger.Error("failed to initialize firestore: %v", err)
		return
	}
	defer firestoreClient.Close()

	// Repositories
	userRepo := firestorerepo.NewFirestoreUserRepository(firestoreClient)
	chatRepo := firestorerepo.NewFirestoreChatRepository(firestoreClient)
	notifRepo := firestorerepo.NewFirestoreNotificationRepository(firestoreClient)

	// Presence: shared through Redis when configured, local-only otherwise.
	// A single-process deployment needs no Redis at all.
	var registry presence.Registry
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, presence degrades to local: %v", err)
		}
		registry = presence.NewShared(rdb)
	} else {
		registry = presence.NewLocal()
	}

	verifier := fbauth.NewFirebaseAuthClient(authClient)
	pushSender := fcm.NewPushSender(messagingClient, userRepo, notifRepo)

	wsManager := ws.NewManager(registry)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, notifRepo, registry, wsManager, pushSender, cfg.ChatHistoryLimit)
	eventHandler := ws.NewEventHandler(wsManager, chatUseCase)

	wsHandler := handler.NewWebSocketHandler(wsManager, eventHandler, verifier, userRepo)
	healthHandler := handler.NewHealthHandler()
	chatHandler := handler.NewChatHandler(chatUseCase, userRepo)
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	router.Setup(e, authMiddleware, healthHandler, wsHandler, chatHandler)

	logger.Info("chat gateway listening on port %s", cfg.ServerPort)
	if err := e.Start(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped: %v", err)
	}
}

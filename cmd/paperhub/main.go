package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authsvc "paperhub/internal/app/services/auth"
	chatservice "paperhub/internal/app/services/chat"
	domainchat "paperhub/internal/domain/chat"
	domainuser "paperhub/internal/domain/user"
	"paperhub/internal/infra/broker/kafka"
	"paperhub/internal/infra/config"
	mongodb "paperhub/internal/infra/db/mongo"
	ginserver "paperhub/internal/infra/http/gin"
	"paperhub/internal/infra/obs"
	"paperhub/internal/infra/security"
	"paperhub/internal/infra/storage/memory"
	"paperhub/internal/infra/storage/s3"
	"paperhub/internal/realtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	stores, ready, closeStores := buildStores(ctx, cfg, logger)
	defer closeStores()

	tokens, err := security.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("token manager init failed", "error", err)
		os.Exit(1)
	}

	events, closeEvents := buildEvents(cfg, logger)
	defer closeEvents()

	chatSvc := &chatservice.Service{
		Messages:      stores.messages,
		Conversations: stores.conversations,
		Users:         stores.users,
		Events:        events,
		Logger:        logger,
	}
	authSvc := &authsvc.Service{
		Users:     stores.users,
		Passwords: security.BcryptHasher{},
		Tokens:    tokens,
		Logger:    logger,
	}

	gateway := &realtime.Gateway{
		Chat:     chatSvc,
		Presence: realtime.NewPresenceRegistry(),
		Rooms:    realtime.NewRoomRegistry(),
		Tokens:   tokens,
		Logger:   logger,

		InsecureSkipVerify: strings.EqualFold(cfg.Env, "dev"),
		OriginPatterns:     originPatterns(cfg.FrontendURL),
	}

	uploader := buildUploader(cfg, logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: ready}, ginserver.Handlers{
		Auth:     ginserver.AuthHandler{Service: authSvc, Logger: logger},
		Chat:     ginserver.ChatHandler{Chat: chatSvc, Logger: logger},
		Upload:   ginserver.UploadHandler{Uploader: uploader, Logger: logger},
		Realtime: gateway,
		AuthMiddleware: ginserver.AuthMiddleware{
			Tokens: tokens,
			Users:  stores.users,
			Logger: logger,
		}.Handle,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type stores struct {
	messages      domainchat.MessageStore
	conversations domainchat.ConversationStore
	users         domainuser.Repository
}

// buildStores connects to Mongo when MONGO_URI is set and falls back to
// the in-memory stores otherwise, which keeps local development free of
// infrastructure.
func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, func() error, func()) {
	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set, using in-memory storage")
		return stores{
			messages:      memory.NewMessageStore(),
			conversations: memory.NewConversationStore(),
			users:         memory.NewUserRepository(),
		}, func() error { return nil }, func() {}
	}

	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connect failed", "error", err)
		os.Exit(1)
	}
	messages := mongodb.NewMessageRepository(client.DB)
	conversations := mongodb.NewConversationRepository(client.DB)
	users := mongodb.NewUserRepository(client.DB)

	indexCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	for _, ensure := range []func(context.Context) error{
		messages.EnsureIndexes,
		conversations.EnsureIndexes,
		users.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			logger.Error("index creation failed", "error", err)
			os.Exit(1)
		}
	}

	ready := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx)
	}
	closer := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.DB.Client().Disconnect(disconnectCtx)
	}
	return stores{messages: messages, conversations: conversations, users: users}, ready, closer
}

func buildEvents(cfg config.Config, logger *slog.Logger) (chatservice.EventPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, message events disabled")
		return nil, func() {}
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	events := &kafka.ChatEvents{
		Producer:    producer,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Logger:      logger,
	}
	return events, func() { _ = producer.Close() }
}

func buildUploader(cfg config.Config, logger *slog.Logger) s3.Uploader {
	bucket, err := s3.NewAttachmentBucket(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
	if err != nil {
		logger.Warn("s3 uploader unavailable", "error", err)
		return s3.NoopUploader{}
	}
	return bucket
}

func originPatterns(frontendURL string) []string {
	origin := strings.TrimSpace(frontendURL)
	if origin == "" {
		return nil
	}
	origin = strings.TrimPrefix(origin, "https://")
	origin = strings.TrimPrefix(origin, "http://")
	return []string{origin}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/chanwitp/identity-api/internal/config"
	"github.com/chanwitp/identity-api/internal/handler"
	"github.com/chanwitp/identity-api/internal/mailer"
	"github.com/chanwitp/identity-api/internal/repository"
	"github.com/chanwitp/identity-api/internal/store"
	"github.com/chanwitp/identity-api/internal/token"
	"github.com/chanwitp/identity-api/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "auth").Logger()

	cfg := config.New(&logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mongodb")
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping redis")
	}

	userRepo := repository.NewUserMongoRepository(ctx, &logger, db)
	tokenRepo := repository.NewTokenMongoRepository(ctx, &logger, db)

	codec := token.NewCodec([]byte(cfg.Token.Secret), nil)
	verifier := usecase.NewCredentialVerifier(userRepo)
	codeStore := store.NewVerificationStore(redisClient, userRepo)
	mail := mailer.NewMailer(&logger, cfg.App)

	authUsecase := usecase.NewAuthUsecase(
		userRepo, tokenRepo, codeStore, verifier, codec, mail, time.Now, &cfg.Token, &logger,
	)
	accountUsecase := usecase.NewAccountUsecase(
		userRepo, tokenRepo, codec, mail, time.Now, &cfg.Token, &logger,
	)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(
		userRepo, tokenRepo, codec, mail, time.Now, &cfg.Token, &logger,
	)

	authHandler := handler.NewAuthHTTPHandler(
		authUsecase, accountUsecase, passwordResetUsecase, codec, cfg.Token.RefreshTokenExpiresIn, &logger,
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Mount("/", authHandler.Routes())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("mongodb disconnect failed")
	}
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close failed")
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/config"
	dbRedis "github.com/omnirecall/omnirecall/internal/db/redis"
	"github.com/omnirecall/omnirecall/internal/domain"
	logpkg "github.com/omnirecall/omnirecall/internal/logger"
	"github.com/omnirecall/omnirecall/internal/metrics"
	ingestionrepo "github.com/omnirecall/omnirecall/internal/repository/ingestion"
	"github.com/omnirecall/omnirecall/internal/repository/memory"
	"github.com/omnirecall/omnirecall/internal/repository/rawstore"
	"github.com/omnirecall/omnirecall/internal/transport/gemini"
	"github.com/omnirecall/omnirecall/internal/transport/httpapi"
	"github.com/omnirecall/omnirecall/internal/transport/openai"
	chatuc "github.com/omnirecall/omnirecall/internal/usecase/chat"
	healthuc "github.com/omnirecall/omnirecall/internal/usecase/health"
	ingestionuc "github.com/omnirecall/omnirecall/internal/usecase/ingestion"
	recalluc "github.com/omnirecall/omnirecall/internal/usecase/recall"
	"github.com/omnirecall/omnirecall/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting omnirecall API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()

	// Create the storage backends based on driver. The memory driver serves
	// local development and tests; valkey and redis share the rueidis store.
	var (
		docStore    ingestionuc.Store
		recallStore recalluc.Store
		raw         ingestionuc.RawStore
		pinger      healthuc.StorePinger
	)
	switch cfg.Database.Driver {
	case "memory":
		store := memory.NewStore()
		docStore = store
		recallStore = store
		pinger = store
		raw = memory.NewRawStore()
	case "valkey", "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")

		repo := ingestionrepo.New(store, cfg.Storage.KeyPrefix)
		docStore = repo
		recallStore = repo
		pinger = store
		raw = rawstore.New(store, cfg.Storage.KeyPrefix)
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterChatMetrics()

	// AI provider clients. Gemini embeds by default; with only a GitHub
	// Models token, embeddings go through the OpenAI-compatible endpoint.
	var embedder domain.EmbeddingClient = gemini.NewEmbedder(&gemini.Config{
		APIKey:         cfg.Providers.Gemini.APIKey,
		BaseURL:        cfg.Providers.Gemini.BaseURL,
		EmbeddingModel: cfg.Providers.Gemini.EmbeddingModel,
		Logger:         logger,
	})
	if cfg.Providers.Gemini.APIKey == "" && cfg.Providers.GitHubModels.Token != "" {
		embedder = openai.NewEmbedder(&openai.Config{
			Token:   cfg.Providers.GitHubModels.Token,
			BaseURL: cfg.Providers.GitHubModels.BaseURL,
			Logger:  logger,
		})
	}
	primary := gemini.NewChatClient(&gemini.Config{
		APIKey:             cfg.Providers.Gemini.APIKey,
		BaseURL:            cfg.Providers.Gemini.BaseURL,
		ChatModel:          cfg.Providers.Gemini.ChatModel,
		ChatFallbackModels: cfg.Providers.Gemini.ChatFallbackModels,
		Logger:             logger,
	})
	fallback := openai.NewChatClient(&openai.Config{
		Token:   cfg.Providers.GitHubModels.Token,
		BaseURL: cfg.Providers.GitHubModels.BaseURL,
		Model:   cfg.Providers.GitHubModels.Model,
		Logger:  logger,
	})
	logger.Info("Chat providers created",
		zap.String("primary", primary.ProviderName()),
		zap.String("fallback", fallback.ProviderName()),
		zap.String("embedding_model", cfg.Providers.Gemini.EmbeddingModel),
	)

	// Create use case services
	ingestSvc := ingestionuc.New(docStore, raw, embedder, ingestionuc.Options{
		ChunkSizeWords:       cfg.Ingestion.ChunkSizeWords,
		ChunkOverlapWords:    cfg.Ingestion.ChunkOverlapWords,
		EmbeddingParallelism: cfg.Ingestion.EmbeddingParallelism,
	}, logger)
	recallSvc := recalluc.New(recallStore, embedder, recalluc.Options{
		CandidateWindow: cfg.Recall.CandidateWindow,
		SnippetLength:   cfg.Recall.SnippetLength,
	}, logger)

	chatRouter := chatuc.NewRouter(primary, fallback, chatuc.RouterOptions{
		MaxAttemptsPerProvider: cfg.Chat.Routing.MaxAttemptsPerProvider,
		RetryBaseDelay:         time.Duration(cfg.Chat.Routing.RetryBaseDelayMs) * time.Millisecond,
		RetryMaxDelay:          time.Duration(cfg.Chat.Routing.RetryMaxDelayMs) * time.Millisecond,
	}, logger)
	chatSvc := chatuc.New(recallSvc, chatRouter, chatuc.QualityOptions{
		MinCitationCount:               cfg.Chat.Quality.MinCitationCount,
		MinStrongCitationScore:         cfg.Chat.Quality.MinStrongCitationScore,
		InsufficientEvidenceMessage:    cfg.Chat.Quality.InsufficientEvidenceMessage,
		EnableRecallOnlyFallback:       cfg.Chat.Quality.EnableRecallOnlyFallback,
		RecallOnlyFallbackMaxCitations: cfg.Chat.Quality.RecallOnlyFallbackMaxCitations,
		RecallOnlyFallbackMessage:      cfg.Chat.Quality.RecallOnlyFallbackMessage,
	}, logger)

	// Health service. The GitHub Models client exposes a free models listing
	// endpoint; Gemini has no cheap probe, so only the fallback is checked.
	providers := map[string]healthuc.ProviderChecker{}
	if cfg.Providers.GitHubModels.Token != "" {
		providers[fallback.ProviderName()] = fallback
	}
	healthSvc := healthuc.New(pinger, providers)

	// Create the HTTP server
	server := httpapi.NewServer(ingestSvc, recallSvc, chatSvc, healthSvc, cfg.Ingestion.MaxUploadBytes, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

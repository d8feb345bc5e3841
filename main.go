package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gogotex/gogotex/backend/auth-sessions/handlers"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/auth"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/config"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/database"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/security"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/sessions"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/users"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/metrics"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/middleware"
)

func main() {
	// initialize logging (LOG_LEVEL env: debug|info|warn|error|fatal) before config so load errors are visible
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	log := logger.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	logger.Debugf("startup: LOG_LEVEL=%s store=%s env=%s", logger.LevelString(), cfg.Sessions.Store, cfg.Server.Environment)

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := tokens.NewCodec(cfg.JWT)
	if err != nil {
		logger.Fatalf("token codec: %v", err)
	}
	hasher := security.NewHasher(cfg.Security.BcryptCost)

	var (
		userRepo    users.UserRepository
		sessionRepo sessions.Repository
		ready       = map[string]handlers.Pinger{}
	)

	if cfg.Sessions.Store == config.StoreMemory {
		logger.Warnf("using in-memory user and session stores; data is lost on restart")
		userRepo = users.NewMemoryUserRepository()
		sessionRepo = sessions.NewMemoryRepository()
	} else {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
			logger.Warnf("attempt %d: failed to connect to MongoDB: %v", attempt, err)
		})
		if err != nil {
			logger.Fatalf("%v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDB.Database)

		mur := users.NewMongoUserRepository(db.Collection("users"))
		if err := mur.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("users indexes: %v", err)
		}
		userRepo = mur
		ready["mongo"] = mur

		sessionRepo, err = openSessionRepository(ctx, cfg, db)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		if p, ok := sessionRepo.(handlers.Pinger); ok && cfg.Sessions.Store == config.StoreRedis {
			ready["redis"] = p
		}
	}

	sessionSvc := sessions.NewService(sessionRepo, hasher)
	authSvc, err := auth.NewService(users.NewService(userRepo), sessionSvc, auth.NewLifecycle(sessionSvc, codec, log), codec, hasher, log)
	if err != nil {
		logger.Fatalf("auth service: %v", err)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	r := handlers.NewRouter(handlers.RouterConfig{
		APIPrefix:  cfg.Server.APIPrefix,
		CORSOrigin: cfg.Server.CORSOrigin,
		Auth:       authSvc,
		Guard:      auth.NewGuard(sessionSvc, codec, log),
		Cookies: middleware.CookieConfig{
			Secure:        cfg.Server.IsProduction(),
			AccessMaxAge:  cfg.JWT.AccessTTL,
			RefreshMaxAge: cfg.JWT.RefreshTTL,
		},
		Ready:   ready,
		Metrics: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting auth service on %s (prefix %s)", srv.Addr, cfg.Server.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// openSessionRepository returns the Mongo or Redis session store selected by SESSION_STORE.
func openSessionRepository(ctx context.Context, cfg *config.Config, db *mongo.Database) (sessions.Repository, error) {
	switch cfg.Sessions.Store {
	case config.StoreRedis:
		client, err := database.ConnectRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.MongoDB.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Infof("using Redis for session storage: %s", cfg.Redis.Addr())
		return sessions.NewRedisRepository(client, "session:", cfg.JWT.RefreshTTL), nil
	default:
		repo := sessions.NewMongoRepository(db.Collection("sessions"))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("sessions indexes: %w", err)
		}
		return repo, nil
	}
}

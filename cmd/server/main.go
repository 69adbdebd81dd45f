package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"yourvocab/internal/config"
	"yourvocab/internal/database"
	"yourvocab/internal/handlers"
	"yourvocab/internal/logger"
	"yourvocab/internal/quiz"
	"yourvocab/internal/repository"
	"yourvocab/internal/security"
	"yourvocab/internal/service"
	"yourvocab/internal/sessionstore"
	"yourvocab/migrations"
)

const (
	sweepInterval     = 5 * time.Minute
	limiterGCInterval = 10 * time.Minute
	pruneInterval     = time.Hour
	shutdownTimeout   = 15 * time.Second
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close()
	log.Info("Database connection established", "type", cfg.DatabaseType)

	var migrationsFS fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		migrationsFS = os.DirFS(cfg.MigrationsPath)
	}
	applied, err := db.RunMigrations(ctx, migrationsFS)
	if err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}
	log.Info("Migrations completed", "applied", applied)

	store, err := sessionstore.New(ctx, sessionstore.Config{
		Kind:          cfg.SessionStore,
		TTL:           cfg.SessionTTL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatal("Failed to create session store", "error", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	log.Info("Session store ready", "kind", cfg.SessionStore, "ttl", cfg.SessionTTL)

	// Initialize repositories
	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	attemptRepo := repository.NewAttemptRepository(db, log)

	// Initialize services
	courseService := service.NewCourseService(courseRepo, lessonRepo, log)
	statsService := service.NewStatsService(attemptRepo, courseService)

	engine := quiz.NewEngine(courseRepo, lessonRepo, attemptRepo, store, quiz.Options{
		CompletionRetries:    cfg.CompletionRetries,
		CompletionRetryDelay: cfg.CompletionRetryDelay,
		Logger:               log.With("component", "quiz"),
	})

	limiter := security.NewRateLimiter(cfg.SubmitRateLimit, time.Minute)

	router := handlers.NewRouter(handlers.RouterDeps{
		Quiz:        handlers.NewQuizHandler(engine, store, log),
		Courses:     handlers.NewCourseHandler(courseService, log),
		Stats:       handlers.NewStatsHandler(statsService, log),
		Middleware:  handlers.NewMiddleware([]byte(cfg.JWTSecret), limiter, log),
		CORSOrigins: cfg.CORSOrigins,
		Health:      func(r *http.Request) error { return db.PingContext(r.Context()) },
		Logger:      log,
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		limiter.Run(gctx, limiterGCInterval)
		return nil
	})

	g.Go(func() error {
		pruneMistakeEvents(gctx, attemptRepo, 2*cfg.SessionTTL, log)
		return nil
	})

	if mem, ok := store.(*sessionstore.MemoryStore); ok {
		g.Go(func() error {
			sweepExpiredSessions(gctx, mem, log)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", "error", err)
		return
	}
	log.Info("Server stopped")
}

// sweepExpiredSessions periodically drops abandoned quiz sessions
func sweepExpiredSessions(ctx context.Context, store *sessionstore.MemoryStore, log *logger.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.Debug("Expired quiz sessions swept", "removed", n, "remaining", store.Len())
			}
		}
	}
}

// pruneMistakeEvents drops replay keys of sessions that can no longer be resumed
func pruneMistakeEvents(ctx context.Context, repo *repository.AttemptRepository, keep time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PruneMistakeEvents(ctx, time.Now().Add(-keep))
			if err != nil {
				log.Warn("Failed to prune mistake events", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("Mistake events pruned", "removed", n)
			}
		}
	}
}

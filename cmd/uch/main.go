// Package main is the entry point for the UCH blog server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uch/internal/cache"
	"uch/internal/config"
	"uch/internal/database"
	"uch/internal/handlers"
	"uch/internal/render"
	"uch/internal/router"
	"uch/internal/session"
	"uch/internal/sitecontext"
	"uch/internal/storage"
	"uch/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions + page cache).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	articleStore := store.NewArticleStore(db)
	categoryStore := store.NewCategoryStore(db)
	tagStore := store.NewTagStore(db)
	commentStore := store.NewCommentStore(db)
	mediaStore := store.NewMediaStore(db)

	// File storage: S3-compatible bucket when configured, local disk otherwise.
	var files storage.Storage
	var mediaHandler http.Handler
	if cfg.UseS3() {
		s3, err := storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		files = s3
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		local := storage.NewLocalDir(cfg.MediaRoot, cfg.MediaURL)
		files = local
		mediaHandler = local.Handler()
		slog.Info("local media storage", "root", cfg.MediaRoot, "url", cfg.MediaURL)
	}

	// Template renderers. Admin pages in dev mode load assets from CDN.
	renderer, err := render.New(cfg.IsDev(), files.URL)
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}
	chain := sitecontext.Default(sitecontext.Sources{
		Categories: categoryStore,
		Articles:   articleStore,
		Tags:       tagStore,
	})
	site, err := render.NewSite(cfg.IsDev(), files.URL, chain)
	if err != nil {
		slog.Error("failed to initialize blog renderer", "error", err)
		os.Exit(1)
	}

	// Full-page HTML cache for anonymous visitors.
	var pageCache *cache.PageCache
	if cfg.PageCacheTTL > 0 {
		pageCache = cache.NewPageCache(valkeyClient, cfg.PageCacheTTL)
	}

	// Create handler groups with their dependencies.
	adminHandlers := handlers.NewAdmin(renderer, articleStore, categoryStore, tagStore, commentStore, mediaStore, userStore, files, pageCache)
	authHandlers := handlers.NewAuth(renderer, sessionStore, userStore)
	publicHandlers := handlers.NewPublic(site, articleStore, categoryStore, tagStore, commentStore, cfg.PageSize)

	r := router.New(sessionStore, adminHandlers, authHandlers, publicHandlers, router.Options{
		PageCache: pageCache,
		Media:     mediaHandler,
		Secure:    secureCookies,
	})

	// WriteTimeout leaves room for large media uploads.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

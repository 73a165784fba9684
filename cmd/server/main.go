package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloudsyncpro/internal/auth"
	"cloudsyncpro/internal/config"
	"cloudsyncpro/internal/handler"
	"cloudsyncpro/internal/middleware"
	"cloudsyncpro/internal/repository/postgres"
	serviceAuth "cloudsyncpro/internal/service/auth"
	"cloudsyncpro/internal/service/drive"
	"cloudsyncpro/internal/storage"
	"cloudsyncpro/internal/upload"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"storage", cfg.StorageDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Token manager signs our own tokens and verifies incoming ones
	tokenManager, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		JWKSURL:    cfg.JWTJWKSURL,
		JWKSIssuer: cfg.JWTJWKSIssuer,
		Issuer:     "cloudsyncpro",
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create token manager: %v", err)
	}
	defer tokenManager.Close()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	poolCfg := pool.Config()
	logger.Info("database connected",
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if cfg.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		logger.Info("schema ensured")
	}

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	tokenRepo := postgres.NewRefreshTokenRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	fileRepo := postgres.NewFileRepository(repoConfig)
	txManager := postgres.NewTransactionManager(repoConfig)

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}

	uploadPolicy, err := upload.DefaultPolicy()
	if err != nil {
		log.Fatalf("Failed to load upload policy: %v", err)
	}

	// Services
	authorizer := serviceAuth.NewOwnerOrAdminAuthorizer()
	authService := serviceAuth.NewService(userRepo, tokenRepo, tokenManager, txManager, logger)
	userAdminService := serviceAuth.NewUserAdminService(userRepo, tokenRepo, logger)
	folderService := drive.NewFolderService(folderRepo, txManager, authorizer, logger)
	fileService := drive.NewFileService(fileRepo, folderRepo, store, authorizer, logger)
	treeService := drive.NewTreeService(folderRepo, fileRepo, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	adminHandler := handler.NewAdminHandler(userAdminService, logger)
	folderHandler := handler.NewFolderHandler(folderService, logger)
	treeHandler := handler.NewTreeHandler(treeService, logger)
	fileHandler := handler.NewFileHandler(fileService, store, uploadPolicy, logger)
	healthHandler := handler.NewHealthHandler(pool, logger)

	metrics := middleware.NewMetrics()

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Auth routes
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	// Admin routes
	mux.HandleFunc("GET /api/admin/users", adminHandler.ListUsers)
	mux.HandleFunc("PATCH /api/admin/users/{id}/status", adminHandler.UpdateStatus)
	mux.HandleFunc("PATCH /api/admin/users/{id}/role", adminHandler.UpdateRole)

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders", folderHandler.ListFolders)
	mux.HandleFunc("GET /api/folders/tree", treeHandler.GetTree)
	mux.HandleFunc("GET /api/folders/search", folderHandler.SearchFolders)
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PUT /api/folders/{id}", folderHandler.RenameFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("PUT /api/folders/{id}/move", folderHandler.MoveFolder)
	mux.HandleFunc("GET /api/folders/{id}/path", folderHandler.GetFolderPath)
	mux.HandleFunc("GET /api/folders/{id}/stats", folderHandler.GetFolderStats)
	mux.HandleFunc("POST /api/folders/{id}/duplicate", folderHandler.DuplicateFolder)

	// File routes
	mux.HandleFunc("POST /api/files/upload", fileHandler.UploadFiles)
	mux.HandleFunc("GET /api/files", fileHandler.ListFiles)
	mux.HandleFunc("GET /api/files/search", fileHandler.SearchFiles)
	mux.HandleFunc("GET /api/files/stats/user", fileHandler.GetStats)
	mux.HandleFunc("GET /api/files/{id}", fileHandler.GetFile)
	mux.HandleFunc("PUT /api/files/{id}", fileHandler.RenameFile)
	mux.HandleFunc("DELETE /api/files/{id}", fileHandler.DeleteFile)
	mux.HandleFunc("GET /api/files/{id}/download", fileHandler.DownloadFile)
	mux.HandleFunc("PUT /api/files/{id}/move", fileHandler.MoveFile)

	// Local uploads are served directly; S3 objects are fetched from the bucket
	if local, ok := store.(*storage.LocalStorage); ok {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", local.Handler()))
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	go rateLimiter.Run(ctx)

	// Build middleware chain
	// Metrics wraps the mux directly so r.Pattern is set when it records
	var handler http.Handler = metrics.Middleware(mux)

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLogger → RateLimit → Auth → Metrics → Routes
	handler = middleware.AuthMiddleware(tokenManager, logger)(handler)
	handler = rateLimiter.Middleware(handler)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	})
	handler = corsHandler.Handler(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Minute, // large multipart uploads
		WriteTimeout: 0,               // downloads stream for as long as they need
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

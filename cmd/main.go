package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/cache"
	"vaultdrive/internal/config"
	"vaultdrive/internal/handler"
	"vaultdrive/internal/repository"
	"vaultdrive/internal/service"
	"vaultdrive/internal/storage"
)

func connectWithRetry(cfg *config.Config, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.Database.GetDSN()

	// Сначала подключаемся к системной базе postgres, она существует всегда
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Database.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists,
		"SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)",
		cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Database.Name)
		if _, err := pgDB.Exec("CREATE DATABASE " + cfg.Database.Name); err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(appConfig, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Инициализация S3 клиента
	s3Config, err := storage.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := storage.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Инициализация проверки токенов
	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatalf("Failed to load auth config: %v", err)
	}
	auth.Init(authConfig.JWTSecret)

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	fileRepo := repository.NewFileRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	listingCache := cache.NewListingCache(cache.DefaultTTL)

	// Инициализация сервисов
	activityService := service.NewActivityService(activityRepo)
	permissionService := service.NewPermissionService(permRepo, fileRepo, folderRepo, userRepo, activityService)
	folderService := service.NewFolderService(folderRepo, fileRepo, s3Client, permissionService, activityService, listingCache)
	fileService := service.NewFileService(fileRepo, folderRepo, s3Client, permissionService, activityService, listingCache, appConfig.Storage.MaxUploadBytes)
	trashService := service.NewTrashService(fileRepo, folderRepo, s3Client, permissionService, activityService, listingCache)
	quotaService := service.NewQuotaService(fileRepo, appConfig.Storage.QuotaLimitBytes)
	userService := service.NewUserService(userRepo, activityService)

	// Инициализация хендлеров
	folderHandler := handler.NewFolderHandler(folderService)
	fileHandler := handler.NewFileHandler(fileService)
	trashHandler := handler.NewTrashHandler(trashService)
	permissionHandler := handler.NewPermissionHandler(permissionService)
	quotaHandler := handler.NewQuotaHandler(quotaService)
	userHandler := handler.NewUserHandler(userService, activityService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		r.Post("/files", fileHandler.Upload)

		r.Route("/files/{uuid}", func(r chi.Router) {
			r.Get("/", fileHandler.Download)
			r.Put("/rename", fileHandler.Rename)
			r.Put("/share", fileHandler.UpdateSharing)
			r.Delete("/", trashHandler.DeleteFile)
			r.Delete("/permanent", fileHandler.DeletePermanent)

			r.Get("/permissions", permissionHandler.ListFilePermissions)
			r.Put("/permissions/{userID}", permissionHandler.SetFilePermission)
			r.Delete("/permissions/{userID}", permissionHandler.RemoveFilePermission)
		})

		r.Get("/folders", folderHandler.GetContent)
		r.Get("/folders/structure", folderHandler.GetStructure)
		r.Post("/folders", folderHandler.Create)

		r.Route("/folders/{id}", func(r chi.Router) {
			r.Get("/", folderHandler.GetContent)
			r.Put("/rename", folderHandler.Rename)
			r.Put("/move", folderHandler.Move)
			r.Put("/share", folderHandler.UpdateSharing)
			r.Delete("/", trashHandler.DeleteFolder)
			r.Delete("/permanent", folderHandler.DeletePermanent)

			r.Get("/permissions", permissionHandler.ListFolderPermissions)
			r.Put("/permissions/{userID}", permissionHandler.SetFolderPermission)
			r.Delete("/permissions/{userID}", permissionHandler.RemoveFolderPermission)
		})

		r.Route("/trash", func(r chi.Router) {
			r.Get("/", trashHandler.List)
			r.Post("/empty", trashHandler.Empty)
			r.Post("/files/{uuid}/restore", trashHandler.RestoreFile)
			r.Post("/folders/{id}/restore", trashHandler.RestoreFolder)
			r.Delete("/files/{uuid}", trashHandler.PurgeFile)
			r.Delete("/folders/{id}", trashHandler.PurgeFolder)
		})

		r.Get("/quota", quotaHandler.GetUsage)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Put("/{userID}/role", userHandler.UpdateRole)
		})

		r.Get("/activity", userHandler.ListActivity)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Servers stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"cloudsyncpro/internal/auth"
	"cloudsyncpro/internal/config"
	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"
	"cloudsyncpro/internal/domain/services"
	"cloudsyncpro/internal/repository/postgres"
	serviceAuth "cloudsyncpro/internal/service/auth"
	"cloudsyncpro/internal/service/drive"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// seedFolder is a demo folder with optional children
type seedFolder struct {
	name     string
	children []seedFolder
}

var demoTree = []seedFolder{
	{name: "Projects", children: []seedFolder{
		{name: "2025", children: []seedFolder{{name: "Q1"}, {name: "Q2"}}},
		{name: "Archive"},
	}},
	{name: "Documents", children: []seedFolder{{name: "Contracts"}, {name: "Invoices"}}},
	{name: "Images"},
}

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't create the admin or demo folders")
	clearData := flag.Bool("clear-data", false, "Delete all files and folders (keep schema and accounts)")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	switch {
	case *clearData:
		log.Printf("Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	case *schemaOnly:
		log.Printf("Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	default:
		log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := postgres.DropAll(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	log.Println("Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		if err := clearDriveData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("Data cleared successfully")
		return
	}

	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is required to bootstrap the admin account")
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	tokenRepo := postgres.NewRefreshTokenRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	txManager := postgres.NewTransactionManager(repoConfig)

	tokenManager, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     "cloudsyncpro",
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create token manager: %v", err)
	}
	defer tokenManager.Close()

	authService := serviceAuth.NewService(userRepo, tokenRepo, tokenManager, txManager, logger)
	folderService := drive.NewFolderService(folderRepo, txManager, serviceAuth.NewOwnerOrAdminAuthorizer(), logger)

	admin, err := ensureAdmin(ctx, authService, userRepo, cfg)
	if err != nil {
		log.Fatalf("Failed to bootstrap admin: %v", err)
	}
	log.Printf("Admin account ready: %s (ID: %d)", admin.Email, admin.ID)

	created, err := seedFolders(ctx, folderService, admin.Principal(), nil, demoTree)
	if err != nil {
		log.Fatalf("Failed to seed folders: %v", err)
	}

	log.Printf("Seeding complete! %d folders created", created)
}

// ensureAdmin creates the bootstrap admin, or returns the existing account
func ensureAdmin(ctx context.Context, authService *serviceAuth.Service, userRepo repositories.UserRepository, cfg *config.Config) (*models.User, error) {
	user, err := authService.NewUser(cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	err = userRepo.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}

	existing, err := userRepo.GetByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		return nil, err
	}
	if existing.Role != models.RoleAdmin {
		if err := userRepo.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return nil, err
		}
		existing.Role = models.RoleAdmin
	}
	return existing, nil
}

// seedFolders creates the demo tree through the folder service. Existing
// folders are reused, so the seed can be run repeatedly.
func seedFolders(ctx context.Context, folderService services.FolderService, principal models.Principal, parentID *int64, tree []seedFolder) (int, error) {
	existing, err := folderService.ListFolders(ctx, principal, parentID, "")
	if err != nil {
		return 0, err
	}
	byName := make(map[string]int64, len(existing))
	for _, f := range existing {
		byName[f.Name] = f.ID
	}

	created := 0
	for _, node := range tree {
		id, ok := byName[node.name]
		if !ok {
			folder, err := folderService.CreateFolder(ctx, principal, &services.CreateFolderRequest{
				Name:     node.name,
				ParentID: parentID,
			})
			if err != nil {
				return created, fmt.Errorf("create %s: %w", node.name, err)
			}
			id = folder.ID
			created++
		}

		n, err := seedFolders(ctx, folderService, principal, &id, node.children)
		created += n
		if err != nil {
			return created, err
		}
	}

	return created, nil
}

// clearDriveData removes every file and folder row. Stored objects are left in place.
func clearDriveData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.Files, tables.Folders} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

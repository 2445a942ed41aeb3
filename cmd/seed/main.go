package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/TaffyWrinkle/TeamCloud/internal/config"
	"github.com/TaffyWrinkle/TeamCloud/internal/docstore"
	"github.com/TaffyWrinkle/TeamCloud/internal/repository"
	"github.com/TaffyWrinkle/TeamCloud/internal/seed"
)

func main() {
	// Parse command-line flags
	containersOnly := flag.Bool("containers-only", false, "Only ensure containers exist, don't seed data")
	clearData := flag.Bool("clear-data", false, "Clear all projects and users in the tenant (keep containers)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *clearData {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--clear-data) in production environment")
	}

	// Setup logger
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	if *clearData {
		log.Printf("🧹 Clearing tenant data (environment: %s, tenant: %s, driver: %s)", cfg.Environment, cfg.Tenant, cfg.StoreDriver)
	} else if *containersOnly {
		log.Printf("🏗️  Ensuring containers only (environment: %s, tenant: %s, driver: %s)", cfg.Environment, cfg.Tenant, cfg.StoreDriver)
	} else {
		log.Printf("🌱 Seeding demo data (environment: %s, tenant: %s, driver: %s)", cfg.Environment, cfg.Tenant, cfg.StoreDriver)
	}

	// Connect the configured document store
	ctx := context.Background()
	store, err := docstore.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect document store: %v", err)
	}
	defer store.Close(ctx)

	// Ensure containers and unique-key constraints exist
	log.Println("📋 Ensuring containers are up to date...")
	if err := store.EnsureContainers(ctx); err != nil {
		log.Fatalf("Failed to ensure containers: %v", err)
	}
	log.Println("✅ Containers ready")

	if *containersOnly {
		log.Println("✅ Container setup complete (containers-only mode)")
		return
	}

	// Create repositories
	repoConfig := &repository.Config{
		Store:  store,
		Tenant: cfg.Tenant,
		Logger: logger,
	}
	users := repository.NewUsersRepository(repoConfig)
	projects := repository.NewProjectsRepository(repoConfig, users)

	// Clear existing tenant data; exit here in clear-data mode
	log.Println("🧹 Clearing existing projects and users...")
	if err := seed.Clear(ctx, projects, users, logger); err != nil {
		log.Fatalf("Failed to clear tenant: %v", err)
	}
	if *clearData {
		log.Println("✅ Tenant cleared successfully")
		return
	}

	// Apply the embedded demo dataset
	dataset, err := seed.Load()
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("📝 Seeding %d projects and %d users...", len(dataset.Projects), len(dataset.Users))
	if err := seed.Apply(ctx, dataset, projects, users, logger); err != nil {
		log.Fatalf("Failed to apply dataset: %v", err)
	}

	log.Println("✅ Seeding complete")
}

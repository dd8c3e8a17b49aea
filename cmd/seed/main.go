package main

import (
	"context"
	"flag"
	"log"

	"carrental/internal/cache"
	"carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/server"
	"carrental/internal/service"
)

func main() {
	log.Println("Starting seed script...")

	adminUser := flag.String("admin-user", "admin", "username of the seeded administrator")
	adminEmail := flag.String("admin-email", "admin@example.com", "email of the seeded administrator")
	adminPassword := flag.String("admin-password", "admin123", "password of the seeded administrator")
	flag.Parse()

	// Load configuration
	config.LoadDotEnv()
	cfg := config.LoadBackend()

	// Connect to database
	gormDB, err := db.Open(cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := server.Migrate(gormDB, cfg.ResetDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer cacheClient.Close()

	_, svcs := server.New(cfg, gormDB, cacheClient, nil)
	ctx := context.Background()

	log.Println("Seeding cars into database...")
	seeded, err := svcs.Cars.SeedCars(ctx, service.DefaultCars())
	if err != nil {
		log.Fatalf("Failed to seed cars: %v", err)
	}

	created, err := service.EnsureAdmin(ctx, svcs.Users, service.CreateUserInput{
		FirstName: "Site",
		LastName:  "Admin",
		UserName:  *adminUser,
		Email:     *adminEmail,
		Password:  *adminPassword,
	})
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Cars created: %d", seeded)
	log.Printf("  - Admin %q created: %t", *adminUser, created)
}

// Package server assembles the development REST backend.
package server

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"carrental/internal/auth"
	"carrental/internal/cache"
	"carrental/internal/config"
	"carrental/internal/handler"
	"carrental/internal/model"
	"carrental/internal/repository"
	"carrental/internal/router"
	"carrental/internal/service"
)

// Services exposes the services built by New, for seeding.
type Services struct {
	Auth  service.AuthService
	Cars  service.CarService
	Cart  service.CartService
	Users service.UserService
}

// Migrate creates the schema, dropping the tables first when reset is set.
func Migrate(gormDB *gorm.DB, reset bool) error {
	tables := []interface{}{
		&model.CartItem{},
		&model.Car{},
		&model.User{},
	}

	if reset {
		log.Println("RESET_DB=true detected, dropping all tables...")
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	return gormDB.AutoMigrate(&model.User{}, &model.Car{}, &model.CartItem{})
}

// New wires repositories, services, handlers and routes onto a fresh echo
// instance. A nil tokenStore uses Redis through cacheClient.
func New(cfg *config.Backend, gormDB *gorm.DB, cacheClient *cache.Client, tokenStore auth.TokenStoreInterface) (*echo.Echo, Services) {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	carRepo := repository.NewCarRepository(gormDB)
	cartRepo := repository.NewCartRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	if tokenStore == nil {
		tokenStore = auth.NewTokenStore(cacheClient)
	}

	// Initialize services
	svcs := Services{
		Auth:  service.NewAuthService(userRepo, jwtService, tokenStore),
		Cars:  service.NewCarService(carRepo, cacheClient),
		Cart:  service.NewCartService(cartRepo, carRepo),
		Users: service.NewUserService(userRepo),
	}

	// Register routes
	router.Register(e, jwtService, svcs.Auth, router.Handlers{
		Auth:  handler.NewAuthHandler(svcs.Auth),
		Cars:  handler.NewCarHandler(svcs.Cars),
		Cart:  handler.NewCartHandler(svcs.Cart),
		Users: handler.NewUserHandler(svcs.Users, svcs.Auth),
		Seed:  handler.NewSeedHandler(svcs.Cars),
	})

	return e, svcs
}

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"productapi/internal/config"
	"productapi/internal/database"
	"productapi/internal/handlers"
	"productapi/internal/middleware"
	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/services"
	"productapi/pkg/rabbitmq"
)

// driverMemory keeps products in process memory; logins then use the
// accept-any verifier since there is no user table.
const driverMemory = "memory"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Storage ---
	var (
		db          *gorm.DB
		productRepo repositories.ProductRepository
	)
	if cfg.DBDriver == driverMemory {
		productRepo = repositories.NewMockProductRepository()
	} else {
		db, err = database.Open(cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		productRepo = repositories.NewGORMProductRepository(db)
	}

	// --- Product events ---
	var publisher services.EventPublisher = services.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		publisher = mqClient

		startEventLog(cfg.LogEvents, mqClient)
	} else {
		log.Println("RABBITMQ_URL is empty; product events are disabled.")
	}

	// --- Services ---
	verifier, err := newVerifier(cfg, db)
	if err != nil {
		log.Fatalf("Failed to set up credential verifier: %v", err)
	}
	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	authService := services.NewAuthService(tokenService, verifier)
	productService := services.NewProductService(productRepo, publisher)

	if cfg.SeedProducts {
		seedProducts(productService)
	}

	app := newApp(productService, authService, tokenService)

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// newApp builds the Fiber application with every route registered.
func newApp(productService *services.ProductService, authService *services.AuthService, tokenService *services.TokenService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	api := app.Group("/api")
	handlers.NewAuthHandler(authService).RegisterRoutes(api)
	handlers.NewProductHandler(productService).RegisterRoutes(api, middleware.AuthRequired(tokenService))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	return app
}

type eventConsumer interface {
	ConsumeProductEvents(handler func(event models.ProductEvent) error) error
}

// startEventLog consumes the product event queue and logs each event. It
// competes with other consumers of the queue, so it only runs when enabled.
func startEventLog(enabled bool, consumer eventConsumer) bool {
	if !enabled {
		return false
	}
	err := consumer.ConsumeProductEvents(func(event models.ProductEvent) error {
		log.Printf("Product event %s: %s (%s)", event.Type, event.ProductID, event.Name)
		return nil
	})
	if err != nil {
		log.Printf("Failed to start RabbitMQ consumer: %v", err)
		return false
	}
	return true
}

// newVerifier picks the credential verifier named by AUTH_VERIFIER.
func newVerifier(cfg config.Config, db *gorm.DB) (services.CredentialVerifier, error) {
	switch cfg.AuthVerifier {
	case "", "any":
		log.Println("Login accepts any non-empty credentials (AUTH_VERIFIER=any).")
		return services.AcceptAnyVerifier{}, nil
	case "users":
		if db == nil {
			return nil, fmt.Errorf("AUTH_VERIFIER=users requires a database driver, got %q", cfg.DBDriver)
		}
		verifier := services.NewUserStoreVerifier(repositories.NewGORMUserRepository(db))
		if cfg.AuthSeedUsername != "" && cfg.AuthSeedPassword != "" {
			if err := verifier.EnsureUser(cfg.AuthSeedUsername, cfg.AuthSeedPassword); err != nil {
				return nil, fmt.Errorf("failed to seed user %s: %w", cfg.AuthSeedUsername, err)
			}
		}
		return verifier, nil
	default:
		return nil, fmt.Errorf("unknown AUTH_VERIFIER %q", cfg.AuthVerifier)
	}
}

// seedProducts creates a few demo products, skipping names already present.
func seedProducts(service *services.ProductService) {
	stock := func(n int) *int { return &n }
	price := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	products := []models.ProductDTO{
		{Name: "Laptop", Description: "High performance laptop", Price: price("1200.00"), Stock: stock(10), Category: "computers"},
		{Name: "Keyboard", Description: "Mechanical keyboard", Price: price("75.00"), Stock: stock(25), Category: "peripherals"},
		{Name: "Mouse", Description: "Ergonomic wireless mouse", Price: price("25.00"), Stock: stock(50), Category: "peripherals"},
	}

	for _, dto := range products {
		product, err := service.Create(dto)
		if err != nil {
			if services.KindOf(err) == services.KindConflict {
				continue
			}
			log.Printf("Error seeding product %s: %v", dto.Name, err)
			continue
		}
		log.Printf("Seeded product: %s (ID: %s)", product.Name, product.ID)
	}
}

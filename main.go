package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
	"github.com/jayb967/mirror-exhibit-api/routes"
	"github.com/jayb967/mirror-exhibit-api/services/cart"
	"github.com/jayb967/mirror-exhibit-api/services/coupon"
	"github.com/jayb967/mirror-exhibit-api/services/notify"
	"github.com/jayb967/mirror-exhibit-api/services/shipping"
	"github.com/jayb967/mirror-exhibit-api/services/stock"
)

func main() {
	log.Println("Starting application...")

	// Load environment variables
	_ = godotenv.Load()

	// Init DB
	db := initDatabase()

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Category{},
		&models.Cart{},
		&models.CartItem{},
		&models.GuestUser{},
		&models.GuestCart{},
		&models.GuestCartItem{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.StoreSettings{},
		&models.FreeShippingRule{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	// Services
	hub := notify.NewHub()
	stockValidator := stock.NewValidator(db)
	store := cart.NewStore(db, stockValidator, cart.ResolveCapabilities(db), hub)
	deps := routes.Deps{
		DB:       db,
		Store:    store,
		Stock:    stockValidator,
		Coupons:  coupon.NewValidator(db),
		Shipping: shipping.NewProvider(db, shipping.ConfigFromEnv()),
		Hub:      hub,
	}

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Cart-Cleared"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup routes
	routes.SetupRoutes(r, deps)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s...", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase() *gorm.DB {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
		if err != nil {
			log.Fatalf("DB connection failed: %v", err)
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	return db
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sellora/sellora-api/internal/analytics"
	"github.com/sellora/sellora-api/internal/database"
	"github.com/sellora/sellora-api/internal/handlers"
	"github.com/sellora/sellora-api/internal/inventory"
	"github.com/sellora/sellora-api/internal/lease"
	"github.com/sellora/sellora-api/internal/notify"
	"github.com/sellora/sellora-api/internal/orders"
	"github.com/sellora/sellora-api/internal/routes"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// Refuse to serve without a signing secret. A default secret would
	// make every issued token forgeable.
	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is not set; refusing to start")
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 2. --- Core Services ---
	leases := lease.NewService(lease.NewSQLStore(db))

	products := inventory.NewSQLStore(db)
	ledger := inventory.NewLedger(products)

	hub := notify.NewHub()
	lowStock := inventory.NewLowStockNotifier(notify.NewSQLSink(db), hub)

	stock := inventory.NewCheckout(leases, ledger, products, lowStock)

	aggregator := analytics.NewAggregator(analytics.NewSQLStore(db))
	orderService := orders.NewService(orders.NewSQLStore(db), products, aggregator)
	defer orderService.Wait()

	// 3. --- Background Worker: lease janitor ---
	// Expiry is honored lazily on acquire; the janitor just keeps the
	// lease table from growing.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		log.Println("Background worker started: reaping expired leases...")

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if n, err := leases.ReapExpired(ctx); err != nil {
				log.Printf("Lease reaper failed: %v", err)
			} else if n > 0 {
				log.Printf("Lease reaper removed %d expired leases", n)
			}
			cancel()
		}
	}()

	// 4. --- Application Setup ---
	app := &handlers.Handlers{
		DB:       db,
		Leases:   leases,
		Ledger:   ledger,
		Products: products,
		Stock:    stock,
		LowStock: lowStock,
		Orders:   orderService,
		Hub:      hub,
	}

	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Sellora API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/rl1809/eco-bazaar/internal/adapter/storage"
	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/core/service"
	"github.com/rl1809/eco-bazaar/internal/port"
)

const (
	initialStock  = 20
	totalRequests = 50
	password      = "stress-pass"
)

// Concurrent shoppers race to put the last units of one product into their
// carts. Exactly initialStock of them must win. Runs against MySQL when
// MYSQL_DSN is set, otherwise against the in-memory store.
func main() {
	ctx := context.Background()

	store := openStore(ctx)
	cache := storage.NewMemoryCache()

	accounts := service.NewAccountService(store, cache, "stress-secret", time.Hour)
	catalog := service.NewCatalogService(store, cache)
	carts := service.NewCartService(store, cache, 4)

	run := time.Now().Format("150405.000")

	seller, err := accounts.Register(ctx, service.RegisterInput{
		Username: "stress-seller-" + run, Password: password, Role: domain.RoleSeller,
	})
	if err != nil {
		log.Fatalf("failed to register seller: %v", err)
	}
	category, err := catalog.CreateCategory(ctx, "Stress "+run, "")
	if err != nil {
		log.Fatalf("failed to create category: %v", err)
	}
	product, err := catalog.CreateProduct(ctx, seller.ID, service.ProductInput{
		Name:       "Flash item " + run,
		Price:      decimal.RequireFromString("9.99"),
		Stock:      initialStock,
		CategoryID: category.ID,
	})
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	customers := make([]int64, totalRequests)
	for i := range customers {
		p, err := accounts.Register(ctx, service.RegisterInput{
			Username: fmt.Sprintf("stress-customer-%s-%d", run, i), Password: password,
		})
		if err != nil {
			log.Fatalf("failed to register customer %d: %v", i, err)
		}
		customers[i] = p.ID
	}

	// Counters
	var successCount, outOfStockCount, errorCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for _, customerID := range customers {
		wg.Add(1)
		go func(customerID int64) {
			defer wg.Done()

			_, err := carts.AddOrIncreaseCartLine(ctx, customerID, product.ID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrOutOfStock):
				outOfStockCount.Add(1)
			default:
				errorCount.Add(1)
				log.Printf("customer %d: %v", customerID, err)
			}
		}(customerID)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	rejected := outOfStockCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Reserved:         %d\n", success)
	fmt.Printf("Out of stock:     %d\n", rejected)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	if success == initialStock && rejected == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d reservations succeeded, %d were rejected\n", initialStock, totalRequests-initialStock)
	} else {
		failed = true
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, rejected)
	}

	// Verify final stock and reserved quantity
	final, err := store.FindProduct(ctx, product.ID)
	if err != nil || final == nil {
		log.Fatalf("failed to reload product: %v", err)
	}
	reserved := 0
	for _, customerID := range customers {
		cart, err := carts.GetCart(ctx, customerID)
		if err != nil {
			log.Fatalf("failed to load cart: %v", err)
		}
		for _, line := range cart.Items {
			reserved += line.Quantity
		}
	}
	fmt.Printf("Final Stock: %d, Reserved In Carts: %d\n", final.Stock, reserved)

	if final.Stock == 0 && reserved == initialStock {
		fmt.Println("PASS: Stock fully reserved, nothing oversold")
	} else {
		failed = true
		fmt.Printf("FAIL: Expected stock 0 and %d reserved\n", initialStock)
	}

	if failed {
		os.Exit(1)
	}
}

func openStore(ctx context.Context) port.DatabaseRepository {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		log.Println("MYSQL_DSN not set, using in-memory store")
		return storage.NewMemoryStore()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	db.SetMaxOpenConns(totalRequests)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	log.Println("connected to mysql")
	return storage.NewMySQLAdapter(db)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/eco-bazaar/internal/adapter/storage"
	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/logger"
	"github.com/rl1809/eco-bazaar/internal/port"
)

type testEnv struct {
	store    *storage.MemoryStore
	cache    *storage.MemoryCache
	accounts *AccountService
	catalog  *CatalogService
	carts    *CartService
	orders   *OrderService

	customer Profile
	seller   Profile
	category domain.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	cache := storage.NewMemoryCache()

	env := &testEnv{
		store:    store,
		cache:    cache,
		accounts: NewAccountService(store, cache, "test-secret", time.Hour),
		catalog:  NewCatalogService(store, cache),
		carts:    NewCartService(store, cache, 4),
		orders:   NewOrderService(store, cache, 100, logger.Discard()),
	}
	env.accounts.hashCost = bcrypt.MinCost
	t.Cleanup(env.orders.Close)

	ctx := context.Background()
	var err error
	env.customer, err = env.accounts.Register(ctx, RegisterInput{
		Username: "customer1",
		Password: "password123",
		Address:  &AddressInput{Street: "123 Elm Street", City: "Berlin"},
	})
	if err != nil {
		t.Fatalf("register customer: %v", err)
	}
	env.seller, err = env.accounts.Register(ctx, RegisterInput{
		Username: "seller1",
		Password: "password123",
		Role:     domain.RoleSeller,
		Address:  &AddressInput{Street: "456 Oak Avenue", City: "Hamburg"},
	})
	if err != nil {
		t.Fatalf("register seller: %v", err)
	}
	env.category, err = env.catalog.CreateCategory(ctx, "Home Office", "")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return env
}

func (e *testEnv) newProduct(t *testing.T, name, price string, stock int) domain.Product {
	t.Helper()

	p, err := e.catalog.CreateProduct(context.Background(), e.seller.ID, ProductInput{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: e.category.ID,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

func (e *testEnv) newCustomer(t *testing.T, username string) Profile {
	t.Helper()

	p, err := e.accounts.Register(context.Background(), RegisterInput{Username: username, Password: "password123"})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return p
}

func (e *testEnv) stock(t *testing.T, productID int64) int {
	t.Helper()

	p, err := e.store.FindProduct(context.Background(), productID)
	if err != nil || p == nil {
		t.Fatalf("find product %d: %v", productID, err)
	}
	return p.Stock
}

func (e *testEnv) cartLines(t *testing.T, customerID int64) []domain.CartItem {
	t.Helper()

	cart, err := e.carts.GetCart(context.Background(), customerID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	return cart.Items
}

var errInjected = errors.New("injected failure")

// failingStore fails the named write inside transactions so rollback can be
// observed.
type failingStore struct {
	*storage.MemoryStore
	failOn string
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(tx port.Repositories) error) error {
	return s.MemoryStore.WithinTx(ctx, func(tx port.Repositories) error {
		return fn(&failingTx{Repositories: tx, failOn: s.failOn})
	})
}

type failingTx struct {
	port.Repositories
	failOn string
}

func (tx *failingTx) DeleteCartLines(ctx context.Context, ids ...int64) error {
	if tx.failOn == "DeleteCartLines" {
		return errInjected
	}
	return tx.Repositories.DeleteCartLines(ctx, ids...)
}

func (tx *failingTx) InsertOrderItem(ctx context.Context, item *domain.OrderItem) error {
	if tx.failOn == "InsertOrderItem" {
		return errInjected
	}
	return tx.Repositories.InsertOrderItem(ctx, item)
}

func (tx *failingTx) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	if tx.failOn == "UpdateProductStock" {
		return errInjected
	}
	return tx.Repositories.UpdateProductStock(ctx, id, stock)
}

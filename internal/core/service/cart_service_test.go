package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

func TestAddOrIncreaseCartLine_NewLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 10)

	line, err := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 4)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if line.Quantity != 4 || line.ProductID != desk.ID {
		t.Errorf("unexpected line: %+v", line)
	}
	if got := env.stock(t, desk.ID); got != 6 {
		t.Errorf("expected stock 6, got %d", got)
	}
}

func TestAddOrIncreaseCartLine_IncreasesExistingLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 10)

	first, _ := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 3)
	second, err := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 2)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same line to grow, got new line %d", second.ID)
	}
	if second.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", second.Quantity)
	}
	if lines := env.cartLines(t, env.customer.ID); len(lines) != 1 {
		t.Errorf("expected one line, got %d", len(lines))
	}
	if got := env.stock(t, desk.ID); got != 5 {
		t.Errorf("expected stock 5, got %d", got)
	}
}

func TestAddOrIncreaseCartLine_OutOfStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 3)

	if _, err := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 2); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, err := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 2)
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got: %v", err)
	}

	// Nothing changed
	if got := env.stock(t, desk.ID); got != 1 {
		t.Errorf("expected stock 1, got %d", got)
	}
	lines := env.cartLines(t, env.customer.ID)
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Errorf("expected line untouched, got %+v", lines)
	}
}

func TestAddOrIncreaseCartLine_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 3)

	for _, q := range []int{0, -1} {
		if _, err := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, q); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("quantity %d: expected ErrValidation, got: %v", q, err)
		}
	}

	if _, err := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, 9999, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown product, got: %v", err)
	}
	if _, err := env.carts.AddOrIncreaseCartLine(ctx, 9999, desk.ID, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown customer, got: %v", err)
	}
}

func TestAddOrIncreaseCartLine_RollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 5)

	carts := NewCartService(&failingStore{MemoryStore: env.store, failOn: "UpdateProductStock"}, env.cache, 1)
	if _, err := carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 2); !errors.Is(err, errInjected) {
		t.Fatalf("expected injected failure, got: %v", err)
	}

	if lines := env.cartLines(t, env.customer.ID); len(lines) != 0 {
		t.Errorf("expected no cart line after rollback, got %+v", lines)
	}
	if got := env.stock(t, desk.ID); got != 5 {
		t.Errorf("expected stock 5, got %d", got)
	}
}

// Stock 10: add 4, try 12, go down to 2, then check out.
func TestCartLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 10)

	line, err := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 4)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if got := env.stock(t, desk.ID); got != 6 {
		t.Fatalf("expected stock 6, got %d", got)
	}

	if _, _, err := env.carts.SetCartLineQuantity(ctx, env.customer.ID, line.ID, 12); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock raising to 12, got: %v", err)
	}
	if got := env.stock(t, desk.ID); got != 6 {
		t.Fatalf("expected stock 6 after rejected raise, got %d", got)
	}

	updated, removed, err := env.carts.SetCartLineQuantity(ctx, env.customer.ID, line.ID, 2)
	if err != nil || removed {
		t.Fatalf("decrease failed: removed=%v err=%v", removed, err)
	}
	if updated.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", updated.Quantity)
	}
	if got := env.stock(t, desk.ID); got != 8 {
		t.Fatalf("expected stock 8, got %d", got)
	}

	order, err := env.orders.Checkout(ctx, env.customer.ID, nil)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 || order.Items[0].ProductID != desk.ID {
		t.Errorf("unexpected order items: %+v", order.Items)
	}
	if lines := env.cartLines(t, env.customer.ID); len(lines) != 0 {
		t.Errorf("expected empty cart, got %+v", lines)
	}
	if got := env.stock(t, desk.ID); got != 8 {
		t.Errorf("expected checkout to leave stock at 8, got %d", got)
	}
}

func TestSetCartLineQuantity_Cases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 10)

	line, _ := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 3)

	// Increase within stock
	if _, _, err := env.carts.SetCartLineQuantity(ctx, env.customer.ID, line.ID, 5); err != nil {
		t.Fatalf("increase failed: %v", err)
	}
	if got := env.stock(t, desk.ID); got != 5 {
		t.Errorf("expected stock 5, got %d", got)
	}

	// Same quantity is a no-op
	same, removed, err := env.carts.SetCartLineQuantity(ctx, env.customer.ID, line.ID, 5)
	if err != nil || removed || same.Quantity != 5 {
		t.Errorf("expected no-op, got %+v removed=%v err=%v", same, removed, err)
	}
	if got := env.stock(t, desk.ID); got != 5 {
		t.Errorf("expected stock 5 after no-op, got %d", got)
	}

	// Negative is rejected
	if _, _, err := env.carts.SetCartLineQuantity(ctx, env.customer.ID, line.ID, -1); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}

	// Zero removes and returns everything
	_, removed, err = env.carts.SetCartLineQuantity(ctx, env.customer.ID, line.ID, 0)
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}
	if got := env.stock(t, desk.ID); got != 10 {
		t.Errorf("expected stock 10, got %d", got)
	}
	if lines := env.cartLines(t, env.customer.ID); len(lines) != 0 {
		t.Errorf("expected empty cart, got %+v", lines)
	}
}

func TestCartLine_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 10)
	other := env.newCustomer(t, "customer2")

	line, _ := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 3)
	env.cartLines(t, other.ID)

	if _, _, err := env.carts.SetCartLineQuantity(ctx, other.ID, line.ID, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign line, got: %v", err)
	}
	if err := env.carts.RemoveCartLine(ctx, other.ID, line.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound removing foreign line, got: %v", err)
	}
	if got := env.stock(t, desk.ID); got != 7 {
		t.Errorf("expected stock 7, got %d", got)
	}
}

func TestRemoveCartLine_RestoresStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 10)

	line, _ := env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 6)
	if err := env.carts.RemoveCartLine(ctx, env.customer.ID, line.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if got := env.stock(t, desk.ID); got != 10 {
		t.Errorf("expected stock 10, got %d", got)
	}
	if err := env.carts.RemoveCartLine(ctx, env.customer.ID, line.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got: %v", err)
	}
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.50", 10)
	lamp := env.newProduct(t, "Lamp", "19.99", 10)

	if _, err := env.carts.Quote(ctx, env.customer.ID); !errors.Is(err, domain.ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got: %v", err)
	}

	env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 2)
	env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, lamp.ID, 3)

	quote, err := env.carts.Quote(ctx, env.customer.ID)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if len(quote.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(quote.Lines))
	}
	want := decimal.RequireFromString("300.97")
	if !quote.Total.Equal(want) {
		t.Errorf("expected total %s, got %s", want, quote.Total)
	}
	if !quote.Lines[0].LineTotal.Equal(decimal.RequireFromString("241.00")) {
		t.Errorf("unexpected first line total %s", quote.Lines[0].LineTotal)
	}
}

func TestAddOrIncreaseCartLine_ConcurrentNoOversell(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	initialStock := 20
	totalRequests := 50
	desk := env.newProduct(t, "Desk", "120.00", initialStock)

	customers := make([]int64, totalRequests)
	for i := range customers {
		customers[i] = env.newCustomer(t, fmt.Sprintf("shopper-%d", i)).ID
	}

	var successCount, outOfStock atomic.Int32
	var wg sync.WaitGroup

	for _, id := range customers {
		wg.Add(1)
		go func(customerID int64) {
			defer wg.Done()
			_, err := env.carts.AddOrIncreaseCartLine(ctx, customerID, desk.ID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrOutOfStock):
				outOfStock.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if outOfStock.Load() != int32(totalRequests-initialStock) {
		t.Errorf("expected %d rejections, got %d", totalRequests-initialStock, outOfStock.Load())
	}
	if got := env.stock(t, desk.ID); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
}

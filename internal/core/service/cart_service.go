package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/metrics"
	"github.com/rl1809/eco-bazaar/internal/port"
)

type CartService struct {
	store            port.DatabaseRepository
	cache            port.CacheRepository
	quoteConcurrency int
}

func NewCartService(store port.DatabaseRepository, cache port.CacheRepository, quoteConcurrency int) *CartService {
	if quoteConcurrency <= 0 {
		quoteConcurrency = 10
	}
	return &CartService{
		store:            store,
		cache:            cache,
		quoteConcurrency: quoteConcurrency,
	}
}

// GetCart returns the customer's cart with its lines, creating the cart on
// first use.
func (s *CartService) GetCart(ctx context.Context, customerID int64) (domain.Cart, error) {
	var cart domain.Cart

	err := s.store.WithinTx(ctx, func(tx port.Repositories) error {
		c, err := ensureCart(ctx, tx, customerID)
		if err != nil {
			return err
		}

		items, err := tx.ListCartLines(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("list cart lines: %w", err)
		}

		c.Items = items
		cart = *c
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}

	return cart, nil
}

// AddOrIncreaseCartLine reserves quantity more units of the product for the
// customer's cart. A new line is created when the product is not in the cart
// yet, otherwise the existing line grows by quantity.
func (s *CartService) AddOrIncreaseCartLine(ctx context.Context, customerID, productID int64, quantity int) (domain.CartItem, error) {
	if quantity <= 0 {
		return domain.CartItem{}, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrValidation, quantity)
	}

	var line domain.CartItem

	err := s.store.WithinTx(ctx, func(tx port.Repositories) error {
		cart, err := ensureCart(ctx, tx, customerID)
		if err != nil {
			return err
		}

		existing, err := tx.FindCartLineByProduct(ctx, cart.ID, productID)
		if err != nil {
			return fmt.Errorf("find cart line: %w", err)
		}

		product, err := tx.FindProductForUpdate(ctx, productID)
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		if product == nil {
			return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
		}
		if quantity > product.Stock {
			return fmt.Errorf("product %d has %d left, requested %d: %w",
				productID, product.Stock, quantity, domain.ErrOutOfStock)
		}

		if existing == nil {
			line = domain.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
				CreatedAt: time.Now(),
			}
			if err := tx.InsertCartLine(ctx, &line); err != nil {
				return fmt.Errorf("insert cart line: %w", err)
			}
		} else {
			line = *existing
			line.Quantity += quantity
			if err := tx.UpdateCartLineQuantity(ctx, line.ID, line.Quantity); err != nil {
				return fmt.Errorf("update cart line: %w", err)
			}
		}

		if err := tx.UpdateProductStock(ctx, productID, product.Stock-quantity); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			metrics.OutOfStock.Inc()
		}
		return domain.CartItem{}, err
	}

	s.invalidate(ctx, productID)
	metrics.CartMutations.WithLabelValues("add").Inc()
	return line, nil
}

// SetCartLineQuantity moves the line to newQuantity and returns or reserves
// the difference in stock. Zero removes the line; removed reports that case.
func (s *CartService) SetCartLineQuantity(ctx context.Context, customerID, lineID int64, newQuantity int) (domain.CartItem, bool, error) {
	if newQuantity < 0 {
		return domain.CartItem{}, false, fmt.Errorf("%w: quantity must not be negative, got %d", domain.ErrValidation, newQuantity)
	}

	var (
		line      domain.CartItem
		productID int64
	)

	err := s.store.WithinTx(ctx, func(tx port.Repositories) error {
		current, product, err := lockCartLine(ctx, tx, customerID, lineID)
		if err != nil {
			return err
		}
		line = *current
		productID = product.ID

		stock := product.Stock
		switch {
		case newQuantity == 0:
			stock += current.Quantity
			if err := tx.DeleteCartLines(ctx, current.ID); err != nil {
				return fmt.Errorf("delete cart line: %w", err)
			}
		case newQuantity > current.Quantity:
			delta := newQuantity - current.Quantity
			if delta > stock {
				return fmt.Errorf("product %d has %d left, requested %d more: %w",
					product.ID, stock, delta, domain.ErrOutOfStock)
			}
			stock -= delta
		case newQuantity < current.Quantity:
			stock += current.Quantity - newQuantity
		default:
			return nil
		}

		if newQuantity > 0 {
			if err := tx.UpdateCartLineQuantity(ctx, current.ID, newQuantity); err != nil {
				return fmt.Errorf("update cart line: %w", err)
			}
		}
		line.Quantity = newQuantity

		if err := tx.UpdateProductStock(ctx, product.ID, stock); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			metrics.OutOfStock.Inc()
		}
		return domain.CartItem{}, false, err
	}

	s.invalidate(ctx, productID)
	if newQuantity == 0 {
		metrics.CartMutations.WithLabelValues("remove").Inc()
		return line, true, nil
	}
	metrics.CartMutations.WithLabelValues("set").Inc()
	return line, false, nil
}

// RemoveCartLine deletes the line and returns its full quantity to stock.
func (s *CartService) RemoveCartLine(ctx context.Context, customerID, lineID int64) error {
	_, _, err := s.SetCartLineQuantity(ctx, customerID, lineID, 0)
	return err
}

// Quote prices every line of the customer's cart at the current product price.
func (s *CartService) Quote(ctx context.Context, customerID int64) (domain.CartQuote, error) {
	cart, err := s.store.FindCartByCustomer(ctx, customerID)
	if err != nil {
		return domain.CartQuote{}, fmt.Errorf("find cart: %w", err)
	}
	if cart == nil {
		return domain.CartQuote{}, domain.ErrEmptyCart
	}

	items, err := s.store.ListCartLines(ctx, cart.ID)
	if err != nil {
		return domain.CartQuote{}, fmt.Errorf("list cart lines: %w", err)
	}
	if len(items) == 0 {
		return domain.CartQuote{}, domain.ErrEmptyCart
	}

	lines := make([]domain.QuoteLine, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.quoteConcurrency)

	for i := range items {
		g.Go(func() error {
			it := items[i]
			product, err := loadProduct(gctx, s.store, s.cache, it.ProductID)
			if err != nil {
				return fmt.Errorf("product %d: %w", it.ProductID, err)
			}

			lines[i] = domain.QuoteLine{
				CartItemID: it.ID,
				ProductID:  product.ID,
				Name:       product.Name,
				Quantity:   it.Quantity,
				UnitPrice:  product.Price,
				LineTotal:  product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.CartQuote{}, err
	}

	total := decimal.Zero
	for _, ln := range lines {
		total = total.Add(ln.LineTotal)
	}

	return domain.CartQuote{CartID: cart.ID, Lines: lines, Total: total}, nil
}

func (s *CartService) invalidate(ctx context.Context, productIDs ...int64) {
	// a stale cached stock count only affects display; the row lock is authoritative
	_ = s.cache.InvalidateProduct(ctx, productIDs...)
}

func ensureCart(ctx context.Context, tx port.Repositories, customerID int64) (*domain.Cart, error) {
	cart, err := tx.FindCartByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if cart != nil {
		return cart, nil
	}

	customer, err := tx.FindCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %d: %w", customerID, domain.ErrNotFound)
	}

	cart = &domain.Cart{CustomerID: customerID, CreatedAt: time.Now()}
	if err := tx.CreateCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

// lockCartLine resolves a line inside the customer's cart and locks the
// product it reserves.
func lockCartLine(ctx context.Context, tx port.Repositories, customerID, lineID int64) (*domain.CartItem, *domain.Product, error) {
	cart, err := tx.FindCartByCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("find cart: %w", err)
	}
	if cart == nil {
		return nil, nil, fmt.Errorf("cart of customer %d: %w", customerID, domain.ErrNotFound)
	}

	line, err := tx.FindCartLine(ctx, cart.ID, lineID)
	if err != nil {
		return nil, nil, fmt.Errorf("find cart line: %w", err)
	}
	if line == nil {
		return nil, nil, fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}

	product, err := tx.FindProductForUpdate(ctx, line.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock product: %w", err)
	}
	if product == nil {
		return nil, nil, fmt.Errorf("product %d: %w", line.ProductID, domain.ErrNotFound)
	}
	return line, product, nil
}

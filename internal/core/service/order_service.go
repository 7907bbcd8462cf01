package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/metrics"
	"github.com/rl1809/eco-bazaar/internal/port"
)

const checkoutKeyPrefix = "checkout:"

type OrderService struct {
	store port.DatabaseRepository
	cache port.CacheRepository
	log   *slog.Logger

	mu         sync.RWMutex
	closed     bool
	eventQueue chan domain.OrderPlaced
}

func NewOrderService(store port.DatabaseRepository, cache port.CacheRepository, queueSize int, log *slog.Logger) *OrderService {
	return &OrderService{
		store:      store,
		cache:      cache,
		log:        log,
		eventQueue: make(chan domain.OrderPlaced, queueSize),
	}
}

// Checkout turns every line of the customer's cart into an order. The order,
// its items and the removal of the consumed cart lines commit together.
// Stock was reserved when the lines were added and is not touched here.
func (s *OrderService) Checkout(ctx context.Context, customerID int64, shippingAddressID *int64) (domain.Order, error) {
	var order domain.Order

	err := s.store.WithinTx(ctx, func(tx port.Repositories) error {
		cart, err := tx.FindCartByCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("find cart: %w", err)
		}
		if cart == nil {
			return fmt.Errorf("cart of customer %d: %w", customerID, domain.ErrNotFound)
		}

		lines, err := tx.ListCartLines(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list cart lines: %w", err)
		}
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}

		if shippingAddressID != nil {
			if err := checkAddressOwner(ctx, tx, customerID, *shippingAddressID); err != nil {
				return err
			}
		}

		now := time.Now()
		order = domain.Order{
			CustomerID:        customerID,
			ShippingAddressID: shippingAddressID,
			CreatedAt:         now,
		}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		consumed := make([]int64, 0, len(lines))
		order.Items = make([]domain.OrderItem, 0, len(lines))
		for _, line := range lines {
			item := domain.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				CreatedAt: now,
			}
			if err := tx.InsertOrderItem(ctx, &item); err != nil {
				return fmt.Errorf("insert order item for cart line %d: %w", line.ID, err)
			}
			order.Items = append(order.Items, item)
			consumed = append(consumed, line.ID)
		}

		if err := tx.DeleteCartLines(ctx, consumed...); err != nil {
			return fmt.Errorf("delete cart lines: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.Checkouts.WithLabelValues(checkoutResult(err)).Inc()
		return domain.Order{}, err
	}

	metrics.Checkouts.WithLabelValues("ok").Inc()
	s.enqueue(order)
	return order, nil
}

// CheckoutOnce runs Checkout at most once per requestID. The key is released
// again when the checkout fails so the caller can retry it.
func (s *OrderService) CheckoutOnce(ctx context.Context, requestID string, customerID int64, shippingAddressID *int64) (domain.Order, error) {
	if requestID == "" {
		return s.Checkout(ctx, customerID, shippingAddressID)
	}

	key := fmt.Sprintf("%s%d:%s", checkoutKeyPrefix, customerID, requestID)
	ok, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		return domain.Order{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		metrics.Checkouts.WithLabelValues("duplicate").Inc()
		return domain.Order{}, domain.ErrDuplicateRequest
	}

	order, err := s.Checkout(ctx, customerID, shippingAddressID)
	if err != nil {
		if releaseErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); releaseErr != nil {
			s.log.Warn("release idempotency key failed", slog.String("key", key), slog.Any("err", releaseErr))
		}
		return domain.Order{}, err
	}
	return order, nil
}

// AddOrderLineFromCart moves one cart line into an existing order.
func (s *OrderService) AddOrderLineFromCart(ctx context.Context, customerID, orderID, cartLineID int64) (domain.OrderItem, error) {
	var item domain.OrderItem

	err := s.store.WithinTx(ctx, func(tx port.Repositories) error {
		order, err := tx.FindOrder(ctx, customerID, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if order == nil {
			return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
		}

		cart, err := tx.FindCartByCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("find cart: %w", err)
		}
		if cart == nil {
			return fmt.Errorf("cart of customer %d: %w", customerID, domain.ErrNotFound)
		}

		line, err := tx.FindCartLine(ctx, cart.ID, cartLineID)
		if err != nil {
			return fmt.Errorf("find cart line: %w", err)
		}
		if line == nil {
			return fmt.Errorf("cart line %d: %w", cartLineID, domain.ErrNotFound)
		}

		item = domain.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			CreatedAt: time.Now(),
		}
		if err := tx.InsertOrderItem(ctx, &item); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		if err := tx.DeleteCartLines(ctx, line.ID); err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.OrderItem{}, err
	}

	return item, nil
}

func (s *OrderService) RemoveOrderLine(ctx context.Context, customerID, orderID, orderItemID int64) error {
	return s.store.WithinTx(ctx, func(tx port.Repositories) error {
		order, err := tx.FindOrder(ctx, customerID, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if order == nil {
			return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
		}

		item, err := tx.FindOrderItem(ctx, order.ID, orderItemID)
		if err != nil {
			return fmt.Errorf("find order item: %w", err)
		}
		if item == nil {
			return fmt.Errorf("order item %d: %w", orderItemID, domain.ErrNotFound)
		}

		if err := tx.DeleteOrderItem(ctx, item.ID); err != nil {
			return fmt.Errorf("delete order item: %w", err)
		}
		return nil
	})
}

func (s *OrderService) ChooseShippingAddress(ctx context.Context, customerID, orderID, addressID int64) (domain.Order, error) {
	var order domain.Order

	err := s.store.WithinTx(ctx, func(tx port.Repositories) error {
		found, err := tx.FindOrder(ctx, customerID, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if found == nil {
			return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
		}

		if err := checkAddressOwner(ctx, tx, customerID, addressID); err != nil {
			return err
		}
		if err := tx.SetShippingAddress(ctx, found.ID, &addressID); err != nil {
			return fmt.Errorf("set shipping address: %w", err)
		}

		found.ShippingAddressID = &addressID
		found.Items, err = tx.ListOrderItems(ctx, found.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		order = *found
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, customerID, orderID int64) (domain.Order, error) {
	order, err := s.store.FindOrder(ctx, customerID, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}
	if order == nil {
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}

	order.Items, err = s.store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("list order items: %w", err)
	}
	return *order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	orders, err := s.store.ListOrders(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	for i := range orders {
		orders[i].Items, err = s.store.ListOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list items of order %d: %w", orders[i].ID, err)
		}
	}
	return orders, nil
}

func (s *OrderService) GetEventQueue() <-chan domain.OrderPlaced {
	return s.eventQueue
}

// Close stops accepting events and lets the dispatch workers drain the queue.
func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.eventQueue)
	}
}

func (s *OrderService) enqueue(order domain.Order) {
	event := domain.OrderPlaced{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Lines:      make([]domain.Line, 0, len(order.Items)),
		PlacedAt:   order.CreatedAt,
	}
	for _, it := range order.Items {
		event.Lines = append(event.Lines, domain.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		metrics.OrderEvents.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case s.eventQueue <- event:
	default:
		metrics.OrderEvents.WithLabelValues("dropped").Inc()
		s.log.Warn("order event queue full, dropping event", slog.Int64("order_id", order.ID))
	}
}

func checkAddressOwner(ctx context.Context, tx port.Repositories, customerID, addressID int64) error {
	customer, err := tx.FindCustomer(ctx, customerID)
	if err != nil {
		return fmt.Errorf("find customer: %w", err)
	}
	address, err := tx.FindAddress(ctx, addressID)
	if err != nil {
		return fmt.Errorf("find address: %w", err)
	}
	if customer == nil || address == nil || address.UserID != customer.UserID {
		return fmt.Errorf("address %d: %w", addressID, domain.ErrNotFound)
	}
	return nil
}

func checkoutResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

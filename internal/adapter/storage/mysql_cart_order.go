package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

func scanCart(s scanner) (domain.Cart, error) {
	var c domain.Cart
	err := s.Scan(&c.ID, &c.CustomerID, &c.CreatedAt)
	return c, err
}

func (m *mysqlRepo) FindCartByCustomer(ctx context.Context, customerID int64) (*domain.Cart, error) {
	return one(m.q.QueryRowContext(ctx,
		`SELECT id, customer_id, created_at FROM carts WHERE customer_id = ?`, customerID), scanCart)
}

func (m *mysqlRepo) CreateCart(ctx context.Context, cart *domain.Cart) error {
	id, err := insertID(m.q.ExecContext(ctx,
		`INSERT INTO carts (customer_id, created_at) VALUES (?, ?)`, cart.CustomerID, cart.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	cart.ID = id
	return nil
}

const cartItemColumns = `id, cart_id, product_id, quantity, created_at`

func scanCartItem(s scanner) (domain.CartItem, error) {
	var it domain.CartItem
	err := s.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt)
	return it, err
}

func (m *mysqlRepo) FindCartLine(ctx context.Context, cartID, lineID int64) (*domain.CartItem, error) {
	return one(m.q.QueryRowContext(ctx,
		m.forUpdate(`SELECT `+cartItemColumns+` FROM cart_items WHERE id = ? AND cart_id = ?`),
		lineID, cartID), scanCartItem)
}

func (m *mysqlRepo) FindCartLineByProduct(ctx context.Context, cartID, productID int64) (*domain.CartItem, error) {
	return one(m.q.QueryRowContext(ctx,
		m.forUpdate(`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? AND product_id = ?`),
		cartID, productID), scanCartItem)
}

func (m *mysqlRepo) ListCartLines(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	rows, err := m.q.QueryContext(ctx,
		m.forUpdate(`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? ORDER BY id`), cartID)
	return all(rows, err, scanCartItem)
}

func (m *mysqlRepo) InsertCartLine(ctx context.Context, item *domain.CartItem) error {
	id, err := insertID(m.q.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at)
		VALUES (?, ?, ?, ?)`,
		item.CartID, item.ProductID, item.Quantity, item.CreatedAt,
	))
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	item.ID = id
	return nil
}

func (m *mysqlRepo) UpdateCartLineQuantity(ctx context.Context, lineID int64, quantity int) error {
	_, err := m.q.ExecContext(ctx, `UPDATE cart_items SET quantity = ? WHERE id = ?`, quantity, lineID)
	return mapErr(err)
}

func (m *mysqlRepo) DeleteCartLines(ctx context.Context, lineIDs ...int64) error {
	if len(lineIDs) == 0 {
		return nil
	}

	args := make([]any, len(lineIDs))
	for i, id := range lineIDs {
		args[i] = id
	}
	_, err := m.q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id IN (`+placeholders(len(lineIDs))+`)`, args...)
	return mapErr(err)
}

func scanOrder(s scanner) (domain.Order, error) {
	var (
		o       domain.Order
		address sql.NullInt64
	)
	err := s.Scan(&o.ID, &o.CustomerID, &address, &o.CreatedAt)
	o.ShippingAddressID = idPtr(address)
	return o, err
}

func (m *mysqlRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	id, err := insertID(m.q.ExecContext(ctx, `
		INSERT INTO orders (customer_id, shipping_address_id, created_at)
		VALUES (?, ?, ?)`,
		order.CustomerID, nullableID(order.ShippingAddressID), order.CreatedAt,
	))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.ID = id
	return nil
}

func (m *mysqlRepo) InsertOrderItem(ctx context.Context, item *domain.OrderItem) error {
	id, err := insertID(m.q.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, created_at)
		VALUES (?, ?, ?, ?)`,
		item.OrderID, item.ProductID, item.Quantity, item.CreatedAt,
	))
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	item.ID = id
	return nil
}

func (m *mysqlRepo) FindOrder(ctx context.Context, customerID, orderID int64) (*domain.Order, error) {
	return one(m.q.QueryRowContext(ctx, `
		SELECT id, customer_id, shipping_address_id, created_at
		FROM orders WHERE id = ? AND customer_id = ?`, orderID, customerID), scanOrder)
}

func (m *mysqlRepo) ListOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	rows, err := m.q.QueryContext(ctx, `
		SELECT id, customer_id, shipping_address_id, created_at
		FROM orders WHERE customer_id = ? ORDER BY id`, customerID)
	return all(rows, err, scanOrder)
}

func scanOrderItem(s scanner) (domain.OrderItem, error) {
	var it domain.OrderItem
	err := s.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.CreatedAt)
	return it, err
}

func (m *mysqlRepo) ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := m.q.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, created_at
		FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	return all(rows, err, scanOrderItem)
}

func (m *mysqlRepo) FindOrderItem(ctx context.Context, orderID, itemID int64) (*domain.OrderItem, error) {
	return one(m.q.QueryRowContext(ctx, `
		SELECT id, order_id, product_id, quantity, created_at
		FROM order_items WHERE id = ? AND order_id = ?`, itemID, orderID), scanOrderItem)
}

func (m *mysqlRepo) DeleteOrderItem(ctx context.Context, itemID int64) error {
	_, err := m.q.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, itemID)
	return mapErr(err)
}

func (m *mysqlRepo) SetShippingAddress(ctx context.Context, orderID int64, addressID *int64) error {
	_, err := m.q.ExecContext(ctx,
		`UPDATE orders SET shipping_address_id = ? WHERE id = ?`, nullableID(addressID), orderID)
	return mapErr(err)
}

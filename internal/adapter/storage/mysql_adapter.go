package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/port"
)

const (
	errDuplicateEntry     = 1062
	errNoReferencedRow    = 1452
	errCheckConstraintBad = 3819
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type MySQLAdapter struct {
	*mysqlRepo
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{mysqlRepo: &mysqlRepo{q: db}, db: db}
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.Repositories) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlRepo{q: tx, locking: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// mysqlRepo runs every query through q. Inside a transaction locking is set
// and lookups documented as locking append FOR UPDATE.
type mysqlRepo struct {
	q       queryer
	locking bool
}

func (m *mysqlRepo) forUpdate(query string) string {
	if m.locking {
		return query + " FOR UPDATE"
	}
	return query
}

// mapErr turns constraint violations into domain errors.
func mapErr(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errDuplicateEntry:
			return fmt.Errorf("%s: %w", myErr.Message, domain.ErrConflict)
		case errNoReferencedRow:
			return fmt.Errorf("%s: %w", myErr.Message, domain.ErrNotFound)
		case errCheckConstraintBad:
			return fmt.Errorf("%s: %w", myErr.Message, domain.ErrValidation)
		}
	}
	return err
}

func insertID(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, mapErr(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// one scans a single row and maps sql.ErrNoRows to (nil, nil).
func one[T any](row *sql.Row, scan func(scanner) (T, error)) (*T, error) {
	v, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func all[T any](rows *sql.Rows, err error, scan func(scanner) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Catalog

const categoryColumns = `id, name, description, slug`

func scanCategory(s scanner) (domain.Category, error) {
	var c domain.Category
	err := s.Scan(&c.ID, &c.Name, &c.Description, &c.Slug)
	return c, err
}

func (m *mysqlRepo) CreateCategory(ctx context.Context, c *domain.Category) error {
	id, err := insertID(m.q.ExecContext(ctx,
		`INSERT INTO categories (name, description, slug) VALUES (?, ?, ?)`,
		c.Name, c.Description, c.Slug))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID = id
	return nil
}

func (m *mysqlRepo) FindCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return one(m.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id), scanCategory)
}

func (m *mysqlRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	return all(rows, err, scanCategory)
}

func (m *mysqlRepo) UpdateCategory(ctx context.Context, c domain.Category) error {
	_, err := m.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, slug = ? WHERE id = ?`,
		c.Name, c.Description, c.Slug, c.ID)
	return mapErr(err)
}

func (m *mysqlRepo) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	return affected(m.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id))
}

const productColumns = `id, name, description, price, is_new, stock, category_id, seller_id, created_at`

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.IsNew, &p.Stock,
		&p.CategoryID, &p.SellerID, &p.CreatedAt)
	return p, err
}

func (m *mysqlRepo) CreateProduct(ctx context.Context, p *domain.Product) error {
	id, err := insertID(m.q.ExecContext(ctx, `
		INSERT INTO products (name, description, price, is_new, stock, category_id, seller_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price, p.IsNew, p.Stock, p.CategoryID, p.SellerID, p.CreatedAt,
	))
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID = id
	return nil
}

func (m *mysqlRepo) FindProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return one(m.q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id), scanProduct)
}

func (m *mysqlRepo) FindProductForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return one(m.q.QueryRowContext(ctx,
		m.forUpdate(`SELECT `+productColumns+` FROM products WHERE id = ?`), id), scanProduct)
}

func (m *mysqlRepo) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Query != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Query)+"%")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := m.q.QueryContext(ctx, query, args...)
	return all(rows, err, scanProduct)
}

func (m *mysqlRepo) UpdateProduct(ctx context.Context, p domain.Product) error {
	_, err := m.q.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price = ?, is_new = ?, stock = ?, category_id = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Price, p.IsNew, p.Stock, p.CategoryID, p.ID,
	)
	return mapErr(err)
}

func (m *mysqlRepo) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	_, err := m.q.ExecContext(ctx, `UPDATE products SET stock = ? WHERE id = ?`, stock, id)
	return mapErr(err)
}

func (m *mysqlRepo) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	return affected(m.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id))
}

func scanImage(s scanner) (domain.ProductImage, error) {
	var img domain.ProductImage
	err := s.Scan(&img.ID, &img.ProductID, &img.URL)
	return img, err
}

func (m *mysqlRepo) AddProductImage(ctx context.Context, img *domain.ProductImage) error {
	id, err := insertID(m.q.ExecContext(ctx,
		`INSERT INTO product_images (product_id, url) VALUES (?, ?)`, img.ProductID, img.URL))
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	img.ID = id
	return nil
}

func (m *mysqlRepo) FindProductImage(ctx context.Context, id int64) (*domain.ProductImage, error) {
	return one(m.q.QueryRowContext(ctx,
		`SELECT id, product_id, url FROM product_images WHERE id = ?`, id), scanImage)
}

func (m *mysqlRepo) ListProductImages(ctx context.Context, productID int64) ([]domain.ProductImage, error) {
	if productID == 0 {
		rows, err := m.q.QueryContext(ctx, `SELECT id, product_id, url FROM product_images ORDER BY id`)
		return all(rows, err, scanImage)
	}
	rows, err := m.q.QueryContext(ctx,
		`SELECT id, product_id, url FROM product_images WHERE product_id = ? ORDER BY id`, productID)
	return all(rows, err, scanImage)
}

func (m *mysqlRepo) DeleteProductImage(ctx context.Context, id int64) (bool, error) {
	return affected(m.q.ExecContext(ctx, `DELETE FROM product_images WHERE id = ?`, id))
}

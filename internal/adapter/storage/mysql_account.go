package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, is_staff, created_at`

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	return u, err
}

func (m *mysqlRepo) CreateUser(ctx context.Context, u *domain.User) error {
	id, err := insertID(m.q.ExecContext(ctx, `
		INSERT INTO users (username, email, first_name, last_name, password_hash, is_staff, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsStaff, u.CreatedAt,
	))
	if err != nil {
		return fmt.Errorf("insert user %q: %w", u.Username, err)
	}
	u.ID = id
	return nil
}

func (m *mysqlRepo) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	return one(m.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id), scanUser)
}

func (m *mysqlRepo) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return one(m.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username), scanUser)
}

const addressColumns = `id, user_id, street, postal_code, phone_number, city`

func scanAddress(s scanner) (domain.Address, error) {
	var a domain.Address
	err := s.Scan(&a.ID, &a.UserID, &a.Street, &a.PostalCode, &a.PhoneNumber, &a.City)
	return a, err
}

func (m *mysqlRepo) CreateAddress(ctx context.Context, a *domain.Address) error {
	id, err := insertID(m.q.ExecContext(ctx, `
		INSERT INTO addresses (user_id, street, postal_code, phone_number, city)
		VALUES (?, ?, ?, ?, ?)`,
		a.UserID, a.Street, a.PostalCode, a.PhoneNumber, a.City,
	))
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	a.ID = id
	return nil
}

func (m *mysqlRepo) FindAddress(ctx context.Context, id int64) (*domain.Address, error) {
	return one(m.q.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = ?`, id), scanAddress)
}

func (m *mysqlRepo) ListAddresses(ctx context.Context, userID int64) ([]domain.Address, error) {
	rows, err := m.q.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = ? ORDER BY id`, userID)
	return all(rows, err, scanAddress)
}

// profile rows share a shape between customers and sellers
type profileRow struct {
	id, userID int64
	addressID  *int64
}

func scanProfile(s scanner) (profileRow, error) {
	var (
		p       profileRow
		address sql.NullInt64
	)
	err := s.Scan(&p.id, &p.userID, &address)
	p.addressID = idPtr(address)
	return p, err
}

func (p profileRow) customer() domain.Customer {
	return domain.Customer{ID: p.id, UserID: p.userID, AddressID: p.addressID}
}

func (p profileRow) seller() domain.Seller {
	return domain.Seller{ID: p.id, UserID: p.userID, AddressID: p.addressID}
}

func (m *mysqlRepo) findProfile(ctx context.Context, table, column string, value int64) (*profileRow, error) {
	return one(m.q.QueryRowContext(ctx,
		`SELECT id, user_id, address_id FROM `+table+` WHERE `+column+` = ?`, value), scanProfile)
}

func (m *mysqlRepo) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	id, err := insertID(m.q.ExecContext(ctx,
		`INSERT INTO customers (user_id, address_id) VALUES (?, ?)`, c.UserID, nullableID(c.AddressID)))
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	c.ID = id
	return nil
}

func (m *mysqlRepo) FindCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	p, err := m.findProfile(ctx, "customers", "id", id)
	if p == nil || err != nil {
		return nil, err
	}
	c := p.customer()
	return &c, nil
}

func (m *mysqlRepo) FindCustomerByUser(ctx context.Context, userID int64) (*domain.Customer, error) {
	p, err := m.findProfile(ctx, "customers", "user_id", userID)
	if p == nil || err != nil {
		return nil, err
	}
	c := p.customer()
	return &c, nil
}

func (m *mysqlRepo) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := m.q.QueryContext(ctx, `SELECT id, user_id, address_id FROM customers ORDER BY id`)
	profiles, err := all(rows, err, scanProfile)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.customer())
	}
	return out, nil
}

func (m *mysqlRepo) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	ok, err := affected(m.q.ExecContext(ctx,
		`UPDATE customers SET address_id = ? WHERE id = ?`, nullableID(c.AddressID), c.ID))
	if err != nil {
		return err
	}
	if !ok {
		return m.existsOrNotFound(ctx, "customers", c.ID)
	}
	return nil
}

func (m *mysqlRepo) DeleteCustomer(ctx context.Context, id int64) (bool, error) {
	return affected(m.q.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id))
}

func (m *mysqlRepo) CreateSeller(ctx context.Context, s *domain.Seller) error {
	id, err := insertID(m.q.ExecContext(ctx,
		`INSERT INTO sellers (user_id, address_id) VALUES (?, ?)`, s.UserID, nullableID(s.AddressID)))
	if err != nil {
		return fmt.Errorf("insert seller: %w", err)
	}
	s.ID = id
	return nil
}

func (m *mysqlRepo) FindSeller(ctx context.Context, id int64) (*domain.Seller, error) {
	p, err := m.findProfile(ctx, "sellers", "id", id)
	if p == nil || err != nil {
		return nil, err
	}
	s := p.seller()
	return &s, nil
}

func (m *mysqlRepo) FindSellerByUser(ctx context.Context, userID int64) (*domain.Seller, error) {
	p, err := m.findProfile(ctx, "sellers", "user_id", userID)
	if p == nil || err != nil {
		return nil, err
	}
	s := p.seller()
	return &s, nil
}

func (m *mysqlRepo) ListSellers(ctx context.Context, city string) ([]domain.Seller, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if city == "" {
		rows, err = m.q.QueryContext(ctx, `SELECT id, user_id, address_id FROM sellers ORDER BY id`)
	} else {
		rows, err = m.q.QueryContext(ctx, `
			SELECT s.id, s.user_id, s.address_id
			FROM sellers s JOIN addresses a ON a.id = s.address_id
			WHERE LOWER(a.city) LIKE ?
			ORDER BY s.id`, "%"+strings.ToLower(city)+"%")
	}

	profiles, err := all(rows, err, scanProfile)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Seller, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.seller())
	}
	return out, nil
}

func (m *mysqlRepo) UpdateSeller(ctx context.Context, s domain.Seller) error {
	ok, err := affected(m.q.ExecContext(ctx,
		`UPDATE sellers SET address_id = ? WHERE id = ?`, nullableID(s.AddressID), s.ID))
	if err != nil {
		return err
	}
	if !ok {
		return m.existsOrNotFound(ctx, "sellers", s.ID)
	}
	return nil
}

func (m *mysqlRepo) DeleteSeller(ctx context.Context, id int64) (bool, error) {
	return affected(m.q.ExecContext(ctx, `DELETE FROM sellers WHERE id = ?`, id))
}

// existsOrNotFound tells an unchanged row apart from a missing one, since
// MySQL reports zero affected rows for both.
func (m *mysqlRepo) existsOrNotFound(ctx context.Context, table string, id int64) error {
	var n int
	if err := m.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

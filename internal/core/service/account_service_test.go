package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if env.customer.Role != domain.RoleCustomer || env.customer.ID == 0 {
		t.Errorf("unexpected customer profile: %+v", env.customer)
	}
	if env.seller.Role != domain.RoleSeller || env.seller.Address == nil || env.seller.Address.City != "Hamburg" {
		t.Errorf("unexpected seller profile: %+v", env.seller)
	}

	p, err := env.accounts.Register(ctx, RegisterInput{
		Username:  " jane ",
		Password:  "secret",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      "admin",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if p.Username != "jane" || p.FullName != "Jane Doe" || p.Role != domain.RoleCustomer {
		t.Errorf("unknown roles should fall back to customer, got %+v", p)
	}

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"duplicate username", RegisterInput{Username: "customer1", Password: "x"}, domain.ErrConflict},
		{"missing password", RegisterInput{Username: "bob"}, domain.ErrValidation},
		{"blank username", RegisterInput{Username: "  ", Password: "x"}, domain.ErrValidation},
		{"address without city", RegisterInput{Username: "bob", Password: "x", Address: &AddressInput{Street: "1 Road"}}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.accounts.Register(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, _, err := env.accounts.Login(ctx, "customer1", "wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for a bad password, got: %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, "nobody", "password123"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for an unknown user, got: %v", err)
	}

	token, expiresAt, err := env.accounts.Login(ctx, "customer1", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expected expiry in the future, got %v", expiresAt)
	}

	actor, err := env.accounts.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if actor.UserID != env.customer.UserID || actor.CustomerID != env.customer.ID || actor.SellerID != 0 {
		t.Errorf("unexpected actor: %+v", actor)
	}
	if actor.TokenID == "" || actor.IsStaff {
		t.Errorf("unexpected actor: %+v", actor)
	}

	sellerToken, _, _ := env.accounts.Login(ctx, "seller1", "password123")
	sellerActor, err := env.accounts.Authenticate(ctx, sellerToken)
	if err != nil {
		t.Fatalf("Authenticate seller failed: %v", err)
	}
	if sellerActor.SellerID != env.seller.ID || sellerActor.CustomerID != 0 {
		t.Errorf("unexpected seller actor: %+v", sellerActor)
	}
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, _, err := env.accounts.Login(ctx, "customer1", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	other := NewAccountService(env.store, env.cache, "another-secret", time.Hour)
	if _, err := other.Authenticate(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for a foreign signature, got: %v", err)
	}
	if _, err := env.accounts.Authenticate(ctx, "garbage"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for garbage, got: %v", err)
	}

	env.accounts.timeNowFn = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := env.accounts.Authenticate(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for an expired token, got: %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, _, _ := env.accounts.Login(ctx, "customer1", "password123")
	actor, err := env.accounts.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := env.accounts.Logout(ctx, actor); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := env.accounts.Authenticate(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected revoked token to be rejected, got: %v", err)
	}

	// A fresh login still works
	fresh, _, _ := env.accounts.Login(ctx, "customer1", "password123")
	if _, err := env.accounts.Authenticate(ctx, fresh); err != nil {
		t.Errorf("expected new token to work, got: %v", err)
	}
}

func TestAddressesAndProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.accounts.CreateAddress(ctx, env.customer.UserID, AddressInput{City: "Berlin"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}

	addr, err := env.accounts.CreateAddress(ctx, env.customer.UserID, AddressInput{Street: " 7 Lake Rd ", City: "Potsdam"})
	if err != nil {
		t.Fatalf("CreateAddress failed: %v", err)
	}
	if addr.Street != "7 Lake Rd" {
		t.Errorf("expected trimmed street, got %q", addr.Street)
	}

	addresses, _ := env.accounts.ListAddresses(ctx, env.customer.UserID)
	if len(addresses) != 2 {
		t.Errorf("expected 2 addresses, got %d", len(addresses))
	}

	p, err := env.accounts.SetCustomerAddress(ctx, env.customer.ID, &addr.ID)
	if err != nil {
		t.Fatalf("SetCustomerAddress failed: %v", err)
	}
	if p.Address == nil || p.Address.City != "Potsdam" {
		t.Errorf("unexpected address: %+v", p.Address)
	}

	if _, err := env.accounts.SetCustomerAddress(ctx, env.customer.ID, &env.seller.Address.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user's address, got: %v", err)
	}
	if _, err := env.accounts.SetSellerAddress(ctx, env.seller.ID, &addr.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user's address, got: %v", err)
	}

	cleared, err := env.accounts.SetCustomerAddress(ctx, env.customer.ID, nil)
	if err != nil || cleared.Address != nil {
		t.Errorf("expected cleared address, got %+v, err %v", cleared.Address, err)
	}

	customers, _ := env.accounts.ListCustomers(ctx)
	if len(customers) != 1 || customers[0].Username != "customer1" {
		t.Errorf("unexpected customers: %+v", customers)
	}
	if _, err := env.accounts.GetCustomer(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestListSellersByCity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, RegisterInput{
		Username: "seller2",
		Password: "password123",
		Role:     domain.RoleSeller,
		Address:  &AddressInput{Street: "1 Main St", City: "Munich"},
	})
	if err != nil {
		t.Fatalf("register seller2: %v", err)
	}

	tests := []struct {
		city string
		want int
	}{
		{"", 2},
		{"hamburg", 1},
		{" MUN ", 1},
		{"Paris", 0},
	}
	for _, tt := range tests {
		sellers, err := env.accounts.ListSellers(ctx, tt.city)
		if err != nil {
			t.Fatalf("ListSellers(%q) failed: %v", tt.city, err)
		}
		if len(sellers) != tt.want {
			t.Errorf("ListSellers(%q): expected %d, got %d", tt.city, tt.want, len(sellers))
		}
	}
}

func TestDeleteProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 5)
	env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 1)

	if err := env.accounts.DeleteCustomer(ctx, env.customer.ID); err != nil {
		t.Fatalf("DeleteCustomer failed: %v", err)
	}
	if _, err := env.accounts.GetCustomer(ctx, env.customer.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if err := env.accounts.DeleteCustomer(ctx, env.customer.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got: %v", err)
	}

	if err := env.accounts.DeleteSeller(ctx, env.seller.ID); err != nil {
		t.Fatalf("DeleteSeller failed: %v", err)
	}
	if _, err := env.catalog.GetProduct(ctx, desk.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected seller products removed, got: %v", err)
	}
}

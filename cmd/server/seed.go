package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/core/service"
)

const seedPassword = "password123"

type seedProduct struct {
	name, description, price string
	isNew                    bool
	stock                    int
	category                 string
	image                    string
}

var seedProducts = []seedProduct{
	{"Smartphone", "A high-end smartphone", "699.99", true, 50, "Electronics", "http://example.com/image1.jpg"},
	{"Laptop", "A powerful laptop for professionals", "700.99", false, 1, "Electronics", ""},
	{"Lunch table", "A nice table", "250", false, 1, "Furniture", "http://example.com/image2.jpg"},
}

func newSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo users, categories and products",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			err = seed(cmd.Context(), a)
			if errors.Is(err, domain.ErrConflict) {
				log.Info("demo data already present")
				return nil
			}
			if err != nil {
				return err
			}
			log.Info("demo customers, sellers and products created")
			return nil
		},
	}
}

func seed(ctx context.Context, a *app) error {
	if _, err := a.accounts.Register(ctx, service.RegisterInput{
		Username: "customer1",
		Password: seedPassword,
		Email:    "customer1@example.com",
		Role:     domain.RoleCustomer,
		Address: &service.AddressInput{
			Street:      "123 Elm Street",
			PostalCode:  "12345",
			PhoneNumber: "+4934567890",
			City:        "Berlin",
		},
	}); err != nil {
		return fmt.Errorf("register customer1: %w", err)
	}

	seller, err := a.accounts.Register(ctx, service.RegisterInput{
		Username: "seller1",
		Password: seedPassword,
		Email:    "seller1@example.com",
		Role:     domain.RoleSeller,
		Address: &service.AddressInput{
			Street:      "456 Oak Avenue",
			PostalCode:  "67890",
			PhoneNumber: "+0497654321",
			City:        "Hamburg",
		},
	})
	if err != nil {
		return fmt.Errorf("register seller1: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		IsStaff:      true,
		CreatedAt:    time.Now(),
	}
	if err := a.store.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	categories := map[string]int64{}
	for _, name := range []string{"Electronics", "Furniture"} {
		c, err := a.catalog.CreateCategory(ctx, name, "All "+name+" products")
		if err != nil {
			return fmt.Errorf("create category %s: %w", name, err)
		}
		categories[name] = c.ID
	}

	for _, sp := range seedProducts {
		p, err := a.catalog.CreateProduct(ctx, seller.ID, service.ProductInput{
			Name:        sp.name,
			Description: sp.description,
			Price:       decimal.RequireFromString(sp.price),
			IsNew:       sp.isNew,
			Stock:       sp.stock,
			CategoryID:  categories[sp.category],
		})
		if err != nil {
			return fmt.Errorf("create product %s: %w", sp.name, err)
		}
		if sp.image == "" {
			continue
		}
		if _, err := a.catalog.AddImage(ctx, p.ID, sp.image); err != nil {
			return fmt.Errorf("add image to %s: %w", sp.name, err)
		}
	}
	return nil
}

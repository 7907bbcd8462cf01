package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

func TestCreateCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.catalog.CreateCategory(ctx, "  Garden Tools ", "outdoor")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if c.Name != "Garden Tools" || c.Slug != "Garden-Tools" {
		t.Errorf("unexpected category: %+v", c)
	}

	if _, err := env.catalog.CreateCategory(ctx, "Garden Tools", ""); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate slug, got: %v", err)
	}
	if _, err := env.catalog.CreateCategory(ctx, "   ", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for blank name, got: %v", err)
	}
}

func TestUpdateAndDeleteCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 5)

	updated, err := env.catalog.UpdateCategory(ctx, env.category.ID, "Office", "desks")
	if err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	if updated.Slug != "Office" || updated.Description != "desks" {
		t.Errorf("unexpected category: %+v", updated)
	}

	if _, err := env.catalog.UpdateCategory(ctx, 999, "Nope", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}

	if err := env.catalog.DeleteCategory(ctx, env.category.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if _, err := env.catalog.GetProduct(ctx, desk.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected products of a deleted category to go with it, got: %v", err)
	}
	if err := env.catalog.DeleteCategory(ctx, env.category.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got: %v", err)
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	valid := ProductInput{Name: "Chair", Price: decimal.RequireFromString("49.90"), Stock: 3, CategoryID: env.category.ID}

	tests := []struct {
		name   string
		mutate func(in *ProductInput)
		want   error
	}{
		{"blank name", func(in *ProductInput) { in.Name = " " }, domain.ErrValidation},
		{"zero price", func(in *ProductInput) { in.Price = decimal.Zero }, domain.ErrValidation},
		{"three decimals", func(in *ProductInput) { in.Price = decimal.RequireFromString("1.999") }, domain.ErrValidation},
		{"price too large", func(in *ProductInput) { in.Price = decimal.RequireFromString("100000000") }, domain.ErrValidation},
		{"negative stock", func(in *ProductInput) { in.Stock = -1 }, domain.ErrValidation},
		{"no category", func(in *ProductInput) { in.CategoryID = 0 }, domain.ErrValidation},
		{"unknown category", func(in *ProductInput) { in.CategoryID = 999 }, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			if _, err := env.catalog.CreateProduct(ctx, env.seller.ID, in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}

	if _, err := env.catalog.CreateProduct(ctx, 999, valid); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown seller, got: %v", err)
	}

	p, err := env.catalog.CreateProduct(ctx, env.seller.ID, valid)
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if p.ID == 0 || p.SellerID != env.seller.ID || !p.Price.Equal(valid.Price) {
		t.Errorf("unexpected product: %+v", p)
	}
}

func TestListProducts_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other, _ := env.catalog.CreateCategory(ctx, "Kitchen", "")
	env.newProduct(t, "Standing Desk", "450.00", 5)
	env.newProduct(t, "Desk Lamp", "19.99", 5)
	env.newProduct(t, "Monitor", "199.00", 5)
	kettle, _ := env.catalog.CreateProduct(ctx, env.seller.ID, ProductInput{
		Name: "Kettle", Price: decimal.RequireFromString("35.00"), Stock: 2, CategoryID: other.ID,
	})

	price := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	tests := []struct {
		name   string
		filter domain.ProductFilter
		want   []string
	}{
		{"all", domain.ProductFilter{}, []string{"Standing Desk", "Desk Lamp", "Monitor", "Kettle"}},
		{"min price", domain.ProductFilter{MinPrice: price("100")}, []string{"Standing Desk", "Monitor"}},
		{"price range", domain.ProductFilter{MinPrice: price("20"), MaxPrice: price("200")}, []string{"Monitor", "Kettle"}},
		{"category", domain.ProductFilter{CategoryID: kettle.CategoryID}, []string{"Kettle"}},
		{"name search", domain.ProductFilter{Query: " desk "}, []string{"Standing Desk", "Desk Lamp"}},
		{"limit", domain.ProductFilter{Limit: 2}, []string{"Standing Desk", "Desk Lamp"}},
		{"offset", domain.ProductFilter{Limit: 2, Offset: 3}, []string{"Kettle"}},
		{"offset past end", domain.ProductFilter{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.catalog.ListProducts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListProducts failed: %v", err)
			}
			names := make([]string, 0, len(got))
			for _, p := range got {
				names = append(names, p.Name)
			}
			if fmt.Sprint(names) != fmt.Sprint(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, names)
			}
		})
	}

	if _, err := env.catalog.ListProducts(ctx, domain.ProductFilter{MinPrice: price("50"), MaxPrice: price("10")}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for inverted range, got: %v", err)
	}
}

func TestListProducts_ClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < maxListLimit+5; i++ {
		env.newProduct(t, fmt.Sprintf("Item %d", i), "1.00", 1)
	}

	got, _ := env.catalog.ListProducts(ctx, domain.ProductFilter{})
	if len(got) != defaultListLimit {
		t.Errorf("expected default limit %d, got %d", defaultListLimit, len(got))
	}
	got, _ = env.catalog.ListProducts(ctx, domain.ProductFilter{Limit: 1000})
	if len(got) != maxListLimit {
		t.Errorf("expected clamp to %d, got %d", maxListLimit, len(got))
	}
}

func TestUpdateProduct_InvalidatesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 5)

	// Warm the cache
	if _, err := env.catalog.GetProduct(ctx, desk.ID); err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}

	updated, err := env.catalog.UpdateProduct(ctx, desk.ID, ProductInput{
		Name: "Desk XL", Price: decimal.RequireFromString("150.00"), Stock: 9, CategoryID: env.category.ID,
	})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if updated.SellerID != env.seller.ID {
		t.Errorf("seller must not change, got %d", updated.SellerID)
	}

	got, _ := env.catalog.GetProduct(ctx, desk.ID)
	if got.Name != "Desk XL" || got.Stock != 9 || !got.Price.Equal(decimal.RequireFromString("150")) {
		t.Errorf("expected fresh product after update, got %+v", got)
	}

	if _, err := env.catalog.UpdateProduct(ctx, 999, ProductInput{
		Name: "x", Price: decimal.NewFromInt(1), CategoryID: env.category.ID,
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 5)
	env.carts.AddOrIncreaseCartLine(ctx, env.customer.ID, desk.ID, 1)
	env.catalog.GetProduct(ctx, desk.ID)

	if err := env.catalog.DeleteProduct(ctx, desk.ID); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
	if _, err := env.catalog.GetProduct(ctx, desk.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}
	if lines := env.cartLines(t, env.customer.ID); len(lines) != 0 {
		t.Errorf("expected cart lines of the product removed, got %+v", lines)
	}
	if err := env.catalog.DeleteProduct(ctx, desk.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got: %v", err)
	}
}

func TestProductImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	desk := env.newProduct(t, "Desk", "120.00", 5)

	for _, bad := range []string{"", "not a url", "ftp://example.com/a.jpg", "/relative.jpg"} {
		if _, err := env.catalog.AddImage(ctx, desk.ID, bad); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("AddImage(%q): expected ErrValidation, got: %v", bad, err)
		}
	}
	if _, err := env.catalog.AddImage(ctx, 999, "http://example.com/a.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown product, got: %v", err)
	}

	img, err := env.catalog.AddImage(ctx, desk.ID, "http://example.com/image1.jpg")
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	detail, err := env.catalog.GetProductDetail(ctx, desk.ID)
	if err != nil {
		t.Fatalf("GetProductDetail failed: %v", err)
	}
	if len(detail.Images) != 1 || detail.Images[0].URL != "http://example.com/image1.jpg" {
		t.Errorf("unexpected images: %+v", detail.Images)
	}
	if detail.Category == nil || detail.Category.ID != env.category.ID {
		t.Errorf("unexpected category: %+v", detail.Category)
	}

	got, err := env.catalog.GetImage(ctx, img.ID)
	if err != nil || got.ProductID != desk.ID {
		t.Errorf("GetImage: got %+v, err %v", got, err)
	}

	if err := env.catalog.DeleteImage(ctx, img.ID); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	if _, err := env.catalog.GetImage(ctx, img.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if err := env.catalog.DeleteImage(ctx, img.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got: %v", err)
	}
}

package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/port"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// prices are stored as DECIMAL(10,2)
var maxPrice = decimal.New(1, 8)

type CatalogService struct {
	store port.DatabaseRepository
	cache port.CacheRepository
}

func NewCatalogService(store port.DatabaseRepository, cache port.CacheRepository) *CatalogService {
	return &CatalogService{store: store, cache: cache}
}

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	IsNew       bool
	Stock       int
	CategoryID  int64
}

type ProductDetail struct {
	Product  domain.Product
	Category *domain.Category
	Images   []domain.ProductImage
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	case !in.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	case !in.Price.Equal(in.Price.Round(2)):
		return fmt.Errorf("%w: price has more than 2 decimal places", domain.ErrValidation)
	case in.Price.GreaterThanOrEqual(maxPrice):
		return fmt.Errorf("%w: price must be below %s", domain.ErrValidation, maxPrice)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", domain.ErrValidation)
	case in.CategoryID <= 0:
		return fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	return nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	c := domain.Category{Name: name, Description: description, Slug: domain.Slugify(name)}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	c, err := s.store.FindCategory(ctx, id)
	if err != nil {
		return domain.Category{}, fmt.Errorf("find category: %w", err)
	}
	if c == nil {
		return domain.Category{}, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	return *c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, name, description string) (domain.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	c.Name = name
	c.Description = description
	c.Slug = domain.Slugify(name)

	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return domain.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	ok, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if !ok {
		return fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CreateProduct lists a new product for the seller.
func (s *CatalogService) CreateProduct(ctx context.Context, sellerID int64, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}

	p := domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		IsNew:       in.IsNew,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		SellerID:    sellerID,
		CreatedAt:   time.Now(),
	}

	err := s.store.WithinTx(ctx, func(tx port.Repositories) error {
		if err := requireCategoryAndSeller(ctx, tx, in.CategoryID, sellerID); err != nil {
			return err
		}
		if err := tx.CreateProduct(ctx, &p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return loadProduct(ctx, s.store, s.cache, id)
}

func (s *CatalogService) GetProductDetail(ctx context.Context, id int64) (ProductDetail, error) {
	p, err := loadProduct(ctx, s.store, s.cache, id)
	if err != nil {
		return ProductDetail{}, err
	}

	category, err := s.store.FindCategory(ctx, p.CategoryID)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("find category: %w", err)
	}

	images, err := s.store.ListProductImages(ctx, id)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("list images: %w", err)
	}

	return ProductDetail{Product: p, Category: category, Images: images}, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("%w: min_price exceeds max_price", domain.ErrValidation)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Query = strings.TrimSpace(filter.Query)

	return s.store.ListProducts(ctx, filter)
}

// UpdateProduct replaces the editable fields. Stock is set under the product
// row lock so that it cannot race with cart reservations.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}

	var updated domain.Product

	err := s.store.WithinTx(ctx, func(tx port.Repositories) error {
		p, err := tx.FindProductForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		if p == nil {
			return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		if err := requireCategoryAndSeller(ctx, tx, in.CategoryID, p.SellerID); err != nil {
			return err
		}

		p.Name = in.Name
		p.Description = in.Description
		p.Price = in.Price
		p.IsNew = in.IsNew
		p.Stock = in.Stock
		p.CategoryID = in.CategoryID

		if err := tx.UpdateProduct(ctx, *p); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		updated = *p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	_ = s.cache.InvalidateProduct(ctx, id)
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ok, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if !ok {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	_ = s.cache.InvalidateProduct(ctx, id)
	return nil
}

func (s *CatalogService) AddImage(ctx context.Context, productID int64, rawURL string) (domain.ProductImage, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.ProductImage{}, fmt.Errorf("%w: image must be an absolute http(s) url", domain.ErrValidation)
	}

	if _, err := loadProduct(ctx, s.store, s.cache, productID); err != nil {
		return domain.ProductImage{}, err
	}

	img := domain.ProductImage{ProductID: productID, URL: u.String()}
	if err := s.store.AddProductImage(ctx, &img); err != nil {
		return domain.ProductImage{}, fmt.Errorf("add image: %w", err)
	}
	return img, nil
}

func (s *CatalogService) ListImages(ctx context.Context, productID int64) ([]domain.ProductImage, error) {
	return s.store.ListProductImages(ctx, productID)
}

func (s *CatalogService) GetImage(ctx context.Context, id int64) (domain.ProductImage, error) {
	img, err := s.store.FindProductImage(ctx, id)
	if err != nil {
		return domain.ProductImage{}, fmt.Errorf("find image: %w", err)
	}
	if img == nil {
		return domain.ProductImage{}, fmt.Errorf("image %d: %w", id, domain.ErrNotFound)
	}
	return *img, nil
}

func (s *CatalogService) DeleteImage(ctx context.Context, id int64) error {
	ok, err := s.store.DeleteProductImage(ctx, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if !ok {
		return fmt.Errorf("image %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// loadProduct reads through the product cache.
func loadProduct(ctx context.Context, store port.CatalogRepository, cache port.CacheRepository, id int64) (domain.Product, error) {
	if cached, err := cache.GetProduct(ctx, id); err == nil && cached != nil {
		return *cached, nil
	}

	p, err := store.FindProduct(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("find product: %w", err)
	}
	if p == nil {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	_ = cache.SetProduct(ctx, *p)
	return *p, nil
}

func requireCategoryAndSeller(ctx context.Context, tx port.Repositories, categoryID, sellerID int64) error {
	category, err := tx.FindCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("find category: %w", err)
	}
	if category == nil {
		return fmt.Errorf("category %d: %w", categoryID, domain.ErrNotFound)
	}

	seller, err := tx.FindSeller(ctx, sellerID)
	if err != nil {
		return fmt.Errorf("find seller: %w", err)
	}
	if seller == nil {
		return fmt.Errorf("seller %d: %w", sellerID, domain.ErrNotFound)
	}
	return nil
}

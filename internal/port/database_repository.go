package port

import (
	"context"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

// Lookups return (nil, nil) when the row does not exist.

type CatalogRepository interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	FindCategory(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, c domain.Category) error
	DeleteCategory(ctx context.Context, id int64) (bool, error)

	CreateProduct(ctx context.Context, p *domain.Product) error
	FindProduct(ctx context.Context, id int64) (*domain.Product, error)

	// FindProductForUpdate reads the product and holds its row lock until the
	// surrounding transaction ends
	FindProductForUpdate(ctx context.Context, id int64) (*domain.Product, error)

	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) error
	UpdateProductStock(ctx context.Context, id int64, stock int) error
	DeleteProduct(ctx context.Context, id int64) (bool, error)

	AddProductImage(ctx context.Context, img *domain.ProductImage) error
	FindProductImage(ctx context.Context, id int64) (*domain.ProductImage, error)

	// ListProductImages lists every image when productID is zero
	ListProductImages(ctx context.Context, productID int64) ([]domain.ProductImage, error)
	DeleteProductImage(ctx context.Context, id int64) (bool, error)
}

type CartRepository interface {
	FindCartByCustomer(ctx context.Context, customerID int64) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart *domain.Cart) error

	// FindCartLine looks the line up inside the given cart only. Both line
	// lookups lock the row inside a transaction; callers lock a line before the
	// product it reserves.
	FindCartLine(ctx context.Context, cartID, lineID int64) (*domain.CartItem, error)
	FindCartLineByProduct(ctx context.Context, cartID, productID int64) (*domain.CartItem, error)
	ListCartLines(ctx context.Context, cartID int64) ([]domain.CartItem, error)
	InsertCartLine(ctx context.Context, item *domain.CartItem) error
	UpdateCartLineQuantity(ctx context.Context, lineID int64, quantity int) error
	DeleteCartLines(ctx context.Context, lineIDs ...int64) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	InsertOrderItem(ctx context.Context, item *domain.OrderItem) error

	// FindOrder looks the order up among the customer's orders only
	FindOrder(ctx context.Context, customerID, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, customerID int64) ([]domain.Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	FindOrderItem(ctx context.Context, orderID, itemID int64) (*domain.OrderItem, error)
	DeleteOrderItem(ctx context.Context, itemID int64) error
	SetShippingAddress(ctx context.Context, orderID int64, addressID *int64) error
}

type AccountRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUser(ctx context.Context, id int64) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)

	CreateAddress(ctx context.Context, a *domain.Address) error
	FindAddress(ctx context.Context, id int64) (*domain.Address, error)
	ListAddresses(ctx context.Context, userID int64) ([]domain.Address, error)

	CreateCustomer(ctx context.Context, c *domain.Customer) error
	FindCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	FindCustomerByUser(ctx context.Context, userID int64) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, c domain.Customer) error
	DeleteCustomer(ctx context.Context, id int64) (bool, error)

	CreateSeller(ctx context.Context, s *domain.Seller) error
	FindSeller(ctx context.Context, id int64) (*domain.Seller, error)
	FindSellerByUser(ctx context.Context, userID int64) (*domain.Seller, error)

	// ListSellers filters by a case-insensitive substring of the address city
	// when city is not empty
	ListSellers(ctx context.Context, city string) ([]domain.Seller, error)
	UpdateSeller(ctx context.Context, s domain.Seller) error
	DeleteSeller(ctx context.Context, id int64) (bool, error)
}

// Repositories is the set of data access methods available inside and
// outside a transaction.
type Repositories interface {
	CatalogRepository
	CartRepository
	OrderRepository
	AccountRepository
}

type DatabaseRepository interface {
	Repositories

	// WithinTx runs fn in one transaction. A non-nil error from fn rolls back
	// every write made through the Repositories it received.
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
}

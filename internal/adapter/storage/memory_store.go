package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/port"
)

// MemoryStore keeps everything in process memory. Transactions are
// serialized by one mutex and roll back by restoring a snapshot, which also
// gives every product the same exclusion a row lock would.
type MemoryStore struct {
	*memRepo
	mu sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.memRepo = &memRepo{d: newMemData(), mu: &s.mu}
	return s
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx port.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	if err := fn(&memRepo{d: s.d}); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

type memData struct {
	seq        int64
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	images     map[int64]domain.ProductImage
	users      map[int64]domain.User
	addresses  map[int64]domain.Address
	customers  map[int64]domain.Customer
	sellers    map[int64]domain.Seller
	carts      map[int64]domain.Cart
	cartItems  map[int64]domain.CartItem
	orders     map[int64]domain.Order
	orderItems map[int64]domain.OrderItem
}

func newMemData() *memData {
	return &memData{
		categories: map[int64]domain.Category{},
		products:   map[int64]domain.Product{},
		images:     map[int64]domain.ProductImage{},
		users:      map[int64]domain.User{},
		addresses:  map[int64]domain.Address{},
		customers:  map[int64]domain.Customer{},
		sellers:    map[int64]domain.Seller{},
		carts:      map[int64]domain.Cart{},
		cartItems:  map[int64]domain.CartItem{},
		orders:     map[int64]domain.Order{},
		orderItems: map[int64]domain.OrderItem{},
	}
}

func (d *memData) clone() *memData {
	return &memData{
		seq:        d.seq,
		categories: maps.Clone(d.categories),
		products:   maps.Clone(d.products),
		images:     maps.Clone(d.images),
		users:      maps.Clone(d.users),
		addresses:  maps.Clone(d.addresses),
		customers:  maps.Clone(d.customers),
		sellers:    maps.Clone(d.sellers),
		carts:      maps.Clone(d.carts),
		cartItems:  maps.Clone(d.cartItems),
		orders:     maps.Clone(d.orders),
		orderItems: maps.Clone(d.orderItems),
	}
}

func (d *memData) nextID() int64 {
	d.seq++
	return d.seq
}

// memRepo locks mu around every call when mu is set; inside WithinTx the
// lock is already held and mu is nil.
type memRepo struct {
	d  *memData
	mu *sync.Mutex
}

func (r *memRepo) lock() func() {
	if r.mu == nil {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func sortedValues[V any](m map[int64]V, keep func(V) bool) []V {
	out := make([]V, 0, len(m))
	for _, id := range slices.Sorted(maps.Keys(m)) {
		if keep == nil || keep(m[id]) {
			out = append(out, m[id])
		}
	}
	return out
}

func found[V any](m map[int64]V, id int64) *V {
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}

// Catalog

func (r *memRepo) CreateCategory(_ context.Context, c *domain.Category) error {
	defer r.lock()()
	for _, other := range r.d.categories {
		if other.Slug == c.Slug {
			return fmt.Errorf("category slug %q: %w", c.Slug, domain.ErrConflict)
		}
	}
	c.ID = r.d.nextID()
	r.d.categories[c.ID] = *c
	return nil
}

func (r *memRepo) FindCategory(_ context.Context, id int64) (*domain.Category, error) {
	defer r.lock()()
	return found(r.d.categories, id), nil
}

func (r *memRepo) ListCategories(context.Context) ([]domain.Category, error) {
	defer r.lock()()
	return sortedValues(r.d.categories, nil), nil
}

func (r *memRepo) UpdateCategory(_ context.Context, c domain.Category) error {
	defer r.lock()()
	if _, ok := r.d.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, other := range r.d.categories {
		if other.ID != c.ID && other.Slug == c.Slug {
			return fmt.Errorf("category slug %q: %w", c.Slug, domain.ErrConflict)
		}
	}
	r.d.categories[c.ID] = c
	return nil
}

func (r *memRepo) DeleteCategory(_ context.Context, id int64) (bool, error) {
	defer r.lock()()
	if _, ok := r.d.categories[id]; !ok {
		return false, nil
	}
	delete(r.d.categories, id)
	for pid, p := range r.d.products {
		if p.CategoryID == id {
			r.d.deleteProduct(pid)
		}
	}
	return true, nil
}

func (r *memRepo) CreateProduct(_ context.Context, p *domain.Product) error {
	defer r.lock()()
	p.ID = r.d.nextID()
	r.d.products[p.ID] = *p
	return nil
}

func (r *memRepo) FindProduct(_ context.Context, id int64) (*domain.Product, error) {
	defer r.lock()()
	return found(r.d.products, id), nil
}

func (r *memRepo) FindProductForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.FindProduct(ctx, id)
}

func (r *memRepo) ListProducts(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	defer r.lock()()
	query := strings.ToLower(f.Query)
	all := sortedValues(r.d.products, func(p domain.Product) bool {
		switch {
		case f.MinPrice != nil && p.Price.LessThan(*f.MinPrice):
			return false
		case f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice):
			return false
		case f.CategoryID != 0 && p.CategoryID != f.CategoryID:
			return false
		case query != "" && !strings.Contains(strings.ToLower(p.Name), query):
			return false
		}
		return true
	})

	if f.Offset >= len(all) {
		return []domain.Product{}, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, nil
}

func (r *memRepo) UpdateProduct(_ context.Context, p domain.Product) error {
	defer r.lock()()
	if _, ok := r.d.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.d.products[p.ID] = p
	return nil
}

func (r *memRepo) UpdateProductStock(_ context.Context, id int64, stock int) error {
	defer r.lock()()
	p, ok := r.d.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if stock < 0 {
		return fmt.Errorf("product %d: stock would become %d", id, stock)
	}
	p.Stock = stock
	r.d.products[id] = p
	return nil
}

func (r *memRepo) DeleteProduct(_ context.Context, id int64) (bool, error) {
	defer r.lock()()
	if _, ok := r.d.products[id]; !ok {
		return false, nil
	}
	r.d.deleteProduct(id)
	return true, nil
}

func (d *memData) deleteProduct(id int64) {
	delete(d.products, id)
	for iid, img := range d.images {
		if img.ProductID == id {
			delete(d.images, iid)
		}
	}
	for lid, line := range d.cartItems {
		if line.ProductID == id {
			delete(d.cartItems, lid)
		}
	}
	for oid, item := range d.orderItems {
		if item.ProductID == id {
			delete(d.orderItems, oid)
		}
	}
}

func (r *memRepo) AddProductImage(_ context.Context, img *domain.ProductImage) error {
	defer r.lock()()
	if _, ok := r.d.products[img.ProductID]; !ok {
		return fmt.Errorf("product %d: %w", img.ProductID, domain.ErrNotFound)
	}
	img.ID = r.d.nextID()
	r.d.images[img.ID] = *img
	return nil
}

func (r *memRepo) FindProductImage(_ context.Context, id int64) (*domain.ProductImage, error) {
	defer r.lock()()
	return found(r.d.images, id), nil
}

func (r *memRepo) ListProductImages(_ context.Context, productID int64) ([]domain.ProductImage, error) {
	defer r.lock()()
	return sortedValues(r.d.images, func(img domain.ProductImage) bool {
		return productID == 0 || img.ProductID == productID
	}), nil
}

func (r *memRepo) DeleteProductImage(_ context.Context, id int64) (bool, error) {
	defer r.lock()()
	if _, ok := r.d.images[id]; !ok {
		return false, nil
	}
	delete(r.d.images, id)
	return true, nil
}

// Cart

func (r *memRepo) FindCartByCustomer(_ context.Context, customerID int64) (*domain.Cart, error) {
	defer r.lock()()
	for _, c := range r.d.carts {
		if c.CustomerID == customerID {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memRepo) CreateCart(_ context.Context, cart *domain.Cart) error {
	defer r.lock()()
	for _, c := range r.d.carts {
		if c.CustomerID == cart.CustomerID {
			return fmt.Errorf("cart of customer %d: %w", cart.CustomerID, domain.ErrConflict)
		}
	}
	cart.ID = r.d.nextID()
	stored := *cart
	stored.Items = nil
	r.d.carts[cart.ID] = stored
	return nil
}

func (r *memRepo) FindCartLine(_ context.Context, cartID, lineID int64) (*domain.CartItem, error) {
	defer r.lock()()
	line, ok := r.d.cartItems[lineID]
	if !ok || line.CartID != cartID {
		return nil, nil
	}
	return &line, nil
}

func (r *memRepo) FindCartLineByProduct(_ context.Context, cartID, productID int64) (*domain.CartItem, error) {
	defer r.lock()()
	for _, line := range r.d.cartItems {
		if line.CartID == cartID && line.ProductID == productID {
			return &line, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListCartLines(_ context.Context, cartID int64) ([]domain.CartItem, error) {
	defer r.lock()()
	return sortedValues(r.d.cartItems, func(line domain.CartItem) bool {
		return line.CartID == cartID
	}), nil
}

func (r *memRepo) InsertCartLine(_ context.Context, item *domain.CartItem) error {
	defer r.lock()()
	if item.Quantity <= 0 {
		return fmt.Errorf("cart line quantity must be positive, got %d", item.Quantity)
	}
	for _, line := range r.d.cartItems {
		if line.CartID == item.CartID && line.ProductID == item.ProductID {
			return fmt.Errorf("product %d already in cart %d: %w", item.ProductID, item.CartID, domain.ErrConflict)
		}
	}
	item.ID = r.d.nextID()
	r.d.cartItems[item.ID] = *item
	return nil
}

func (r *memRepo) UpdateCartLineQuantity(_ context.Context, lineID int64, quantity int) error {
	defer r.lock()()
	line, ok := r.d.cartItems[lineID]
	if !ok {
		return domain.ErrNotFound
	}
	if quantity <= 0 {
		return fmt.Errorf("cart line quantity must be positive, got %d", quantity)
	}
	line.Quantity = quantity
	r.d.cartItems[lineID] = line
	return nil
}

func (r *memRepo) DeleteCartLines(_ context.Context, lineIDs ...int64) error {
	defer r.lock()()
	for _, id := range lineIDs {
		delete(r.d.cartItems, id)
	}
	return nil
}

// Orders

func (r *memRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	defer r.lock()()
	if _, ok := r.d.customers[order.CustomerID]; !ok {
		return fmt.Errorf("customer %d: %w", order.CustomerID, domain.ErrNotFound)
	}
	order.ID = r.d.nextID()
	stored := *order
	stored.Items = nil
	r.d.orders[order.ID] = stored
	return nil
}

func (r *memRepo) InsertOrderItem(_ context.Context, item *domain.OrderItem) error {
	defer r.lock()()
	if _, ok := r.d.orders[item.OrderID]; !ok {
		return fmt.Errorf("order %d: %w", item.OrderID, domain.ErrNotFound)
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("order item quantity must be positive, got %d", item.Quantity)
	}
	item.ID = r.d.nextID()
	r.d.orderItems[item.ID] = *item
	return nil
}

func (r *memRepo) FindOrder(_ context.Context, customerID, orderID int64) (*domain.Order, error) {
	defer r.lock()()
	o, ok := r.d.orders[orderID]
	if !ok || o.CustomerID != customerID {
		return nil, nil
	}
	return &o, nil
}

func (r *memRepo) ListOrders(_ context.Context, customerID int64) ([]domain.Order, error) {
	defer r.lock()()
	return sortedValues(r.d.orders, func(o domain.Order) bool {
		return o.CustomerID == customerID
	}), nil
}

func (r *memRepo) ListOrderItems(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	defer r.lock()()
	return sortedValues(r.d.orderItems, func(it domain.OrderItem) bool {
		return it.OrderID == orderID
	}), nil
}

func (r *memRepo) FindOrderItem(_ context.Context, orderID, itemID int64) (*domain.OrderItem, error) {
	defer r.lock()()
	it, ok := r.d.orderItems[itemID]
	if !ok || it.OrderID != orderID {
		return nil, nil
	}
	return &it, nil
}

func (r *memRepo) DeleteOrderItem(_ context.Context, itemID int64) error {
	defer r.lock()()
	delete(r.d.orderItems, itemID)
	return nil
}

func (r *memRepo) SetShippingAddress(_ context.Context, orderID int64, addressID *int64) error {
	defer r.lock()()
	o, ok := r.d.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.ShippingAddressID = addressID
	r.d.orders[orderID] = o
	return nil
}

// Accounts

func (r *memRepo) CreateUser(_ context.Context, u *domain.User) error {
	defer r.lock()()
	for _, other := range r.d.users {
		if other.Username == u.Username {
			return fmt.Errorf("username %q: %w", u.Username, domain.ErrConflict)
		}
	}
	u.ID = r.d.nextID()
	r.d.users[u.ID] = *u
	return nil
}

func (r *memRepo) FindUser(_ context.Context, id int64) (*domain.User, error) {
	defer r.lock()()
	return found(r.d.users, id), nil
}

func (r *memRepo) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	defer r.lock()()
	for _, u := range r.d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memRepo) CreateAddress(_ context.Context, a *domain.Address) error {
	defer r.lock()()
	a.ID = r.d.nextID()
	r.d.addresses[a.ID] = *a
	return nil
}

func (r *memRepo) FindAddress(_ context.Context, id int64) (*domain.Address, error) {
	defer r.lock()()
	return found(r.d.addresses, id), nil
}

func (r *memRepo) ListAddresses(_ context.Context, userID int64) ([]domain.Address, error) {
	defer r.lock()()
	return sortedValues(r.d.addresses, func(a domain.Address) bool {
		return a.UserID == userID
	}), nil
}

func (r *memRepo) CreateCustomer(_ context.Context, c *domain.Customer) error {
	defer r.lock()()
	for _, other := range r.d.customers {
		if other.UserID == c.UserID {
			return fmt.Errorf("customer for user %d: %w", c.UserID, domain.ErrConflict)
		}
	}
	c.ID = r.d.nextID()
	r.d.customers[c.ID] = *c
	return nil
}

func (r *memRepo) FindCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	defer r.lock()()
	return found(r.d.customers, id), nil
}

func (r *memRepo) FindCustomerByUser(_ context.Context, userID int64) (*domain.Customer, error) {
	defer r.lock()()
	for _, c := range r.d.customers {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListCustomers(context.Context) ([]domain.Customer, error) {
	defer r.lock()()
	return sortedValues(r.d.customers, nil), nil
}

func (r *memRepo) UpdateCustomer(_ context.Context, c domain.Customer) error {
	defer r.lock()()
	if _, ok := r.d.customers[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.d.customers[c.ID] = c
	return nil
}

func (r *memRepo) DeleteCustomer(_ context.Context, id int64) (bool, error) {
	defer r.lock()()
	if _, ok := r.d.customers[id]; !ok {
		return false, nil
	}
	delete(r.d.customers, id)
	for cid, cart := range r.d.carts {
		if cart.CustomerID != id {
			continue
		}
		delete(r.d.carts, cid)
		for lid, line := range r.d.cartItems {
			if line.CartID == cid {
				delete(r.d.cartItems, lid)
			}
		}
	}
	for oid, o := range r.d.orders {
		if o.CustomerID != id {
			continue
		}
		delete(r.d.orders, oid)
		for iid, it := range r.d.orderItems {
			if it.OrderID == oid {
				delete(r.d.orderItems, iid)
			}
		}
	}
	return true, nil
}

func (r *memRepo) CreateSeller(_ context.Context, s *domain.Seller) error {
	defer r.lock()()
	for _, other := range r.d.sellers {
		if other.UserID == s.UserID {
			return fmt.Errorf("seller for user %d: %w", s.UserID, domain.ErrConflict)
		}
	}
	s.ID = r.d.nextID()
	r.d.sellers[s.ID] = *s
	return nil
}

func (r *memRepo) FindSeller(_ context.Context, id int64) (*domain.Seller, error) {
	defer r.lock()()
	return found(r.d.sellers, id), nil
}

func (r *memRepo) FindSellerByUser(_ context.Context, userID int64) (*domain.Seller, error) {
	defer r.lock()()
	for _, s := range r.d.sellers {
		if s.UserID == userID {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListSellers(_ context.Context, city string) ([]domain.Seller, error) {
	defer r.lock()()
	city = strings.ToLower(city)
	return sortedValues(r.d.sellers, func(s domain.Seller) bool {
		if city == "" {
			return true
		}
		if s.AddressID == nil {
			return false
		}
		a, ok := r.d.addresses[*s.AddressID]
		return ok && strings.Contains(strings.ToLower(a.City), city)
	}), nil
}

func (r *memRepo) UpdateSeller(_ context.Context, s domain.Seller) error {
	defer r.lock()()
	if _, ok := r.d.sellers[s.ID]; !ok {
		return domain.ErrNotFound
	}
	r.d.sellers[s.ID] = s
	return nil
}

func (r *memRepo) DeleteSeller(_ context.Context, id int64) (bool, error) {
	defer r.lock()()
	if _, ok := r.d.sellers[id]; !ok {
		return false, nil
	}
	delete(r.d.sellers, id)
	for pid, p := range r.d.products {
		if p.SellerID == id {
			r.d.deleteProduct(pid)
		}
	}
	return true, nil
}


package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/port"
)

const tokenIssuer = "eco-bazaar"

type AccountService struct {
	store     port.DatabaseRepository
	cache     port.CacheRepository
	secret    []byte
	tokenTTL  time.Duration
	hashCost  int
	timeNowFn func() time.Time
}

func NewAccountService(store port.DatabaseRepository, cache port.CacheRepository, secret string, tokenTTL time.Duration) *AccountService {
	return &AccountService{
		store:     store,
		cache:     cache,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		hashCost:  bcrypt.DefaultCost,
		timeNowFn: time.Now,
	}
}

type AddressInput struct {
	Street      string `json:"street"`
	PostalCode  string `json:"postal_code"`
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
}

func (in AddressInput) validate() error {
	if strings.TrimSpace(in.Street) == "" || strings.TrimSpace(in.City) == "" {
		return fmt.Errorf("%w: street and city are required", domain.ErrValidation)
	}
	return nil
}

type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Role      domain.Role
	Address   *AddressInput
}

// Profile is a customer or seller joined with its user and address.
type Profile struct {
	ID       int64
	UserID   int64
	Role     domain.Role
	Username string
	FullName string
	Email    string
	Address  *domain.Address
}

// Register creates the user, its optional address and a seller or customer
// profile in one transaction.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return Profile{}, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}
	if in.Role != domain.RoleSeller {
		in.Role = domain.RoleCustomer
	}
	if in.Address != nil {
		if err := in.Address.validate(); err != nil {
			return Profile{}, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var profile Profile

	err = s.store.WithinTx(ctx, func(tx port.Repositories) error {
		existing, err := tx.FindUserByUsername(ctx, in.Username)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("username %q: %w", in.Username, domain.ErrConflict)
		}

		user := domain.User{
			Username:     in.Username,
			Email:        in.Email,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			PasswordHash: string(hash),
			CreatedAt:    s.timeNowFn(),
		}
		if err := tx.CreateUser(ctx, &user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		var address *domain.Address
		if in.Address != nil {
			address = newAddress(user.ID, *in.Address)
			if err := tx.CreateAddress(ctx, address); err != nil {
				return fmt.Errorf("create address: %w", err)
			}
		}

		profile = Profile{
			UserID:   user.ID,
			Role:     in.Role,
			Username: user.Username,
			FullName: user.FullName(),
			Email:    user.Email,
			Address:  address,
		}

		var addressID *int64
		if address != nil {
			addressID = &address.ID
		}

		if in.Role == domain.RoleSeller {
			seller := domain.Seller{UserID: user.ID, AddressID: addressID}
			if err := tx.CreateSeller(ctx, &seller); err != nil {
				return fmt.Errorf("create seller: %w", err)
			}
			profile.ID = seller.ID
			return nil
		}

		customer := domain.Customer{UserID: user.ID, AddressID: addressID}
		if err := tx.CreateCustomer(ctx, &customer); err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		profile.ID = customer.ID
		return nil
	})
	if err != nil {
		return Profile{}, err
	}

	return profile, nil
}

// Login checks the credentials and issues a signed token.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return "", time.Time{}, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	now := s.timeNowFn()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatInt(user.ID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticate verifies the token and resolves the caller's profiles.
func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.Actor, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.timeNowFn),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("parse token: %v: %w", err, domain.ErrUnauthorized)
	}

	revoked, err := s.cache.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.Actor{}, fmt.Errorf("token revoked: %w", domain.ErrUnauthorized)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("bad subject: %w", domain.ErrUnauthorized)
	}

	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return domain.Actor{}, fmt.Errorf("user %d gone: %w", userID, domain.ErrUnauthorized)
	}

	actor := domain.Actor{
		UserID:   user.ID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		actor.ExpiresAt = claims.ExpiresAt.Time
	}

	customer, err := s.store.FindCustomerByUser(ctx, user.ID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("find customer: %w", err)
	}
	if customer != nil {
		actor.CustomerID = customer.ID
	}

	seller, err := s.store.FindSellerByUser(ctx, user.ID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("find seller: %w", err)
	}
	if seller != nil {
		actor.SellerID = seller.ID
	}

	return actor, nil
}

// Logout deny-lists the caller's token for the rest of its lifetime.
func (s *AccountService) Logout(ctx context.Context, actor domain.Actor) error {
	ttl := actor.ExpiresAt.Sub(s.timeNowFn())
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.RevokeToken(ctx, actor.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *AccountService) CreateAddress(ctx context.Context, userID int64, in AddressInput) (domain.Address, error) {
	if err := in.validate(); err != nil {
		return domain.Address{}, err
	}

	a := newAddress(userID, in)
	if err := s.store.CreateAddress(ctx, a); err != nil {
		return domain.Address{}, fmt.Errorf("create address: %w", err)
	}
	return *a, nil
}

func (s *AccountService) ListAddresses(ctx context.Context, userID int64) ([]domain.Address, error) {
	return s.store.ListAddresses(ctx, userID)
}

func (s *AccountService) ListCustomers(ctx context.Context) ([]Profile, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	out := make([]Profile, 0, len(customers))
	for _, c := range customers {
		p, err := s.profile(ctx, domain.RoleCustomer, c.ID, c.UserID, c.AddressID)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *AccountService) GetCustomer(ctx context.Context, id int64) (Profile, error) {
	c, err := s.store.FindCustomer(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("find customer: %w", err)
	}
	if c == nil {
		return Profile{}, fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	return s.profile(ctx, domain.RoleCustomer, c.ID, c.UserID, c.AddressID)
}

// SetCustomerAddress points the customer at one of its user's addresses, or
// clears it when addressID is nil.
func (s *AccountService) SetCustomerAddress(ctx context.Context, id int64, addressID *int64) (Profile, error) {
	c, err := s.store.FindCustomer(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("find customer: %w", err)
	}
	if c == nil {
		return Profile{}, fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	if err := s.requireOwnAddress(ctx, c.UserID, addressID); err != nil {
		return Profile{}, err
	}

	c.AddressID = addressID
	if err := s.store.UpdateCustomer(ctx, *c); err != nil {
		return Profile{}, fmt.Errorf("update customer: %w", err)
	}
	return s.profile(ctx, domain.RoleCustomer, c.ID, c.UserID, c.AddressID)
}

func (s *AccountService) DeleteCustomer(ctx context.Context, id int64) error {
	ok, err := s.store.DeleteCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if !ok {
		return fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *AccountService) ListSellers(ctx context.Context, city string) ([]Profile, error) {
	sellers, err := s.store.ListSellers(ctx, strings.TrimSpace(city))
	if err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}

	out := make([]Profile, 0, len(sellers))
	for _, sl := range sellers {
		p, err := s.profile(ctx, domain.RoleSeller, sl.ID, sl.UserID, sl.AddressID)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *AccountService) GetSeller(ctx context.Context, id int64) (Profile, error) {
	sl, err := s.store.FindSeller(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("find seller: %w", err)
	}
	if sl == nil {
		return Profile{}, fmt.Errorf("seller %d: %w", id, domain.ErrNotFound)
	}
	return s.profile(ctx, domain.RoleSeller, sl.ID, sl.UserID, sl.AddressID)
}

func (s *AccountService) SetSellerAddress(ctx context.Context, id int64, addressID *int64) (Profile, error) {
	sl, err := s.store.FindSeller(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("find seller: %w", err)
	}
	if sl == nil {
		return Profile{}, fmt.Errorf("seller %d: %w", id, domain.ErrNotFound)
	}
	if err := s.requireOwnAddress(ctx, sl.UserID, addressID); err != nil {
		return Profile{}, err
	}

	sl.AddressID = addressID
	if err := s.store.UpdateSeller(ctx, *sl); err != nil {
		return Profile{}, fmt.Errorf("update seller: %w", err)
	}
	return s.profile(ctx, domain.RoleSeller, sl.ID, sl.UserID, sl.AddressID)
}

func (s *AccountService) DeleteSeller(ctx context.Context, id int64) error {
	ok, err := s.store.DeleteSeller(ctx, id)
	if err != nil {
		return fmt.Errorf("delete seller: %w", err)
	}
	if !ok {
		return fmt.Errorf("seller %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *AccountService) requireOwnAddress(ctx context.Context, userID int64, addressID *int64) error {
	if addressID == nil {
		return nil
	}
	a, err := s.store.FindAddress(ctx, *addressID)
	if err != nil {
		return fmt.Errorf("find address: %w", err)
	}
	if a == nil || a.UserID != userID {
		return fmt.Errorf("address %d: %w", *addressID, domain.ErrNotFound)
	}
	return nil
}

func (s *AccountService) profile(ctx context.Context, role domain.Role, id, userID int64, addressID *int64) (Profile, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return Profile{}, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}

	p := Profile{
		ID:       id,
		UserID:   userID,
		Role:     role,
		Username: user.Username,
		FullName: user.FullName(),
		Email:    user.Email,
	}

	if addressID != nil {
		p.Address, err = s.store.FindAddress(ctx, *addressID)
		if err != nil {
			return Profile{}, fmt.Errorf("find address: %w", err)
		}
	}
	return p, nil
}

func newAddress(userID int64, in AddressInput) *domain.Address {
	return &domain.Address{
		UserID:      userID,
		Street:      strings.TrimSpace(in.Street),
		PostalCode:  strings.TrimSpace(in.PostalCode),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		City:        strings.TrimSpace(in.City),
	}
}


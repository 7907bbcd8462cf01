package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsStaff      bool
	CreatedAt    time.Time
}

func (u User) FullName() string {
	if u.FirstName == "" || u.LastName == "" {
		return ""
	}
	return u.FirstName + " " + u.LastName
}

type Address struct {
	ID          int64
	UserID      int64
	Street      string
	PostalCode  string
	PhoneNumber string
	City        string
}

type Customer struct {
	ID        int64
	UserID    int64
	AddressID *int64
}

type Seller struct {
	ID        int64
	UserID    int64
	AddressID *int64
}

// Actor is the authenticated caller. CustomerID and SellerID are zero when the
// user holds no such profile.
type Actor struct {
	UserID     int64
	Username   string
	IsStaff    bool
	CustomerID int64
	SellerID   int64
	TokenID    string
	ExpiresAt  time.Time
}

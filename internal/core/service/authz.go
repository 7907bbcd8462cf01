package service

import "github.com/rl1809/eco-bazaar/internal/core/domain"

type ResourceKind int

const (
	ResourceProfile ResourceKind = iota + 1
	ResourceCart
	ResourceOrder
	ResourceProduct
)

// Resource names the owner of something an actor wants to touch. Only the
// owner field matching Kind is consulted.
type Resource struct {
	Kind       ResourceKind
	UserID     int64
	CustomerID int64
	SellerID   int64
}

// CanAccess is the single authorization predicate evaluated by the transport
// layer before it invokes a service operation. Staff may access everything.
func CanAccess(actor domain.Actor, r Resource) bool {
	if actor.UserID == 0 {
		return false
	}
	if actor.IsStaff {
		return true
	}

	switch r.Kind {
	case ResourceProfile:
		return r.UserID != 0 && r.UserID == actor.UserID
	case ResourceCart, ResourceOrder:
		return r.CustomerID != 0 && r.CustomerID == actor.CustomerID
	case ResourceProduct:
		return r.SellerID != 0 && r.SellerID == actor.SellerID
	default:
		return false
	}
}

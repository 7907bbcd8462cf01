package service

import (
	"testing"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

func TestCanAccess(t *testing.T) {
	customer := domain.Actor{UserID: 1, CustomerID: 10}
	seller := domain.Actor{UserID: 2, SellerID: 20}
	staff := domain.Actor{UserID: 3, IsStaff: true}

	tests := []struct {
		name  string
		actor domain.Actor
		res   Resource
		want  bool
	}{
		{"anonymous", domain.Actor{}, Resource{Kind: ResourceProfile, UserID: 0}, false},
		{"own profile", customer, Resource{Kind: ResourceProfile, UserID: 1}, true},
		{"foreign profile", customer, Resource{Kind: ResourceProfile, UserID: 2}, false},
		{"own cart", customer, Resource{Kind: ResourceCart, CustomerID: 10}, true},
		{"foreign cart", customer, Resource{Kind: ResourceCart, CustomerID: 11}, false},
		{"seller has no cart", seller, Resource{Kind: ResourceCart, CustomerID: 0}, false},
		{"own order", customer, Resource{Kind: ResourceOrder, CustomerID: 10}, true},
		{"own product", seller, Resource{Kind: ResourceProduct, SellerID: 20}, true},
		{"foreign product", seller, Resource{Kind: ResourceProduct, SellerID: 21}, false},
		{"customer edits product", customer, Resource{Kind: ResourceProduct, SellerID: 20}, false},
		{"staff", staff, Resource{Kind: ResourceOrder, CustomerID: 10}, true},
		{"unknown kind", customer, Resource{UserID: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.actor, tt.res); got != tt.want {
				t.Errorf("CanAccess(%+v, %+v) = %v, want %v", tt.actor, tt.res, got, tt.want)
			}
		})
	}
}

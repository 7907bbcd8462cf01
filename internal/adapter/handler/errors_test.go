package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		code    codes.Code
		known   bool
		message string
	}{
		{fmt.Errorf("product 1: %w", domain.ErrOutOfStock), http.StatusConflict, codes.FailedPrecondition, true, "out of stock"},
		{domain.ErrEmptyCart, http.StatusBadRequest, codes.FailedPrecondition, true, "cart is empty"},
		{fmt.Errorf("order 7: %w", domain.ErrNotFound), http.StatusNotFound, codes.NotFound, true, "not found"},
		{fmt.Errorf("%w: quantity must be positive", domain.ErrValidation), http.StatusBadRequest, codes.InvalidArgument, true, "validation failed: quantity must be positive"},
		{domain.ErrDuplicateRequest, http.StatusConflict, codes.AlreadyExists, true, "duplicate request"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, codes.Unauthenticated, true, "unauthorized"},
		{domain.ErrForbidden, http.StatusForbidden, codes.PermissionDenied, true, "forbidden"},
		{domain.ErrConflict, http.StatusConflict, codes.AlreadyExists, true, "conflict"},
		{errors.New("connection refused"), http.StatusInternalServerError, codes.Internal, false, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			m, known := classify(tt.err)
			if known != tt.known || m.status != tt.status || m.code != tt.code || m.message != tt.message {
				t.Errorf("classify(%v) = %+v known=%v", tt.err, m, known)
			}
		})
	}
}

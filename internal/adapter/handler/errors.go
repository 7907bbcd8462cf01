package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

type errorMapping struct {
	target  error
	status  int
	code    codes.Code
	message string
}

// checked in order; the first sentinel the error wraps wins
var errorMappings = []errorMapping{
	{domain.ErrOutOfStock, http.StatusConflict, codes.FailedPrecondition, "out of stock"},
	{domain.ErrEmptyCart, http.StatusBadRequest, codes.FailedPrecondition, "cart is empty"},
	{domain.ErrNotFound, http.StatusNotFound, codes.NotFound, "not found"},
	{domain.ErrValidation, http.StatusBadRequest, codes.InvalidArgument, ""},
	{domain.ErrDuplicateRequest, http.StatusConflict, codes.AlreadyExists, "duplicate request"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, codes.Unauthenticated, "unauthorized"},
	{domain.ErrForbidden, http.StatusForbidden, codes.PermissionDenied, "forbidden"},
	{domain.ErrConflict, http.StatusConflict, codes.AlreadyExists, "conflict"},
}

// classify returns the transport mapping of err. An empty message means the
// error text is safe to show, as for validation failures.
func classify(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.message == "" {
				m.message = err.Error()
			}
			return m, true
		}
	}
	return errorMapping{status: http.StatusInternalServerError, code: codes.Internal, message: "internal error"}, false
}

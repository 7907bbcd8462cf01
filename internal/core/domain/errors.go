package domain

import "errors"

var (
	ErrOutOfStock       = errors.New("out of stock")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

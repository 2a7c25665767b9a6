package domain

import "errors"

var (
	// ErrInvalidPricing marks a pricing configuration that violates its type's invariants.
	ErrInvalidPricing = errors.New("invalid pricing")
	// ErrInvalidInput marks catalog or booking data that fails structural validation.
	ErrInvalidInput = errors.New("invalid input")
)

package order

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidLines      = errors.New("invalid checkout items")
	ErrPersistence       = errors.New("order storage failure")
)

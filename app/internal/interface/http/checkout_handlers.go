package http

import (
	"errors"
	"net/http"
	"strings"

	domorder "example.com/storefront/app/internal/domain/order"
	domuser "example.com/storefront/app/internal/domain/user"
	checkoutuc "example.com/storefront/app/internal/usecase/checkout"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

var errInvalidIdempotencyKey = errors.New("invalid Idempotency-Key header")

type shippingRequest struct {
	FullName     string `json:"full_name" validate:"required,max=255"`
	Phone        string `json:"phone" validate:"required,max=32"`
	AddressLine1 string `json:"address_line1" validate:"required,max=255"`
	City         string `json:"city" validate:"required,max=128"`
	Notes        string `json:"notes" validate:"max=1000"`
}

func (s shippingRequest) toDomain() domorder.ShippingAddress {
	return domorder.ShippingAddress{
		FullName:     strings.TrimSpace(s.FullName),
		Phone:        strings.TrimSpace(s.Phone),
		AddressLine1: strings.TrimSpace(s.AddressLine1),
		City:         strings.TrimSpace(s.City),
		Notes:        strings.TrimSpace(s.Notes),
	}
}

type checkoutItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,min=1,max=99"`
}

type guestCheckoutRequest struct {
	Shipping shippingRequest       `json:"shipping"`
	Items    []checkoutItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type checkoutRequest struct {
	Shipping shippingRequest `json:"shipping"`
}

func (a *API) handleGuestCheckout(w http.ResponseWriter, r *http.Request) {
	key, ok := idempotencyKey(r)
	if !ok {
		respondError(w, http.StatusBadRequest, errInvalidIdempotencyKey)
		return
	}

	var req guestCheckoutRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	lines := make([]checkoutuc.LineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, checkoutuc.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	res, err := a.checkoutSvc.CheckoutItems(r.Context(), nil, req.Shipping.toDomain(), lines, key)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeCheckoutResult(w, res)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	user := getAuthUser(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, domuser.ErrUnauthorized)
		return
	}

	key, ok := idempotencyKey(r)
	if !ok {
		respondError(w, http.StatusBadRequest, errInvalidIdempotencyKey)
		return
	}

	var req checkoutRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	res, err := a.checkoutSvc.CheckoutCart(r.Context(), user.UserID, req.Shipping.toDomain(), key)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeCheckoutResult(w, res)
}

// A replayed checkout answers 200 with the order the key first produced.
func writeCheckoutResult(w http.ResponseWriter, res *checkoutuc.Result) {
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, mapOrder(res.Order))
}

func idempotencyKey(r *http.Request) (string, bool) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	return key, len(key) <= maxIdempotencyKeyLen
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domcart "example.com/storefront/app/internal/domain/cart"
	domorder "example.com/storefront/app/internal/domain/order"
	domproduct "example.com/storefront/app/internal/domain/product"
	domuser "example.com/storefront/app/internal/domain/user"
	authuc "example.com/storefront/app/internal/usecase/auth"
	cartuc "example.com/storefront/app/internal/usecase/cart"
	checkoutuc "example.com/storefront/app/internal/usecase/checkout"
	orderuc "example.com/storefront/app/internal/usecase/order"
	productuc "example.com/storefront/app/internal/usecase/product"
)

var errInternal = errors.New("internal server error")

// Metrics is the request instrumentation mounted on the router.
type Metrics interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

type API struct {
	authSvc     *authuc.Service
	cartSvc     *cartuc.Service
	checkoutSvc *checkoutuc.Service
	orderSvc    *orderuc.Service
	productSvc  *productuc.Service
	metrics     Metrics
	health      func(ctx context.Context) error
	log         *zap.Logger
	validator   *validator.Validate
}

type Dependencies struct {
	AuthService     *authuc.Service
	CartService     *cartuc.Service
	CheckoutService *checkoutuc.Service
	OrderService    *orderuc.Service
	ProductService  *productuc.Service
	Metrics         Metrics
	// Health reports whether the backing store is reachable. Optional.
	Health func(ctx context.Context) error
	Logger *zap.Logger
}

func NewAPI(deps Dependencies) *API {
	validate := validator.New()
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		authSvc:     deps.AuthService,
		cartSvc:     deps.CartService,
		checkoutSvc: deps.CheckoutService,
		orderSvc:    deps.OrderService,
		productSvc:  deps.ProductService,
		metrics:     deps.Metrics,
		health:      deps.Health,
		log:         log,
		validator:   validate,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(a.accessLog)
	r.Use(chimw.Recoverer)
	if a.metrics != nil {
		r.Use(a.metrics.Middleware)
	}
	r.Use(chimw.AllowContentType("application/json", "text/plain"))

	r.Get("/health", a.handleHealth)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", a.handleListProducts)
		r.Get("/products/{id}", a.handleGetProduct)
		r.Post("/checkout", a.handleGuestCheckout)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware)
			pr.Get("/me/cart", a.handleGetCart)
			pr.Post("/me/cart/items", a.handleAddCartItem)
			pr.Post("/me/checkout", a.handleCheckout)
			pr.Get("/me/orders", a.handleListMyOrders)
			pr.Get("/me/orders/{id}", a.handleGetMyOrder)
		})

		r.Group(func(ar chi.Router) {
			ar.Use(a.authMiddleware)
			ar.Use(a.requireStaff)

			ar.Route("/admin/orders", func(rr chi.Router) {
				rr.Get("/", a.handleListOrders)
				rr.Get("/{id}", a.handleGetOrder)
				rr.Patch("/{id}", a.handleUpdateOrderStatus)
			})
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.health(ctx); err != nil {
			a.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func parseIDParam(r *http.Request, key string) (int64, error) {
	idStr := chi.URLParam(r, key)
	return strconv.ParseInt(idStr, 10, 64)
}

func mapProduct(p *productuc.Listing) map[string]any {
	var discount map[string]any
	if p.Discount != nil {
		discount = map[string]any{
			"type":  p.Discount.Kind,
			"value": p.Discount.Value,
		}
	}
	return map[string]any{
		"id":               p.ID,
		"name":             p.Name,
		"description":      p.Description,
		"price_cents":      p.PriceCents,
		"unit_price_cents": p.UnitPriceCents,
		"discount":         discount,
		"stock":            p.Stock,
		"category_id":      p.CategoryID,
	}
}

func mapCart(cart *domcart.Cart) map[string]any {
	items := make([]map[string]any, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, map[string]any{
			"product_id":       item.ProductID,
			"quantity":         item.Quantity,
			"name":             item.ProductName,
			"unit_price_cents": item.UnitPriceCents,
			"line_total_cents": item.LineTotalCents,
		})
	}
	return map[string]any{
		"user_id":        cart.UserID,
		"items":          items,
		"subtotal_cents": cart.SubtotalCents,
	}
}

func mapOrder(o *domorder.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]any{
			"product_id":       item.ProductID,
			"name":             item.Name,
			"unit_price_cents": item.UnitPriceCents,
			"quantity":         item.Quantity,
			"line_total_cents": item.LineTotalCents,
		})
	}

	return map[string]any{
		"id":             o.ID,
		"reference":      o.Reference,
		"user_id":        o.UserID,
		"status":         o.Status,
		"currency":       o.Currency,
		"subtotal_cents": o.SubtotalCents,
		"discount_cents": o.DiscountCents,
		"shipping_cents": o.ShippingCents,
		"total_cents":    o.TotalCents,
		"shipping": map[string]any{
			"full_name":     o.Shipping.FullName,
			"phone":         o.Shipping.Phone,
			"address_line1": o.Shipping.AddressLine1,
			"city":          o.Shipping.City,
			"notes":         o.Shipping.Notes,
		},
		"payment": map[string]any{
			"method":       o.Payment.Method,
			"status":       o.Payment.Status,
			"amount_cents": o.Payment.AmountCents,
		},
		"created_at": o.CreatedAt,
		"items":      items,
	}
}

func mapOrders(orders []*domorder.Order) []map[string]any {
	resp := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, mapOrder(o))
	}
	return resp
}

// handleDomainError maps sentinel errors to a status code. Anything it does not
// recognize is logged and answered with a generic 500 body.
func (a *API) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domproduct.ErrProductNotFound),
		errors.Is(err, domorder.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, domuser.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domuser.ErrForbidden):
		respondError(w, http.StatusForbidden, err)
	case errors.Is(err, domorder.ErrInvalidLines),
		errors.Is(err, domcart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, checkoutuc.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, domproduct.ErrOutOfStock),
		errors.Is(err, domorder.ErrEmptyCart),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domorder.ErrInvalidStatus),
		errors.Is(err, checkoutuc.ErrIdempotencyKeyReused):
		respondError(w, http.StatusUnprocessableEntity, err)
	default:
		a.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, errInternal)
	}
}

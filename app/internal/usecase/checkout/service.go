package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domcart "example.com/storefront/app/internal/domain/cart"
	domorder "example.com/storefront/app/internal/domain/order"
	domproduct "example.com/storefront/app/internal/domain/product"
	"example.com/storefront/app/internal/domain/uow"
)

const (
	MaxLines    = 100
	MaxQuantity = 99
)

var (
	ErrCheckoutInProgress   = errors.New("checkout with this idempotency key is in progress")
	ErrIdempotencyKeyReused = errors.New("idempotency key was used with a different request")
)

type CartRepository interface {
	ListItems(ctx context.Context, userID int64) ([]domcart.Item, error)
}

type ProductRepository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*domproduct.Product, error)
}

type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*domorder.Order, error)
}

// KeyRecord is what an earlier request left under an idempotency key.
type KeyRecord struct {
	// OrderID is 0 while that checkout is still running.
	OrderID     int64
	Fingerprint string
}

// IdempotencyStore remembers which order a client-supplied key produced.
type IdempotencyStore interface {
	// Claim reserves key for a request with the given fingerprint. When the
	// key is already taken it returns the earlier request's record.
	Claim(ctx context.Context, key, fingerprint string) (prev KeyRecord, claimed bool, err error)
	Complete(ctx context.Context, key, fingerprint string, orderID int64) error
	Release(ctx context.Context, key string) error
}

type Metrics interface {
	CheckoutFinished(source string, result string)
}

type Options struct {
	Currency    string
	Idempotency IdempotencyStore
	Metrics     Metrics
	Logger      *zap.Logger
}

type Service struct {
	cartRepo    CartRepository
	orderRepo   OrderRepository
	assembler   *Assembler
	coordinator *Coordinator
	idem        IdempotencyStore
	metrics     Metrics
	log         *zap.Logger
}

func NewService(cartRepo CartRepository, productRepo ProductRepository, orderRepo OrderRepository, tx uow.Manager, opts Options) *Service {
	s := &Service{
		cartRepo:    cartRepo,
		orderRepo:   orderRepo,
		assembler:   NewAssembler(productRepo),
		coordinator: NewCoordinator(tx, opts.Currency),
		idem:        opts.Idempotency,
		metrics:     opts.Metrics,
		log:         opts.Logger,
	}
	if s.idem == nil {
		s.idem = noopIdempotency{}
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

type Result struct {
	Order    *domorder.Order
	Replayed bool
}

// CheckoutCart converts the user's cart into an order. The cart is emptied in
// the same transaction that reserves stock.
func (s *Service) CheckoutCart(ctx context.Context, userID int64, shipping domorder.ShippingAddress, idemKey string) (*Result, error) {
	key := scopedKey(&userID, idemKey)
	fp := fingerprint(SourceCart, shipping, nil)
	res, err := s.once(ctx, key, fp, func() (*domorder.Order, error) {
		items, err := s.cartRepo.ListItems(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, domorder.ErrEmptyCart
		}

		lines := make([]LineRequest, 0, len(items))
		for _, item := range items {
			if item.Quantity <= 0 {
				return nil, domorder.ErrInvalidLines
			}
			lines = append(lines, LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		return s.checkout(ctx, &userID, shipping, lines, SourceCart)
	})
	s.record(SourceCart, res, err)
	return res, err
}

// CheckoutItems checks out an explicit item list. A nil userID is a guest
// order.
func (s *Service) CheckoutItems(ctx context.Context, userID *int64, shipping domorder.ShippingAddress, lines []LineRequest, idemKey string) (*Result, error) {
	key := scopedKey(userID, idemKey)
	fp := fingerprint(SourceItems, shipping, lines)
	res, err := s.once(ctx, key, fp, func() (*domorder.Order, error) {
		if err := validateLines(lines); err != nil {
			return nil, err
		}
		return s.checkout(ctx, userID, shipping, lines, SourceItems)
	})
	s.record(SourceItems, res, err)
	return res, err
}

func (s *Service) checkout(ctx context.Context, userID *int64, shipping domorder.ShippingAddress, lines []LineRequest, source Source) (*domorder.Order, error) {
	draft, err := s.assembler.Assemble(ctx, userID, shipping, lines, source)
	if err != nil {
		return nil, err
	}
	o, err := s.coordinator.Commit(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.Int64("order_id", o.ID),
		zap.String("reference", o.Reference),
		zap.String("source", string(source)),
		zap.Int("lines", len(o.Items)),
		zap.Int64("total_cents", o.TotalCents),
	)
	return o, nil
}

// once runs a checkout at most once per key. A key seen with a different
// fingerprint is refused, so one client never receives another's order.
func (s *Service) once(ctx context.Context, key, fp string, run func() (*domorder.Order, error)) (*Result, error) {
	if key == "" {
		o, err := run()
		if err != nil {
			return nil, err
		}
		return &Result{Order: o}, nil
	}

	prev, claimed, err := s.idem.Claim(ctx, key, fp)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if prev.Fingerprint != fp {
			return nil, ErrIdempotencyKeyReused
		}
		if prev.OrderID == 0 {
			return nil, ErrCheckoutInProgress
		}
		o, err := s.orderRepo.GetByID(ctx, prev.OrderID)
		if err != nil {
			return nil, err
		}
		return &Result{Order: o, Replayed: true}, nil
	}

	o, err := run()
	if err != nil {
		if rerr := s.idem.Release(ctx, key); rerr != nil {
			s.log.Warn("release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
		return nil, err
	}
	if err := s.idem.Complete(ctx, key, fp, o.ID); err != nil {
		s.log.Warn("complete idempotency key", zap.String("key", key), zap.Int64("order_id", o.ID), zap.Error(err))
	}
	return &Result{Order: o}, nil
}

func (s *Service) record(source Source, res *Result, err error) {
	result := outcome(err)
	if res != nil && res.Replayed {
		result = "replayed"
	}
	s.metrics.CheckoutFinished(string(source), result)

	if err != nil && result == "error" {
		s.log.Error("checkout failed", zap.String("source", string(source)), zap.Error(err))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domproduct.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domproduct.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, domorder.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domorder.ErrInvalidLines):
		return "invalid"
	case errors.Is(err, ErrCheckoutInProgress):
		return "in_progress"
	case errors.Is(err, ErrIdempotencyKeyReused):
		return "key_reused"
	default:
		return "error"
	}
}

func validateLines(lines []LineRequest) error {
	if len(lines) == 0 || len(lines) > MaxLines {
		return domorder.ErrInvalidLines
	}
	for _, l := range lines {
		if l.ProductID <= 0 || l.Quantity < 1 || l.Quantity > MaxQuantity {
			return domorder.ErrInvalidLines
		}
	}
	return nil
}

func scopedKey(userID *int64, key string) string {
	if key == "" {
		return ""
	}
	if userID == nil {
		return "guest:" + key
	}
	return fmt.Sprintf("user:%d:%s", *userID, key)
}

// fingerprint hashes everything a checkout request carries besides its key.
func fingerprint(source Source, shipping domorder.ShippingAddress, lines []LineRequest) string {
	payload, _ := json.Marshal(struct {
		Source   Source
		Shipping domorder.ShippingAddress
		Lines    []LineRequest
	}{source, shipping, lines})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type noopIdempotency struct{}

func (noopIdempotency) Claim(context.Context, string, string) (KeyRecord, bool, error) {
	return KeyRecord{}, true, nil
}

func (noopIdempotency) Complete(context.Context, string, string, int64) error { return nil }
func (noopIdempotency) Release(context.Context, string) error { return nil }

type noopMetrics struct{}

func (noopMetrics) CheckoutFinished(string, string) {}

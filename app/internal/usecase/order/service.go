package order

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domorder "example.com/storefront/app/internal/domain/order"
	domoutbox "example.com/storefront/app/internal/domain/outbox"
	"example.com/storefront/app/internal/domain/uow"
)

type Metrics interface {
	TransitionApplied(from, to string)
	StockReleaseSkipped()
}

type Service struct {
	repo    domorder.Repository
	tx      uow.Manager
	metrics Metrics
	log     *zap.Logger
}

func NewService(repo domorder.Repository, tx uow.Manager, metrics Metrics, log *zap.Logger) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, tx: tx, metrics: metrics, log: log}
}

func (s *Service) List(ctx context.Context) ([]*domorder.Order, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*domorder.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domorder.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// GetForUser hides orders owned by someone else behind ErrOrderNotFound.
func (s *Service) GetForUser(ctx context.Context, userID, id int64) (*domorder.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, domorder.ErrOrderNotFound
	}
	return o, nil
}

// UpdateStatus moves an order to status and applies the compensating actions
// of that transition in the same transaction. Cancelling puts every line back
// into stock; lines whose product has been deleted are skipped.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domorder.Status) (*domorder.Order, error) {
	if !status.IsValid() {
		return nil, domorder.ErrInvalidStatus
	}

	var (
		plan    domorder.Transition
		skipped []domorder.OrderItem
	)
	err := s.tx.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		skipped = skipped[:0]
		o, err := sc.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		plan, err = domorder.PlanTransition(o.Status, status)
		if err != nil {
			return err
		}

		if plan.ReleaseStock {
			for _, item := range o.Items {
				released, err := sc.Ledger().Release(ctx, item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				if !released {
					skipped = append(skipped, item)
				}
			}
		}
		if plan.PaymentStatus != "" {
			if err := sc.Orders().UpdatePaymentStatus(ctx, o.ID, plan.PaymentStatus); err != nil {
				return err
			}
		}
		if err := sc.Orders().UpdateStatus(ctx, o.ID, plan.To); err != nil {
			return err
		}

		event, err := statusChangedEvent(o, plan)
		if err != nil {
			return err
		}
		return sc.Outbox().Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	for _, item := range skipped {
		s.metrics.StockReleaseSkipped()
		s.log.Warn("stock not restored, product no longer exists",
			zap.Int64("order_id", id),
			zap.Int64("product_id", item.ProductID),
			zap.Int64("quantity", item.Quantity),
		)
	}
	s.metrics.TransitionApplied(string(plan.From), string(plan.To))
	s.log.Info("order status changed",
		zap.Int64("order_id", id),
		zap.String("from", string(plan.From)),
		zap.String("to", string(plan.To)),
	)
	return s.repo.GetByID(ctx, id)
}

func statusChangedEvent(o *domorder.Order, plan domorder.Transition) (domoutbox.Event, error) {
	data, err := json.Marshal(domoutbox.OrderStatusChanged{
		OrderID:       o.ID,
		Reference:     o.Reference,
		From:          string(plan.From),
		To:            string(plan.To),
		PaymentStatus: string(plan.PaymentStatus),
	})
	if err != nil {
		return domoutbox.Event{}, err
	}
	return domoutbox.Event{
		EventID: uuid.NewString(),
		Topic:   domoutbox.TopicOrderStatusChanged,
		Key:     o.Reference,
		Payload: data,
	}, nil
}

type noopMetrics struct{}

func (noopMetrics) TransitionApplied(string, string) {}
func (noopMetrics) StockReleaseSkipped() {}

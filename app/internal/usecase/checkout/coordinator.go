package checkout

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	domorder "example.com/storefront/app/internal/domain/order"
	domoutbox "example.com/storefront/app/internal/domain/outbox"
	"example.com/storefront/app/internal/domain/pricing"
	"example.com/storefront/app/internal/domain/uow"
)

// Coordinator turns a Draft into a persisted order in one transaction. It is
// the only code that reserves stock.
type Coordinator struct {
	tx       uow.Manager
	currency string
	newRef   func() string
}

func NewCoordinator(tx uow.Manager, currency string) *Coordinator {
	return &Coordinator{
		tx:       tx,
		currency: currency,
		newRef:   uuid.NewString,
	}
}

func (c *Coordinator) Commit(ctx context.Context, d *Draft) (*domorder.Order, error) {
	var created *domorder.Order

	err := c.tx.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		for _, l := range d.Lines {
			if err := sc.Ledger().Reserve(ctx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}

		st, err := sc.Settings().Get(ctx)
		if err != nil {
			return err
		}
		shipping := st.ShippingFeeCents
		if shipping < 0 {
			shipping = 0
		}
		discount := pricing.OrderDiscount(d.SubtotalCents, st.DiscountPercent)
		total := pricing.OrderTotal(d.SubtotalCents, discount, shipping)

		o := &domorder.Order{
			Reference:     c.newRef(),
			UserID:        d.UserID,
			Currency:      c.currency,
			SubtotalCents: d.SubtotalCents,
			DiscountCents: discount,
			ShippingCents: shipping,
			TotalCents:    total,
			Shipping:      d.Shipping,
			Status:        domorder.StatusPending,
			Payment: domorder.Payment{
				Method:      domorder.PaymentCOD,
				Status:      domorder.PaymentPending,
				AmountCents: total,
			},
			Items: make([]domorder.OrderItem, 0, len(d.Lines)),
		}
		for _, l := range d.Lines {
			o.Items = append(o.Items, domorder.OrderItem{
				ProductID:      l.ProductID,
				Name:           l.Name,
				UnitPriceCents: l.UnitPriceCents,
				Quantity:       l.Quantity,
				LineTotalCents: l.LineTotalCents,
			})
		}
		if err := sc.Orders().Create(ctx, o); err != nil {
			return err
		}

		if d.Source == SourceCart && d.UserID != nil {
			if err := sc.Carts().Clear(ctx, *d.UserID); err != nil {
				return err
			}
		}

		event, err := orderCreatedEvent(o)
		if err != nil {
			return err
		}
		if err := sc.Outbox().Append(ctx, event); err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func orderCreatedEvent(o *domorder.Order) (domoutbox.Event, error) {
	payload := domoutbox.OrderCreated{
		OrderID:    o.ID,
		Reference:  o.Reference,
		UserID:     o.UserID,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
		Lines:      make([]domoutbox.Line, 0, len(o.Items)),
		CreatedAt:  o.CreatedAt,
	}
	for _, item := range o.Items {
		payload.Lines = append(payload.Lines, domoutbox.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return domoutbox.Event{}, err
	}
	return domoutbox.Event{
		EventID: uuid.NewString(),
		Topic:   domoutbox.TopicOrderCreated,
		Key:     o.Reference,
		Payload: data,
	}, nil
}

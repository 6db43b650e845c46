package order

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCompleted, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCanceled},
	StatusPaid:    {StatusShipped, StatusCanceled},
	StatusShipped: {StatusCompleted, StatusCanceled},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition describes the side effects of moving an order between two
// states.
type Transition struct {
	From Status
	To   Status
	// ReleaseStock puts every line quantity back into inventory.
	ReleaseStock bool
	// PaymentStatus is the new payment status, empty when unchanged.
	PaymentStatus PaymentStatus
}

func PlanTransition(from, to Status) (Transition, error) {
	if !to.IsValid() {
		return Transition{}, ErrInvalidStatus
	}
	if from.IsTerminal() || !from.CanTransitionTo(to) {
		return Transition{}, ErrInvalidTransition
	}

	t := Transition{From: from, To: to}
	switch to {
	case StatusCanceled:
		t.ReleaseStock = true
		t.PaymentStatus = PaymentFailed
	case StatusPaid:
		t.PaymentStatus = PaymentPaid
	}
	return t, nil
}

package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-process gateway for development and tests. Orders are
// never charged; signatures are computed with Sign and the fake's secret.
type Fake struct {
	secret string

	mu     sync.Mutex
	orders map[string]Order
}

// NewFake creates a fake gateway keyed with secret.
func NewFake(secret string) *Fake {
	return &Fake{secret: secret, orders: make(map[string]Order)}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if _, err := ToMinorUnits(req.Amount); err != nil {
		return Order{}, err
	}
	o := Order{
		ID:       "order_" + uuid.NewString(),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		KeyID:    "fake",
	}
	f.mu.Lock()
	f.orders[o.ID] = o
	f.mu.Unlock()
	return o, nil
}

func (f *Fake) VerifySignature(orderID, paymentID, signature string) error {
	return verify(f.secret, orderID, paymentID, signature)
}

// Pay simulates a successful checkout and returns the signature the
// browser would post back.
func (f *Fake) Pay(orderID, paymentID string) string {
	return Sign(f.secret, orderID, paymentID)
}

// Orders returns the orders created so far.
func (f *Fake) Orders() []Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out
}

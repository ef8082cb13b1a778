package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

// Razorpay creates orders through the Razorpay REST API.
type Razorpay struct {
	client *razorpay.Client
	keyID  string
	secret string
}

// NewRazorpay creates a gateway for the given API key pair.
func NewRazorpay(keyID, keySecret string) *Razorpay {
	return &Razorpay{
		client: razorpay.NewClient(keyID, keySecret),
		keyID:  keyID,
		secret: keySecret,
	}
}

func (r *Razorpay) Name() string { return "razorpay" }

func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	paise, err := ToMinorUnits(req.Amount)
	if err != nil {
		return Order{}, err
	}

	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   paise,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay create order: %w", err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return Order{}, fmt.Errorf("razorpay create order: response has no id")
	}
	status, _ := body["status"].(string)

	return Order{
		ID:       id,
		Amount:   decimal.NewFromInt(paise).Shift(-2),
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   status,
		KeyID:    r.keyID,
	}, nil
}

func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) error {
	return verify(r.secret, orderID, paymentID, signature)
}

// Package payment creates online payment orders and verifies the
// checkout signature returned by the gateway.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidSignature is returned when a checkout signature does not verify.
	ErrInvalidSignature = errors.New("payment signature is invalid")

	// ErrInvalidAmount is returned for zero or negative order amounts.
	ErrInvalidAmount = errors.New("order amount must be positive")
)

// OrderRequest describes an order to create.
type OrderRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is an order created at the gateway.
type Order struct {
	ID       string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt,omitempty"`
	Status   string          `json:"status,omitempty"`
	KeyID    string          `json:"key_id,omitempty"`
}

// Gateway is an online payment provider.
type Gateway interface {
	// CreateOrder registers an order the browser checkout will pay.
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)

	// VerifySignature checks the signature returned by checkout for the
	// given order and payment.
	VerifySignature(orderID, paymentID, signature string) error

	// Name identifies the gateway in logs and metrics.
	Name() string
}

// Sign computes the checkout signature: hex HMAC-SHA256 of
// "<orderID>|<paymentID>" keyed with the API secret.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// verify checks a checkout signature in constant time. Hex case and
// surrounding whitespace from the browser are ignored.
func verify(secret, orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrInvalidSignature
	}
	want := Sign(secret, orderID, paymentID)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrInvalidSignature
	}
	return nil
}

// ToMinorUnits converts an amount to the smallest currency unit (paise).
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	minor := amount.Mul(decimal.NewFromInt(100))
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than two decimal places", amount)
	}
	return minor.IntPart(), nil
}

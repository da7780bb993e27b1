package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentRequest is a validated checkout request: a canonical phone number
// and a positive amount in whole shillings.
type PaymentRequest struct {
	PhoneNumber string
	Amount      decimal.Decimal
}

// NewPaymentRequest normalizes the raw form values into a PaymentRequest.
func NewPaymentRequest(rawPhone, rawAmount string) (*PaymentRequest, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	req := &PaymentRequest{PhoneNumber: phone, Amount: amount}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks the amount is positive and has no fractional part; M-Pesa
// Express only settles whole shillings.
func (r *PaymentRequest) Validate() error {
	if !r.Amount.IsPositive() || !r.Amount.Equal(r.Amount.Truncate(0)) {
		return &FormatError{Field: "amount", Err: ErrInvalidAmount}
	}
	if !canonicalPhone.MatchString(r.PhoneNumber) {
		return &FormatError{Field: "phone_number", Err: ErrInvalidPhone}
	}
	return nil
}

// ParseAmount reads a decimal amount from user input.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &FormatError{Field: "amount", Err: ErrInvalidAmount}
	}
	return amount, nil
}

// Gateway is the push-payment API the checkout flow talks to.
type Gateway interface {
	// InitiatePush sends an STK prompt to phone. It never fails: transport
	// and auth problems come back as a PushDeclined.
	InitiatePush(ctx context.Context, phone string, amount decimal.Decimal) PushResult
	// QueryStatus asks the provider for the outcome of a previous push.
	QueryStatus(ctx context.Context, checkoutRequestID string) (map[string]any, error)
}

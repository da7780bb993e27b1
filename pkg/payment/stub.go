package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const stubPrefix = "ws_CO_stub_"

// StubGateway is an offline Gateway for local development. Every push is
// accepted and every query reports the prompt as still pending.
type StubGateway struct{}

func (s *StubGateway) InitiatePush(ctx context.Context, phone string, amount decimal.Decimal) PushResult {
	ref := fmt.Sprintf("%s%d", stubPrefix, time.Now().UnixNano())
	return PushAccepted{
		CheckoutRequestID: ref,
		MerchantRequestID: "stub-" + phone,
		CustomerMessage:   "Success. Request accepted for processing",
	}
}

func (s *StubGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (map[string]any, error) {
	if !strings.HasPrefix(checkoutRequestID, stubPrefix) {
		return map[string]any{"error": "unknown checkout request"}, ErrMissingCheckoutID
	}
	return map[string]any{
		"ResponseCode":        "0",
		"CheckoutRequestID":   checkoutRequestID,
		"ResultCode":          "4999",
		"ResultDesc":          "The transaction is still under processing",
		"ResponseDescription": "The service request has been accepted successfully",
	}, nil
}

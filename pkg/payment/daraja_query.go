package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type stkQueryReq struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// QueryStatus asks Daraja for the current state of an STK push. It is a pure
// read. On failure the returned map is {"error": cause} so it can be handed
// to the browser as is.
func (d *DarajaClient) QueryStatus(ctx context.Context, checkoutRequestID string) (map[string]any, error) {
	checkoutRequestID = strings.TrimSpace(checkoutRequestID)
	if checkoutRequestID == "" {
		return map[string]any{"error": ErrMissingCheckoutID.Error()}, ErrMissingCheckoutID
	}
	token, err := d.AccessToken(ctx)
	if err != nil {
		return map[string]any{"error": err.Error()}, err
	}
	timestamp, password := d.password()
	payload := stkQueryReq{
		BusinessShortCode: d.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}
	status, body, err := d.postJSON(ctx, "stkquery", queryPath, token, payload)
	if err != nil {
		d.logger.Error().Err(err).Str("checkout_request_id", checkoutRequestID).Msg("stk query failed")
		return map[string]any{"error": err.Error()}, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		err = &NetworkError{Op: "stkquery", Err: fmt.Errorf("decode response (status %d): %w", status, err)}
		return map[string]any{"error": err.Error()}, err
	}
	d.logger.Debug().
		Str("checkout_request_id", checkoutRequestID).
		Interface("result_code", out["ResultCode"]).
		Msg("stk query result")
	return out, nil
}

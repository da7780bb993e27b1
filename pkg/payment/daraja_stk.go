package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CodeWithProBrian/Mpesa/internal/metrics"

	"github.com/shopspring/decimal"
)

// TransactionTypePayBill is the only transaction type this integration sends.
const TransactionTypePayBill = "CustomerPayBillOnline"

type stkPushReq struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResp struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	// Set instead of the fields above when Daraja rejects the request.
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// InitiatePush sends an STK push for amount to phone. Whatever happens the
// caller gets a PushResult back; failures to reach the provider are
// reported as a PushDeclined with code "1".
func (d *DarajaClient) InitiatePush(ctx context.Context, phone string, amount decimal.Decimal) PushResult {
	token, err := d.AccessToken(ctx)
	if err != nil {
		return d.declined(err)
	}
	timestamp, password := d.password()
	payload := stkPushReq{
		BusinessShortCode: d.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   TransactionTypePayBill,
		Amount:            amount.String(),
		PartyA:            phone,
		PartyB:            d.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       d.cfg.CallbackURL,
		AccountReference:  d.cfg.AccountReference,
		TransactionDesc:   d.cfg.TransactionDesc,
	}
	status, body, err := d.postJSON(ctx, "stkpush", stkPath, token, payload)
	if err != nil {
		return d.declined(err)
	}

	var raw map[string]any
	var out stkPushResp
	if err := json.Unmarshal(body, &raw); err != nil {
		return d.declined(&NetworkError{Op: "stkpush", Err: fmt.Errorf("decode response (status %d): %w", status, err)})
	}
	_ = json.Unmarshal(body, &out)

	if out.ResponseCode == ResponseCodeAccepted && status < 300 {
		metrics.IncSTKPush("accepted")
		d.logger.Info().
			Str("checkout_request_id", out.CheckoutRequestID).
			Str("merchant_request_id", out.MerchantRequestID).
			Msg("stk push accepted")
		return PushAccepted{
			CheckoutRequestID: out.CheckoutRequestID,
			MerchantRequestID: out.MerchantRequestID,
			CustomerMessage:   out.CustomerMessage,
			Raw:               raw,
		}
	}

	code, desc := out.ResponseCode, out.ResponseDescription
	if code == "" || code == ResponseCodeAccepted {
		code = out.ErrorCode
	}
	if desc == "" {
		desc = out.ErrorMessage
	}
	metrics.IncSTKPush("declined")
	d.logger.Warn().
		Int("status", status).
		Str("code", code).
		Str("description", desc).
		Msg("stk push declined")
	return PushDeclined{Code: code, Description: desc, Raw: raw}
}

func (d *DarajaClient) declined(err error) PushDeclined {
	var netErr *NetworkError
	prefix := "System error"
	if errors.As(err, &netErr) {
		prefix = "Connection error"
	}
	metrics.IncSTKPush("error")
	d.logger.Error().Err(err).Msg("failed to initiate stk push")
	return PushDeclined{
		Code:        ResponseCodeFailed,
		Description: fmt.Sprintf("%s: %v", prefix, err),
		Cause:       err,
	}
}

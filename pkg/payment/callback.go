package payment

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ResultDescSuccess = "Payment successful"
	ResultDescFailed  = "Payment failed"
)

// CallbackItem is one {Name, Value} entry of CallbackMetadata. Value is kept
// raw because Daraja mixes numbers and strings.
type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

type stkCallbackEnvelope struct {
	Body *struct {
		StkCallback *struct {
			MerchantRequestID string          `json:"MerchantRequestID"`
			CheckoutRequestID string          `json:"CheckoutRequestID"`
			ResultCode        json.RawMessage `json:"ResultCode"`
			ResultDesc        string          `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackOutcome is the parsed result of an STK callback. The payment
// fields are only set when ResultCode is 0.
type CallbackOutcome struct {
	MerchantRequestID  string
	CheckoutRequestID  string
	ResultCode         int
	ResultDesc         string
	Amount             decimal.Decimal
	MpesaReceiptNumber string
	PhoneNumber        string
}

func (o *CallbackOutcome) Succeeded() bool { return o.ResultCode == 0 }

// CallbackReply is the acknowledgement body sent back to Daraja.
type CallbackReply struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// ParseCallback decodes an STK callback body. Every error it returns is a
// *ProtocolError.
func ParseCallback(body []byte) (*CallbackOutcome, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, protocolErrorf("invalid json: %v", err)
	}
	if env.Body == nil {
		return nil, protocolErrorf("missing key 'Body'")
	}
	cb := env.Body.StkCallback
	if cb == nil {
		return nil, protocolErrorf("missing key 'stkCallback'")
	}
	code, err := parseResultCode(cb.ResultCode)
	if err != nil {
		return nil, err
	}
	out := &CallbackOutcome{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: strings.TrimSpace(cb.CheckoutRequestID),
		ResultCode:        code,
		ResultDesc:        cb.ResultDesc,
	}
	if !out.Succeeded() {
		return out, nil
	}

	if out.CheckoutRequestID == "" {
		return nil, protocolErrorf("missing key 'CheckoutRequestID'")
	}
	if cb.CallbackMetadata == nil {
		return nil, protocolErrorf("missing key 'CallbackMetadata'")
	}
	items := cb.CallbackMetadata.Item

	rawAmount, err := findItem(items, "Amount")
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(rawString(rawAmount))
	if err != nil || !amount.IsPositive() {
		return nil, protocolErrorf("invalid Amount %s", rawAmount)
	}
	rawReceipt, err := findItem(items, "MpesaReceiptNumber")
	if err != nil {
		return nil, err
	}
	receipt := rawString(rawReceipt)
	if receipt == "" {
		return nil, protocolErrorf("empty MpesaReceiptNumber")
	}
	rawPhone, err := findItem(items, "PhoneNumber")
	if err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(rawString(rawPhone))
	if err != nil {
		return nil, protocolErrorf("invalid PhoneNumber %s", rawPhone)
	}

	out.Amount = amount
	out.MpesaReceiptNumber = receipt
	out.PhoneNumber = phone
	return out, nil
}

// parseResultCode accepts only a JSON number; Daraja never quotes it.
func parseResultCode(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, protocolErrorf("missing key 'ResultCode'")
	}
	var code int
	if err := json.Unmarshal(raw, &code); err != nil {
		return 0, protocolErrorf("invalid ResultCode %s", raw)
	}
	return code, nil
}

// findItem returns the value of the first item called name. A matching item
// without a value is an error, not a reason to look further.
func findItem(items []CallbackItem, name string) (json.RawMessage, error) {
	for _, it := range items {
		if it.Name != name {
			continue
		}
		v := bytes.TrimSpace(it.Value)
		if len(v) == 0 || string(v) == "null" {
			return nil, protocolErrorf("empty item '%s'", name)
		}
		return v, nil
	}
	return nil, protocolErrorf("missing item '%s'", name)
}

// rawString returns a JSON string's content or a literal's text.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

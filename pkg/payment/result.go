package payment

// ResponseCodeAccepted is the ResponseCode Daraja returns when it has queued
// the prompt on the payer's handset.
const ResponseCodeAccepted = "0"

// ResponseCodeFailed is used for pushes that never got a provider answer.
const ResponseCodeFailed = "1"

// PushResult is either a PushAccepted or a PushDeclined.
type PushResult interface {
	ResponseCode() string
	// Map renders the result in the provider's own response shape.
	Map() map[string]any
	isPushResult()
}

// PushAccepted means the provider took the request and will call back.
type PushAccepted struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
	Raw               map[string]any
}

func (PushAccepted) isPushResult()          {}
func (PushAccepted) ResponseCode() string { return ResponseCodeAccepted }

func (a PushAccepted) Map() map[string]any {
	if a.Raw != nil {
		return a.Raw
	}
	return map[string]any{
		"ResponseCode":      ResponseCodeAccepted,
		"CheckoutRequestID": a.CheckoutRequestID,
		"MerchantRequestID": a.MerchantRequestID,
		"CustomerMessage":   a.CustomerMessage,
	}
}

// PushDeclined covers both business rejections and failures to reach the
// provider at all.
type PushDeclined struct {
	Code        string
	Description string
	Raw         map[string]any
	// Cause is set when the provider was never reached or its answer could
	// not be read.
	Cause error
}

func (PushDeclined) isPushResult() {}

func (d PushDeclined) ResponseCode() string {
	if d.Code == "" {
		return ResponseCodeFailed
	}
	return d.Code
}

func (d PushDeclined) Map() map[string]any {
	if d.Raw != nil {
		return d.Raw
	}
	return map[string]any{
		"ResponseCode":        d.ResponseCode(),
		"ResponseDescription": d.Description,
	}
}

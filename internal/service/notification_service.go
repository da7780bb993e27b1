package service

import (
	"github.com/CodeWithProBrian/Mpesa/internal/models"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"
)

const (
	EventOutcome = "outcome"
	EventTimeout = "timeout"
)

// MsgOutcomeTimeout is sent when no outcome arrived while the page waited.
const MsgOutcomeTimeout = "No confirmation received yet. Use Check status to see the latest state."

// Publisher delivers an event to whoever watches a checkout.
type Publisher interface {
	Publish(checkoutID string, payload any)
}

// OutcomeEvent is pushed to the pending page once the callback arrives.
type OutcomeEvent struct {
	Type              string `json:"type"`
	CheckoutRequestID string `json:"checkout_request_id"`
	ResultCode        int    `json:"result_code"`
	ResultDesc        string `json:"result_desc"`
	MpesaCode         string `json:"mpesa_code,omitempty"`
}

// TimeoutEvent tells the pending page to stop waiting on the socket.
type TimeoutEvent struct {
	Type              string `json:"type"`
	CheckoutRequestID string `json:"checkout_request_id"`
	Message           string `json:"message"`
}

type NotificationService struct {
	pub Publisher
}

func NewNotificationService(pub Publisher) *NotificationService {
	return &NotificationService{pub: pub}
}

// NotifyOutcome tells watchers of the checkout how the payment ended.
func (s *NotificationService) NotifyOutcome(o *payment.CallbackOutcome) {
	if s == nil || s.pub == nil || o.CheckoutRequestID == "" {
		return
	}
	desc := payment.ResultDescFailed
	if o.Succeeded() {
		desc = payment.ResultDescSuccess
	}
	s.pub.Publish(o.CheckoutRequestID, OutcomeEvent{
		Type:              EventOutcome,
		CheckoutRequestID: o.CheckoutRequestID,
		ResultCode:        o.ResultCode,
		ResultDesc:        desc,
		MpesaCode:         o.MpesaReceiptNumber,
	})
}

// OutcomeFromTransaction describes an already recorded payment.
func OutcomeFromTransaction(t *models.Transaction) OutcomeEvent {
	return OutcomeEvent{
		Type:              EventOutcome,
		CheckoutRequestID: t.CheckoutID,
		ResultCode:        0,
		ResultDesc:        payment.ResultDescSuccess,
		MpesaCode:         t.MpesaCode,
	}
}

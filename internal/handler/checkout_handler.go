package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/CodeWithProBrian/Mpesa/internal/domain"
	"github.com/CodeWithProBrian/Mpesa/internal/service"
	"github.com/CodeWithProBrian/Mpesa/internal/session"
	"github.com/CodeWithProBrian/Mpesa/internal/web"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Checkout is the payer-facing flow the handler drives.
type Checkout interface {
	Submit(ctx context.Context, in service.SubmitInput) service.SubmitOutcome
	CheckStatus(ctx context.Context, checkoutRequestID string) (map[string]any, error)
}

type CheckoutHandler struct {
	checkout Checkout
	sessions session.Store
	logger   *zerolog.Logger
}

func NewCheckoutHandler(checkout Checkout, sessions session.Store, logger *zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, sessions: sessions, logger: logger}
}

type paymentForm struct {
	PhoneNumber string `form:"phone_number" binding:"required"`
	Amount      string `form:"amount" binding:"required"`
}

type statusRequest struct {
	CheckoutRequestID string `json:"checkout_request_id"`
}

// PaymentForm renders an empty checkout form.
func (h *CheckoutHandler) PaymentForm(c *gin.Context) {
	c.HTML(http.StatusOK, web.PaymentPage, web.PaymentView{})
}

// Submit sends the STK prompt and renders the pending page, or the form
// again with an error.
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var form paymentForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, web.PaymentPage, web.PaymentView{
			PhoneNumber:  form.PhoneNumber,
			Amount:       form.Amount,
			ErrorMessage: domain.MsgMissingFields,
		})
		return
	}

	out := h.checkout.Submit(c.Request.Context(), service.SubmitInput{
		PhoneNumber: form.PhoneNumber,
		Amount:      form.Amount,
	})
	if !out.Pending {
		c.HTML(http.StatusOK, web.PaymentPage, web.PaymentView{
			PhoneNumber:  form.PhoneNumber,
			Amount:       form.Amount,
			ErrorMessage: out.ErrorMessage,
		})
		return
	}

	if err := h.sessions.Set(c, domain.SessionCheckoutRequestID, out.CheckoutRequestID); err != nil {
		// The pending page still has the id.
		h.logger.Error().Err(err).Str("checkout_request_id", out.CheckoutRequestID).Msg("store checkout in session")
	}
	c.HTML(http.StatusOK, web.PendingPage, web.PendingView{
		CheckoutRequestID: out.CheckoutRequestID,
		CustomerMessage:   out.CustomerMessage,
	})
}

// Status queries the provider for a checkout and returns the raw result.
// The id comes from the JSON body or, failing that, from the session.
func (h *CheckoutHandler) Status(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Invalid request method"})
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	id := req.CheckoutRequestID
	if id == "" {
		id, _ = h.sessions.Get(c, domain.SessionCheckoutRequestID)
	}

	status, err := h.checkout.CheckStatus(c.Request.Context(), id)
	if errors.Is(err, payment.ErrMissingCheckoutID) && status == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkout_request_id is required"})
		return
	}
	if status == nil && err != nil {
		status = map[string]any{"error": err.Error()}
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/CodeWithProBrian/Mpesa/internal/models"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxCallbackBody caps what we read from the provider.
const maxCallbackBody = 64 << 10

// Reconciler records STK callbacks.
type Reconciler interface {
	Reconcile(ctx context.Context, body []byte) (*payment.CallbackReply, error)
	Transaction(ctx context.Context, checkoutID string) (*models.Transaction, error)
}

type MpesaWebhookHandler struct {
	reconciler Reconciler
	logger     *zerolog.Logger
}

func NewMpesaWebhookHandler(reconciler Reconciler, logger *zerolog.Logger) *MpesaWebhookHandler {
	return &MpesaWebhookHandler{reconciler: reconciler, logger: logger}
}

// Handle processes the Daraja STK callback. It is called by Safaricom, not
// by a logged-in user, so it sits outside the session.
func (h *MpesaWebhookHandler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.String(http.StatusBadRequest, "Only POST requests are allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		h.logger.Warn().Err(err).Msg("read stk callback body")
		c.String(http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}
	h.logger.Debug().RawJSON("body", safeJSON(body)).Msg("stk callback received")

	reply, err := h.reconciler.Reconcile(c.Request.Context(), body)
	if err != nil {
		var perr *payment.ProtocolError
		if errors.As(err, &perr) {
			c.String(http.StatusBadRequest, "Invalid request data: "+perr.Error())
			return
		}
		h.logger.Error().Err(err).Msg("stk callback not recorded")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, reply)
}

func safeJSON(body []byte) []byte {
	if !json.Valid(body) {
		return []byte(`null`)
	}
	return body
}

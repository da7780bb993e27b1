package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/CodeWithProBrian/Mpesa/internal/repository"
	"github.com/CodeWithProBrian/Mpesa/internal/service"
	"github.com/CodeWithProBrian/Mpesa/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// UpgradeCheckoutWS streams the outcome of one checkout to the pending page.
// If the payment is already recorded the outcome is sent straight away.
// Failed payments are never recorded, so a page that connects after one
// gets a timeout event after maxWait and falls back to the status check.
func UpgradeCheckoutWS(hub *ws.Hub, reconciler Reconciler, maxWait time.Duration, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		checkoutID := c.Param("checkout_id")
		if checkoutID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "checkout_id required"})
			return
		}

		// Registered before the lookup so an outcome published in between
		// is buffered on client.Send.
		client := ws.NewClient(checkoutID)
		hub.Register(client)

		existing, err := reconciler.Transaction(c.Request.Context(), checkoutID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			client.Close()
			logger.Error().Err(err).Str("checkout_request_id", checkoutID).Msg("load transaction for websocket")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		conn, err := ws.Upgrade(c.Writer, c.Request)
		if err != nil {
			client.Close()
			return
		}
		if existing != nil {
			client.Close()
			_ = conn.WriteJSON(service.OutcomeFromTransaction(existing))
			_ = conn.Close()
			return
		}
		timeoutMsg, _ := json.Marshal(service.TimeoutEvent{
			Type:              service.EventTimeout,
			CheckoutRequestID: checkoutID,
			Message:           service.MsgOutcomeTimeout,
		})
		ws.Pump(client, conn, maxWait, timeoutMsg)
	}
}

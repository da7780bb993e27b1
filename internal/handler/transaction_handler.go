package handler

import (
	"errors"
	"net/http"

	"github.com/CodeWithProBrian/Mpesa/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type TransactionHandler struct {
	reconciler Reconciler
	logger     *zerolog.Logger
}

func NewTransactionHandler(reconciler Reconciler, logger *zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{reconciler: reconciler, logger: logger}
}

// Get returns the recorded payment for a checkout.
func (h *TransactionHandler) Get(c *gin.Context) {
	t, err := h.reconciler.Transaction(c.Request.Context(), c.Param("checkout_id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("get transaction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, t)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"harambee-pay/internal/service"
)

type CallbackHandler struct {
	reconciler *service.ReconcilerService
	logger     *zap.Logger
}

func NewCallbackHandler(reconciler *service.ReconcilerService, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// MpesaCallback handles POST /api/v1/payments/callback. The provider
// retries on any non-2xx response, so application-level outcomes
// (unmatched, duplicate, malformed) are all acknowledged with a 200; only a
// transport-level failure may produce anything else.
func (h *CallbackHandler) MpesaCallback(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		h.logger.Error("failed to read callback body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
		return
	}

	outcome, err := h.reconciler.Reconcile(c.Request.Context(), raw)
	if err != nil {
		h.logger.Error("callback reconciliation error",
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

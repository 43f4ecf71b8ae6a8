package handler

import (
	"net/http"

	"github.com/dafedescribe/wey/internal/messaging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives inbound messages from the messaging transport and
// hands them to the gateway.
type WebhookHandler struct {
	gateway *messaging.Gateway
	logger  *zap.Logger
}

func NewWebhookHandler(gateway *messaging.Gateway, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, logger: logger}
}

func (h *WebhookHandler) HandleMessage(c *gin.Context) {
	var msg messaging.InboundMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "from and text are required",
		})
		return
	}

	if err := h.gateway.Handle(c.Request.Context(), msg); err != nil {
		h.logger.Error("failed to handle inbound message", zap.String("from", msg.From), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process message",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

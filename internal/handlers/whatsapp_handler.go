package handlers

import (
	"net/http"

	"botdesk/internal/services"
	"botdesk/pkg/whatsapp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WhatsAppHandler serves the Cloud API webhook and the owner-facing
// integration endpoints.
type WhatsAppHandler struct {
	webhookService     services.WebhookService
	integrationService services.IntegrationService
	logger             *zap.Logger
}

func NewWhatsAppHandler(
	webhookService services.WebhookService,
	integrationService services.IntegrationService,
	logger *zap.Logger,
) *WhatsAppHandler {
	return &WhatsAppHandler{
		webhookService:     webhookService,
		integrationService: integrationService,
		logger:             logger,
	}
}

// VerifyWebhook answers the subscription handshake with the raw challenge.
func (h *WhatsAppHandler) VerifyWebhook(c *gin.Context) {
	challenge, err := h.webhookService.Verify(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		h.logger.Warn("Webhook verification rejected", zap.Error(err))
		respondError(c, h.logger, err)
		return
	}
	c.String(http.StatusOK, challenge)
}

// HandleWebhook always answers 200 once the body parses.
func (h *WhatsAppHandler) HandleWebhook(c *gin.Context) {
	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	outcome := h.webhookService.Handle(c.Request.Context(), &payload)
	if outcome.Handled {
		h.logger.Info("Webhook message processed",
			zap.Bool("integration_matched", outcome.Integration != nil),
			zap.Bool("reply_sent", outcome.SendErr == nil),
			zap.Bool("stored", outcome.StoreErr == nil))
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WhatsAppHandler) Connect(c *gin.Context) {
	res, err := h.integrationService.Connect(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *WhatsAppHandler) Callback(c *gin.Context) {
	var req struct {
		Code  string `json:"code" form:"code"`
		State string `json:"state" form:"state"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	res, err := h.integrationService.Callback(c.Request.Context(), currentUser(c), req.Code, req.State)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"integration":       res.Integration,
		"phoneNumbers":      res.PhoneNumbers,
		"webhookRegistered": res.WebhookRegistered,
		"webhookError":      res.WebhookError,
	})
}

func (h *WhatsAppHandler) Status(c *gin.Context) {
	status, err := h.integrationService.Status(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *WhatsAppHandler) Disconnect(c *gin.Context) {
	if err := h.integrationService.Disconnect(currentUser(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WhatsAppHandler) QRCode(c *gin.Context) {
	png, err := h.integrationService.QRCode(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

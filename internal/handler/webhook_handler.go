package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/model"
	"github.com/certready/certready-backend/internal/response"
	"github.com/certready/certready-backend/internal/service"
	"github.com/certready/certready-backend/internal/validator"
)

// WebhookHandler receives identity-provider and payment-processor callbacks.
// Both are authenticated with a shared secret header and must tolerate
// at-least-once delivery.
type WebhookHandler struct {
	cfg            *config.Config
	authService    *service.AuthService
	billingService *service.BillingService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(cfg *config.Config, authService *service.AuthService, billingService *service.BillingService) *WebhookHandler {
	return &WebhookHandler{
		cfg:            cfg,
		authService:    authService,
		billingService: billingService,
	}
}

func secretMatches(c *gin.Context, want string) bool {
	got := c.GetHeader("X-Webhook-Secret")
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// Identity godoc
// POST /api/v1/webhooks/identity
// Applies a user.created/updated/deleted event from the identity provider.
func (h *WebhookHandler) Identity(c *gin.Context) {
	if !secretMatches(c, h.cfg.IdentityWebhookSecret) {
		response.Fail(c, http.StatusUnauthorized, response.ErrWebhookUnauthorized)
		return
	}

	var event model.IdentityEvent
	if fields := validator.Bind(c, &event); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.authService.SyncIdentity(c.Request.Context(), &event)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// PaymentCompleted godoc
// POST /api/v1/webhooks/payments/completed
// Confirms a pending checkout. Replays of the same event id are no-ops.
func (h *WebhookHandler) PaymentCompleted(c *gin.Context) {
	if !secretMatches(c, h.cfg.PaymentWebhookSecret) {
		response.Fail(c, http.StatusUnauthorized, response.ErrWebhookUnauthorized)
		return
	}

	var event model.ProcessorEvent
	if fields := validator.Bind(c, &event); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	applied, err := h.billingService.CompleteByExternalRef(c.Request.Context(), event.ExternalRef, event.EventID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"applied": applied})
}

// PaymentFailed godoc
// POST /api/v1/webhooks/payments/failed
func (h *WebhookHandler) PaymentFailed(c *gin.Context) {
	if !secretMatches(c, h.cfg.PaymentWebhookSecret) {
		response.Fail(c, http.StatusUnauthorized, response.ErrWebhookUnauthorized)
		return
	}

	var event model.ProcessorEvent
	if fields := validator.Bind(c, &event); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	applied, err := h.billingService.FailByExternalRef(c.Request.Context(), event.ExternalRef, event.EventID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"applied": applied})
}

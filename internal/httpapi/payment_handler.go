package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/abdulaziz27/analisisaham-ai/internal/payment"
	"github.com/abdulaziz27/analisisaham-ai/internal/plan"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// PaymentHandler serves purchase creation and the gateway webhook.
type PaymentHandler struct {
	service    *payment.Service
	reconciler *payment.Reconciler
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(service *payment.Service, reconciler *payment.Reconciler) *PaymentHandler {
	return &PaymentHandler{service: service, reconciler: reconciler}
}

// createPaymentRequest is the purchase creation body.
type createPaymentRequest struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

// Create charges the gateway for a plan and returns the QRIS receipt.
func (h *PaymentHandler) Create(c *gin.Context) {
	var body createPaymentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	userID := strings.TrimSpace(body.UserID)
	planID := strings.TrimSpace(body.PlanID)
	if userID == "" || planID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and plan_id are required"})
		return
	}

	receipt, errCreate := h.service.CreatePurchase(c.Request.Context(), userID, planID)
	if errCreate != nil {
		if errors.Is(errCreate, plan.ErrUnknownPlan) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_id: " + planID})
			return
		}
		log.WithError(errCreate).Errorf("httpapi: create payment for user %s failed", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// Notification processes one gateway confirmation payload. The response is
// always HTTP 200: an error status in the body stops the gateway from
// retry-storming the endpoint while the failure is logged for operators.
func (h *PaymentHandler) Notification(c *gin.Context) {
	rawPayload, errRead := io.ReadAll(c.Request.Body)
	if errRead != nil {
		c.JSON(http.StatusOK, payment.Result{Status: payment.ResultError, Message: "unreadable body"})
		return
	}

	result, errProcess := h.reconciler.Process(c.Request.Context(), rawPayload)
	if errProcess != nil {
		log.WithError(errProcess).Error("httpapi: webhook processing failed")
		c.JSON(http.StatusOK, payment.Result{Status: payment.ResultError, Message: errProcess.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

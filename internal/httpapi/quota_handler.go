package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/abdulaziz27/analisisaham-ai/internal/quota"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// QuotaHandler serves the balance check and spend endpoints.
type QuotaHandler struct {
	ledger *quota.Ledger
}

// NewQuotaHandler constructs a QuotaHandler.
func NewQuotaHandler(ledger *quota.Ledger) *QuotaHandler {
	return &QuotaHandler{ledger: ledger}
}

// quotaCheckResponse is the balance check payload.
type quotaCheckResponse struct {
	OK        bool `json:"ok"`
	Remaining int  `json:"remaining"`
}

// patchFromQuery builds a profile patch from the optional query parameters.
// Only parameters actually present in the request become patch fields.
func patchFromQuery(c *gin.Context) quota.ProfilePatch {
	patch := quota.ProfilePatch{}
	if v, ok := c.GetQuery("username"); ok {
		patch.Username = &v
	}
	if v, ok := c.GetQuery("first_name"); ok {
		patch.FirstName = &v
	}
	if v, ok := c.GetQuery("last_name"); ok {
		patch.LastName = &v
	}
	if v, ok := c.GetQuery("language_code"); ok {
		patch.LanguageCode = &v
	}
	if v, ok := c.GetQuery("is_premium"); ok {
		premium, errParse := strconv.ParseBool(v)
		if errParse == nil {
			patch.IsPremium = &premium
		}
	}
	return patch
}

// Check reports whether the user still has quota, creating the record with
// the free-tier grant when absent and patching any supplied profile fields.
func (h *QuotaHandler) Check(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	balance, errEnsure := h.ledger.EnsureAndPatch(c.Request.Context(), userID, patchFromQuery(c))
	if errEnsure != nil {
		log.WithError(errEnsure).Errorf("httpapi: quota check for user %s failed", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}

	c.JSON(http.StatusOK, quotaCheckResponse{
		OK:        balance.Remaining > 0,
		Remaining: balance.Remaining,
	})
}

// quotaDecrementRequest is the spend request body.
type quotaDecrementRequest struct {
	UserID string `json:"user_id"`
}

// Decrement spends one unit. The response stays 200 with ok=false when the
// balance is exhausted so clients branch on the body, not the status code.
func (h *QuotaHandler) Decrement(c *gin.Context) {
	var body quotaDecrementRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	userID := strings.TrimSpace(body.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	ok, errDecrement := h.ledger.Decrement(c.Request.Context(), userID)
	if errDecrement != nil {
		log.WithError(errDecrement).Errorf("httpapi: quota decrement for user %s failed", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota decrement failed"})
		return
	}

	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": false, "message": "Quota habis"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Quota decremented"})
}

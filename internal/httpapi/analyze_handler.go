package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/abdulaziz27/analisisaham-ai/internal/quota"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Analyzer produces the analysis text for a stock symbol prompt.
type Analyzer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnalyzeHandler serves quota-gated analysis requests.
type AnalyzeHandler struct {
	ledger   *quota.Ledger
	analyzer Analyzer
}

// NewAnalyzeHandler constructs an AnalyzeHandler.
func NewAnalyzeHandler(ledger *quota.Ledger, analyzer Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{ledger: ledger, analyzer: analyzer}
}

// analyzeRequest is the analysis request body.
type analyzeRequest struct {
	UserID string `json:"user_id"`
	Symbol string `json:"symbol"`
}

// analyzeResponse is the analysis response payload.
type analyzeResponse struct {
	OK       bool   `json:"ok"`
	Symbol   string `json:"symbol,omitempty"`
	Analysis string `json:"analysis,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Analyze runs one analysis for the user, spending one quota unit on success.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var body analyzeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	userID := strings.TrimSpace(body.UserID)
	symbol := strings.ToUpper(strings.TrimSpace(body.Symbol))
	if userID == "" || symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and symbol are required"})
		return
	}

	hasQuota, errCheck := h.ledger.HasQuota(c.Request.Context(), userID)
	if errCheck != nil {
		log.WithError(errCheck).Errorf("httpapi: quota check for user %s failed", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}
	if !hasQuota {
		c.JSON(http.StatusForbidden, analyzeResponse{OK: false, Message: "Kuota habis"})
		return
	}

	prompt := fmt.Sprintf(
		"Buat laporan analisis teknikal singkat untuk saham %s dalam Bahasa Indonesia. "+
			"Sertakan tren harga, level support dan resistance, serta rekomendasi.",
		symbol,
	)
	analysis, errGenerate := h.analyzer.Generate(c.Request.Context(), prompt)
	if errGenerate != nil {
		log.WithError(errGenerate).Errorf("httpapi: analysis for %s failed", symbol)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	if _, errSpend := h.ledger.Decrement(c.Request.Context(), userID); errSpend != nil {
		log.WithError(errSpend).Errorf("httpapi: quota decrement for user %s failed", userID)
	}

	c.JSON(http.StatusOK, analyzeResponse{OK: true, Symbol: symbol, Analysis: analysis})
}

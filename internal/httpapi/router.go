package httpapi

import (
	"net/http"

	"github.com/abdulaziz27/analisisaham-ai/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// Deps carries the handlers mounted by the router.
type Deps struct {
	Quota   *QuotaHandler
	Payment *PaymentHandler
	Analyze *AnalyzeHandler
	Limiter *ratelimit.Limiter
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	if deps.Limiter != nil {
		engine.Use(deps.Limiter.Middleware())
	}

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Stock Analysis AI API", "version": "1.0.0"})
	})
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	quotaGroup := engine.Group("/quota")
	{
		quotaGroup.GET("/check", deps.Quota.Check)
		quotaGroup.POST("/decrement", deps.Quota.Decrement)
	}

	paymentGroup := engine.Group("/payment")
	{
		paymentGroup.POST("/create", deps.Payment.Create)
		paymentGroup.POST("/notification", deps.Payment.Notification)
	}

	if deps.Analyze != nil {
		engine.POST("/api/analyze", deps.Analyze.Analyze)
	}

	return engine
}

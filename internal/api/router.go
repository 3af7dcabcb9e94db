package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mspdesk/billing-engine/internal/api/handler"
	"github.com/mspdesk/billing-engine/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, billingHandler *handler.BillingHandler) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		billing := v1.Group("/billing")
		{
			billing.GET("/summary", billingHandler.Summary)
			billing.POST("/invoices", billingHandler.CreateInvoice)
			billing.POST("/exports", billingHandler.RecordExport)
			billing.GET("/exports", billingHandler.ListExports)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}

package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/varus-ledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Ledger mutations (require authentication)
		auth := middleware.Auth(authCfg)
		v1.POST("/tokens", auth, handler.Mint)
		v1.POST("/tokens/:id/transfer", auth, handler.Transfer)
		v1.POST("/tokens/:id/approvals", auth, handler.Approve)
		v1.POST("/cure", auth, handler.Cure)
		v1.POST("/allowlist", auth, handler.Register)

		// Read endpoints (public)
		v1.GET("/tokens", handler.ListTokens)
		v1.GET("/tokens/:id", handler.GetToken)
		v1.GET("/tokens/:id/metadata", handler.GetTokenMetadata)
		v1.GET("/accounts/:account/tokens", handler.GetAccountTokens)
		v1.GET("/accounts/:account/supply", handler.GetAccountSupply)
		v1.GET("/allowlist", handler.GetAllowlist)
		v1.GET("/allowlist/:account", handler.GetAllowlistEntry)
		v1.GET("/collection", handler.GetCollection)
	}
}

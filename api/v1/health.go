package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthCheck handles the health check endpoint
func HealthCheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "monitoria-api",
		"version": Version,
	})
}

// CurrentUser echoes the identity resolved from the bearer token
func CurrentUser(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	respond(ctx, http.StatusOK, identity)
}

package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/middleware"
	"github.com/monitoria-simple/services"
)

// AuditController exposes the audit log
type AuditController struct {
	audit *services.AuditService
	log   *logger.Logger
}

// NewAuditController creates a new audit controller
func NewAuditController(audit *services.AuditService, log *logger.Logger) *AuditController {
	return &AuditController{audit: audit, log: log}
}

// RegisterRoutes registers audit routes
func (c *AuditController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit", middleware.AdminMiddleware(), c.ListEntries)
}

// ListEntries lists audit entries, newest first
func (c *AuditController) ListEntries(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var filter dto.AuditFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		invalidRequest(ctx, err)
		return
	}

	response, err := c.audit.List(ctx.Request.Context(), identity, filter)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, response)
}

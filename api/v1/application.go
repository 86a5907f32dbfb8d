package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/services"
)

// ApplicationController handles student applications and their evaluation
type ApplicationController struct {
	applications *services.ApplicationService
	selection    *services.SelectionService
	log          *logger.Logger
}

// NewApplicationController creates a new application controller
func NewApplicationController(applications *services.ApplicationService, selection *services.SelectionService, log *logger.Logger) *ApplicationController {
	return &ApplicationController{applications: applications, selection: selection, log: log}
}

// RegisterRoutes registers application routes
func (c *ApplicationController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/projects/:id/applications", c.Apply)
	router.GET("/projects/:id/applications", c.ListProjectApplications)
	router.GET("/me/applications", c.ListMyApplications)

	applications := router.Group("/applications")
	{
		applications.GET("/:id", c.GetApplication)
		applications.POST("/:id/evaluate", c.Evaluate)
		applications.POST("/:id/confirm", c.Confirm)
		applications.POST("/:id/decline", c.Decline)
	}
}

// Apply files the caller's application to a project
func (c *ApplicationController) Apply(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.ApplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	application, err := c.applications.Apply(ctx.Request.Context(), identity, ctx.Param("id"), req.PeriodID, models.SlotType(req.IntendedSlot))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusCreated, application)
}

// ListProjectApplications lists applications of a project, optionally by period
func (c *ApplicationController) ListProjectApplications(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	applications, err := c.applications.ListForProject(ctx.Request.Context(), identity, ctx.Param("id"), ctx.Query("periodId"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, applications)
}

// ListMyApplications lists the caller's own applications
func (c *ApplicationController) ListMyApplications(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	applications, err := c.applications.ListForStudent(ctx.Request.Context(), identity)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, applications)
}

// GetApplication retrieves one application
func (c *ApplicationController) GetApplication(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	application, err := c.applications.Get(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, application)
}

// Evaluate records grades for an application
func (c *ApplicationController) Evaluate(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.EvaluateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	application, err := c.selection.Evaluate(ctx.Request.Context(), identity, ctx.Param("id"),
		*req.DisciplineGrade, *req.SelectionGrade, *req.GPA)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, application)
}

// Confirm accepts a selected slot
func (c *ApplicationController) Confirm(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	application, err := c.applications.Confirm(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, application)
}

// Decline gives up a selected slot
func (c *ApplicationController) Decline(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	application, err := c.applications.Decline(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, application)
}

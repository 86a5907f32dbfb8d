package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/middleware"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/services"
)

// ProjectController handles project lifecycle endpoints
type ProjectController struct {
	projects *services.ProjectService
	log      *logger.Logger
}

// NewProjectController creates a new project controller
func NewProjectController(projects *services.ProjectService, log *logger.Logger) *ProjectController {
	return &ProjectController{projects: projects, log: log}
}

// RegisterRoutes registers project routes
func (c *ProjectController) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.GET("", c.ListProjects)
		projects.POST("", c.CreateProject)
		projects.GET("/:id", c.GetProject)
		projects.PUT("/:id", c.UpdateProject)
		projects.DELETE("/:id", c.ArchiveProject)
		projects.POST("/:id/submit", c.SubmitProject)
		projects.POST("/:id/resume", c.ResumeProject)
		projects.POST("/:id/approve", middleware.AdminMiddleware(), c.ApproveProject)
		projects.POST("/:id/reject", middleware.AdminMiddleware(), c.RejectProject)
		projects.POST("/:id/request-revision", middleware.AdminMiddleware(), c.RequestRevision)
		projects.POST("/:id/await-signature", middleware.AdminMiddleware(), c.AwaitSignature)
	}
}

// ListProjects lists the projects visible to the caller
func (c *ProjectController) ListProjects(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var filter dto.ProjectFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		invalidRequest(ctx, err)
		return
	}

	response, err := c.projects.List(ctx.Request.Context(), identity, filter)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, response)
}

// GetProject retrieves a project by ID
func (c *ProjectController) GetProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	project, err := c.projects.Get(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, project)
}

// CreateProject creates a draft project owned by the caller
func (c *ProjectController) CreateProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.ProjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	project, err := c.projects.Create(ctx.Request.Context(), identity, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusCreated, project)
}

// UpdateProject edits a draft
func (c *ProjectController) UpdateProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.ProjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	project, err := c.projects.UpdateDraft(ctx.Request.Context(), identity, ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, project)
}

// ArchiveProject soft-deletes a project
func (c *ProjectController) ArchiveProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	if err := c.projects.Archive(ctx.Request.Context(), identity, ctx.Param("id")); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Project archived successfully",
	})
}

// SubmitProject sends a draft for review
func (c *ProjectController) SubmitProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	project, err := c.projects.Submit(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, project)
}

// ResumeProject returns a project parked on a signature to review
func (c *ProjectController) ResumeProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	project, err := c.projects.ResumeAfterSignature(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, project)
}

// ApproveProject approves a submitted project and grants scholarships
func (c *ProjectController) ApproveProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.ApproveProjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	project, err := c.projects.Approve(ctx.Request.Context(), identity, ctx.Param("id"), *req.ScholarshipsGranted, req.Feedback)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, project)
}

// RejectProject rejects a submitted project
func (c *ProjectController) RejectProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.RejectProjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	project, err := c.projects.Reject(ctx.Request.Context(), identity, ctx.Param("id"), req.Reason)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, project)
}

// RequestRevision sends a submitted project back to draft
func (c *ProjectController) RequestRevision(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.RevisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	project, err := c.projects.RequestRevision(ctx.Request.Context(), identity, ctx.Param("id"), req.Message)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, project)
}

// AwaitSignature parks a submitted project until a role signs
func (c *ProjectController) AwaitSignature(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.AwaitSignatureRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	project, err := c.projects.AwaitSignature(ctx.Request.Context(), identity, ctx.Param("id"), models.Role(req.Role))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, project)
}

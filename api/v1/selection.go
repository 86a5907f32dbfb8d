package v1

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/services"
)

// SelectionController handles selection rounds, minutes and publication
type SelectionController struct {
	selection *services.SelectionService
	minutes   *services.MinutesService
	results   *services.ResultsService
	log       *logger.Logger
}

// NewSelectionController creates a new selection controller
func NewSelectionController(svc *services.Services, log *logger.Logger) *SelectionController {
	return &SelectionController{
		selection: svc.Selection,
		minutes:   svc.Minutes,
		results:   svc.Results,
		log:       log,
	}
}

// RegisterRoutes registers selection, minutes and results routes
func (c *SelectionController) RegisterRoutes(router *gin.RouterGroup) {
	round := router.Group("/projects/:id/periods/:periodId")
	{
		round.GET("/preview", c.Preview)
		round.POST("/selection", c.Select)
		round.GET("/minutes", c.MinutesForRound)
		round.POST("/publish", c.Publish)
		round.GET("/deliveries", c.Deliveries)
	}

	minutes := router.Group("/minutes")
	{
		minutes.GET("/:id", c.GetMinutes)
		minutes.PUT("/:id", c.AnnotateMinutes)
		minutes.POST("/:id/sign", c.SignMinutes)
	}
}

// Preview returns the ranking a ranked selection would produce
func (c *SelectionController) Preview(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	preview, err := c.selection.Preview(ctx.Request.Context(), identity, ctx.Param("id"), ctx.Param("periodId"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, preview)
}

// Select closes the round in directed or ranked mode
func (c *SelectionController) Select(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.SelectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	var (
		minutes models.Minutes
		err     error
	)
	projectID, periodID := ctx.Param("id"), ctx.Param("periodId")
	switch models.SelectionMode(strings.ToUpper(req.Mode)) {
	case models.SelectionRanked:
		minutes, err = c.selection.SelectRanked(ctx.Request.Context(), identity, projectID, periodID)
	case models.SelectionDirected:
		minutes, err = c.selection.SelectDirected(ctx.Request.Context(), identity, projectID, periodID, req.Bolsistas, req.Voluntarios)
	default:
		err = services.ValidationError("unknown selection mode %q", req.Mode)
	}
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusCreated, minutes)
}

// MinutesForRound returns the minutes of a closed round
func (c *SelectionController) MinutesForRound(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	minutes, err := c.minutes.FindByProjectPeriod(ctx.Request.Context(), identity, ctx.Param("id"), ctx.Param("periodId"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, minutes)
}

// GetMinutes returns minutes by ID
func (c *SelectionController) GetMinutes(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	minutes, err := c.minutes.Get(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, minutes)
}

// AnnotateMinutes sets location and notes on unsigned minutes
func (c *SelectionController) AnnotateMinutes(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.MinutesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	minutes, err := c.minutes.Annotate(ctx.Request.Context(), identity, ctx.Param("id"), req.Location, req.Notes)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, minutes)
}

// SignMinutes signs and freezes the minutes
func (c *SelectionController) SignMinutes(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	minutes, err := c.minutes.Sign(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, minutes)
}

// Publish releases the results of a signed round
func (c *SelectionController) Publish(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		invalidRequest(ctx, err)
		return
	}
	notify := true
	if req.Notify != nil {
		notify = *req.Notify
	}

	summary, err := c.results.Publish(ctx.Request.Context(), identity, ctx.Param("id"), ctx.Param("periodId"), notify)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, summary)
}

// Deliveries lists notification deliveries of a round
func (c *SelectionController) Deliveries(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	deliveries, err := c.results.Deliveries(ctx.Request.Context(), identity, ctx.Param("id"), ctx.Param("periodId"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, deliveries)
}

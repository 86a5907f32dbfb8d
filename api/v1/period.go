package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/middleware"
	"github.com/monitoria-simple/services"
)

// PeriodController handles enrollment period endpoints
type PeriodController struct {
	periods *services.PeriodService
	log     *logger.Logger
}

// NewPeriodController creates a new period controller
func NewPeriodController(periods *services.PeriodService, log *logger.Logger) *PeriodController {
	return &PeriodController{periods: periods, log: log}
}

// RegisterRoutes registers period routes
func (c *PeriodController) RegisterRoutes(router *gin.RouterGroup) {
	periods := router.Group("/periods")
	{
		periods.GET("", c.ListPeriods)
		periods.GET("/current", c.CurrentPeriods)
		periods.GET("/:id", c.GetPeriod)
		periods.POST("", middleware.AdminMiddleware(), c.CreatePeriod)
		periods.PUT("/:id", middleware.AdminMiddleware(), c.UpdatePeriod)
	}
}

// ListPeriods lists every enrollment period
func (c *PeriodController) ListPeriods(ctx *gin.Context) {
	periods, err := c.periods.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, periods)
}

// CurrentPeriods lists the periods open for applications right now
func (c *PeriodController) CurrentPeriods(ctx *gin.Context) {
	periods, err := c.periods.Current(ctx.Request.Context())
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, periods)
}

// GetPeriod retrieves one period
func (c *PeriodController) GetPeriod(ctx *gin.Context) {
	period, err := c.periods.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, period)
}

// CreatePeriod opens a new period
func (c *PeriodController) CreatePeriod(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.PeriodRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	period, err := c.periods.Create(ctx.Request.Context(), identity, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusCreated, period)
}

// UpdatePeriod edits a period
func (c *PeriodController) UpdatePeriod(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.PeriodRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	period, err := c.periods.Update(ctx.Request.Context(), identity, ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, period)
}

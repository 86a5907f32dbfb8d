package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/middleware"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/services"
)

// AllocationController exposes the scholarship allocation summary
type AllocationController struct {
	allocation *services.AllocationService
	log        *logger.Logger
}

// NewAllocationController creates a new allocation controller
func NewAllocationController(allocation *services.AllocationService, log *logger.Logger) *AllocationController {
	return &AllocationController{allocation: allocation, log: log}
}

// RegisterRoutes registers allocation routes
func (c *AllocationController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/allocation/summary", middleware.AdminMiddleware(), c.Summary)
}

// Summary reports pool, granted and remaining scholarships for a year and term
func (c *AllocationController) Summary(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	year, err := strconv.Atoi(ctx.Query("year"))
	if err != nil {
		respondError(ctx, c.log, services.ValidationError("year must be a number"))
		return
	}

	summary, err := c.allocation.Summary(ctx.Request.Context(), identity, year, models.Term(ctx.Query("term")))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, summary)
}

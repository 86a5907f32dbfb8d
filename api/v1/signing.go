package v1

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/services"
)

// DocumentDownloader serves artefacts behind presigned links
type DocumentDownloader interface {
	VerifyURLToken(token string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

const (
	defaultURLTTL = 15 * time.Minute
	maxURLTTL     = 24 * time.Hour
)

// SigningController handles signatures and signed documents
type SigningController struct {
	signing   *services.SigningService
	downloads DocumentDownloader
	log       *logger.Logger
}

// NewSigningController creates a new signing controller
func NewSigningController(signing *services.SigningService, downloads DocumentDownloader, log *logger.Logger) *SigningController {
	return &SigningController{signing: signing, downloads: downloads, log: log}
}

// RegisterRoutes registers the authenticated signing routes
func (c *SigningController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/projects/:id/signatures/:role", c.SignProject)
	router.GET("/projects/:id/documents", c.ListDocuments)
	router.GET("/documents/:id/url", c.DocumentURL)
}

// RegisterPublicRoutes registers the token-protected download route
func (c *SigningController) RegisterPublicRoutes(router *gin.RouterGroup) {
	if c.downloads == nil {
		return
	}
	router.GET("/documents/download", c.Download)
}

// SignProject fills the caller's signature slot on a project
func (c *SigningController) SignProject(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	var req dto.SignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	doc, err := c.signing.Sign(ctx.Request.Context(), identity, ctx.Param("id"), models.Role(ctx.Param("role")), req.Signature)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusCreated, doc)
}

// ListDocuments lists the stored artefacts of a project
func (c *SigningController) ListDocuments(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	docs, err := c.signing.Documents(ctx.Request.Context(), identity, ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, docs)
}

// DocumentURL returns a short-lived download link
func (c *SigningController) DocumentURL(ctx *gin.Context) {
	identity, ok := actor(ctx)
	if !ok {
		return
	}
	ttl := defaultURLTTL
	if raw := ctx.Query("ttl"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 || seconds > int(maxURLTTL/time.Second) {
			respondError(ctx, c.log, services.ValidationError("ttl must be between 1 and %d seconds", int(maxURLTTL/time.Second)))
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	url, err := c.signing.DocumentURL(ctx.Request.Context(), identity, ctx.Param("id"), ttl)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	respond(ctx, http.StatusOK, dto.DocumentURLResponse{URL: url, ExpiresIn: int(ttl.Seconds())})
}

// Download streams an artefact for a valid presigned token
func (c *SigningController) Download(ctx *gin.Context) {
	ref, err := c.downloads.VerifyURLToken(ctx.Query("token"))
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"status":  "error",
			"kind":    services.KindForbidden,
			"message": "Invalid or expired download link",
		})
		return
	}

	data, err := c.downloads.Get(ctx.Request.Context(), ref)
	if err != nil {
		respondError(ctx, c.log, services.NotFoundError("document", ref))
		return
	}
	ctx.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

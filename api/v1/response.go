package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/middleware"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/services"
)

// statusFor maps a service error kind onto an HTTP status
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindStateTransition, services.KindConflict:
		return http.StatusConflict
	case services.KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func respond(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{
		"status": "success",
		"data":   data,
	})
}

// respondError writes the error envelope. Internal errors are logged and
// answered with a generic message.
func respondError(ctx *gin.Context, log *logger.Logger, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	message := err.Error()

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}
	if status == http.StatusInternalServerError {
		log.FromContext(ctx.Request.Context()).
			WithField("path", ctx.Request.URL.Path).
			WithError(err).
			Error("request failed")
		message = "Internal server error"
	}

	ctx.AbortWithStatusJSON(status, gin.H{
		"status":        "error",
		"kind":          kind,
		"message":       message,
		"correlationId": logger.CorrelationID(ctx.Request.Context()),
	})
}

// invalidRequest answers a body or query that failed to bind
func invalidRequest(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"status":        "error",
		"kind":          services.KindValidation,
		"message":       "Invalid request data: " + err.Error(),
		"correlationId": logger.CorrelationID(ctx.Request.Context()),
	})
}

// actor returns the authenticated caller, answering 401 when missing
func actor(ctx *gin.Context) (models.Identity, bool) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":        "error",
			"message":       "User not authenticated",
			"correlationId": logger.CorrelationID(ctx.Request.Context()),
		})
	}
	return identity, ok
}

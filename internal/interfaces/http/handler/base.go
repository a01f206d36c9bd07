package handler

import (
	"errors"
	"net/http"

	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/logger"
	"github.com/erp/sharepointsync/internal/interfaces/http/dto"
	"github.com/erp/sharepointsync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor headers set by the gateway in front of the service
const (
	ActorIDHeader   = "X-User-ID"
	ActorNameHeader = "X-User-Name"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getActor reads the acting user from the gateway headers
func getActor(c *gin.Context) (sharepoint.Actor, error) {
	raw := c.GetHeader(ActorIDHeader)
	if raw == "" {
		return sharepoint.Actor{}, errors.New("user ID not found in request")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return sharepoint.Actor{}, err
	}
	return sharepoint.Actor{ID: id, Name: c.GetHeader(ActorNameHeader)}, nil
}

// parseID parses the :id path parameter
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps domain errors to their status code. Anything else is a 500 whose
// detail stays in the logs.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		statusCode := dto.GetHTTPStatus(domainErr.Code)
		if statusCode >= http.StatusInternalServerError {
			logger.L(c.Request.Context()).Error("Request failed", zap.String("code", domainErr.Code), zap.Error(err))
		}
		h.Error(c, statusCode, domainErr.Code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("Unexpected error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// NotFound answers unmatched routes with the error envelope
func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
}

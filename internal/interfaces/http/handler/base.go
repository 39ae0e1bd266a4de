// Package handler holds the gin handlers of the dairy back-office API.
// Handlers bind and check the request, call one application service and
// render the standard response envelope.
package handler

import (
	"errors"
	"net/http"

	"github.com/dairyops/backend/internal/application/validation"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/dairyops/backend/internal/infrastructure/logger"
	"github.com/dairyops/backend/internal/interfaces/http/dto"
	"github.com/dairyops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string, details map[string]any) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c), details))
}

// HandleError converts err into a response. Domain errors keep their code
// and details; anything else is logged and answered with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	if de, ok := shared.AsDomainError(err); ok {
		h.Error(c, de.Code, de.Message, de.Details)
		return
	}

	logger.FromContext(c.Request.Context()).Error("Request failed", zap.Error(err))
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred", nil)
}

// bindJSON decodes the request body into req. It answers the request and
// returns false when the body is malformed or fails validation.
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	return h.bindResult(c, c.ShouldBindJSON(req))
}

// bindQuery decodes the query string into req
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	return h.bindResult(c, c.ShouldBindQuery(req))
}

func (h *BaseHandler) bindResult(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		h.HandleError(c, validation.Translate(fieldErrors))
		return false
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.Error(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", nil)
		return false
	}
	h.Error(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON", map[string]any{"error": err.Error()})
	return false
}

// pathID parses the :name path parameter as a UUID
func (h *BaseHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, dto.ErrCodeInvalidID, "Invalid "+name, map[string]any{name: c.Param(name)})
		return uuid.Nil, false
	}
	return id, true
}

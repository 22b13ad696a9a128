// Package handlers contains HTTP request handlers for the permit service.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/internal/logger"
	"github.com/naciremadream81/permitpro-v1/internal/middleware"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/service"
	"github.com/naciremadream81/permitpro-v1/internal/validation"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

// respondBindingError reports a request body or form that failed to bind.
func respondBindingError(c *gin.Context, err error) {
	if fields := validation.Messages(err); fields != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: fields})
		return
	}
	respondError(c, http.StatusBadRequest, "invalid request body")
}

// respondServiceError maps service errors onto HTTP statuses. Anything it does
// not recognise is logged and reported as a generic 500.
func respondServiceError(c *gin.Context, log logrus.FieldLogger, module, funcName string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrItemNotFound):
		respondError(c, http.StatusNotFound, "checklist item not found")
	case errors.Is(err, service.ErrNoDocuments):
		respondError(c, http.StatusNotFound, "no documents found for this package")
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidPermitType), errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.LogError(log, module, funcName, "unhandled service error", gin.H{
			"path":       c.Request.URL.Path,
			"request_id": middleware.RequestID(c),
		}, err)
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// identity returns the caller set by the auth middleware, replying 401 when
// the route was mounted without it.
func identity(c *gin.Context) (*models.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}

// pathID parses a positive int64 path parameter. Malformed ids are reported
// as 404 since no such resource can exist.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"tasktrack/backend/internal/apperrors"
	"tasktrack/backend/internal/middleware"
	"tasktrack/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// Response is the envelope shared by every endpoint.
type Response struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Details []apperrors.FieldError `json:"details,omitempty"`
	Message string                 `json:"message,omitempty"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type paginatedResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: true, Message: message})
}

func respondPaginated(c *gin.Context, data interface{}, page, limit int, total int64) {
	c.JSON(http.StatusOK, paginatedResponse{
		Response: Response{Success: true, Data: data},
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: services.Pages(total, limit),
		},
	})
}

// respondServiceError maps the error taxonomy onto HTTP responses. Store
// failures are logged with detail but reach the client as a generic 500.
func respondServiceError(c *gin.Context, err error) {
	if ve, ok := apperrors.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "Validation failed",
			Details: ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Resource not found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Category name already exists"})
	case errors.Is(err, apperrors.ErrInvalidCategory):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid category"})
	default:
		slog.Error("request failed",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Internal server error"})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   "Invalid request body",
		Details: []apperrors.FieldError{{Field: "body", Message: err.Error()}},
	})
}

// callerID pulls the authenticated user id set by the auth middleware.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.ContextUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "Access token required"})
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "Access token required"})
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param(param))
	if err != nil {
		// Malformed ids behave like missing records.
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Resource not found"})
		return uuid.Nil, false
	}
	return id, true
}

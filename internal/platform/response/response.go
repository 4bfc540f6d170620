package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
	"github.com/gin-gonic/gin"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination info.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total, Page: page, Limit: limit, TotalPages: totalPages},
	})
}

// BadRequest writes a 400 validation error.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, string(apperror.CodeValidation), message)
}

// Unauthorized writes a 401 error.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, string(apperror.CodeUnauthorized), message)
}

// Forbidden writes a 403 error.
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, string(apperror.CodeForbidden), message)
}

// Error maps err onto a status code and writes it.
func Error(c *gin.Context, err error) {
	var (
		inputErr     *routing.InputError
		invariantErr *routing.InvariantViolationError
	)

	switch {
	case errors.As(err, &inputErr):
		abort(c, http.StatusBadRequest, "INPUT_ERROR", inputErr.Error())
	case errors.Is(err, routing.ErrNoPathFound):
		abort(c, http.StatusUnprocessableEntity, "NO_PATH_FOUND", err.Error())
	case errors.As(err, &invariantErr):
		abort(c, http.StatusUnprocessableEntity, "INVARIANT_VIOLATION", invariantErr.Error())
	case errors.Is(err, routing.ErrEmptyGraph):
		abort(c, http.StatusServiceUnavailable, "NO_ROAD_NETWORK", "no road network covers the requested area")
	case errors.Is(err, context.DeadlineExceeded):
		abort(c, http.StatusGatewayTimeout, "SEARCH_TIMEOUT", "route search timed out")
	default:
		if appErr, ok := apperror.As(err); ok {
			abort(c, appErr.Status, string(appErr.Code), appErr.Message)
			return
		}
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}

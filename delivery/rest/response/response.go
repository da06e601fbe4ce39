package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoflow/domain"
	"todoflow/infrastructure/logger"
)

// AppError defines the interface for application errors
type AppError interface {
	error
	Code() string
	HTTPStatus() int
}

// HTTPError implements AppError interface for HTTP errors
type HTTPError struct {
	code       string
	message    string
	httpStatus int
}

// NewError creates a new HTTPError
func NewError(code string, message string, httpStatus int) *HTTPError {
	return &HTTPError{
		code:       code,
		message:    message,
		httpStatus: httpStatus,
	}
}

func (e *HTTPError) Error() string {
	return e.message
}

func (e *HTTPError) Code() string {
	return e.code
}

func (e *HTTPError) HTTPStatus() int {
	return e.httpStatus
}

// Common errors
var (
	ErrBadRequest   = &HTTPError{"bad_request", "Bad request", http.StatusBadRequest}
	ErrUnauthorized = &HTTPError{"unauthorized", "Authentication required", http.StatusUnauthorized}
	ErrNotFound     = &HTTPError{"not_found", "Resource not found", http.StatusNotFound}
	ErrInternal     = &HTTPError{"internal_error", "Internal server error", http.StatusInternalServerError}
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FromDomain maps a domain error onto its HTTP error
func FromDomain(err error) AppError {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, domain.ErrBlankTitle):
		return NewError("blank_title", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrMissingID):
		return NewError("missing_id", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrBadParamInput):
		return NewError("bad_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnauthenticated):
		return NewError("unauthorized", err.Error(), http.StatusUnauthorized)
	case errors.Is(err, domain.ErrNotFound):
		return NewError("not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrPersistence):
		return NewError("persistence_error", err.Error(), http.StatusBadGateway)
	case errors.Is(err, domain.ErrQueueFull):
		return NewError("busy", err.Error(), http.StatusServiceUnavailable)
	default:
		return NewError("internal_error", err.Error(), http.StatusInternalServerError)
	}
}

// Success sends a successful JSON response with status 200
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error sends an error response based on the error type
func Error(c *gin.Context, err error) {
	httpErr := FromDomain(err)

	log := logger.Named("http")
	fields := []zap.Field{
		zap.String("code", httpErr.Code()),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	}
	if httpErr.HTTPStatus() >= http.StatusInternalServerError {
		log.Error("Request failed", fields...)
	} else {
		log.Debug("Request rejected", fields...)
	}

	c.AbortWithStatusJSON(httpErr.HTTPStatus(), ErrorBody{
		Error:   httpErr.Code(),
		Message: httpErr.Error(),
	})
}

// ErrorWithMessage sends an error response with a custom message
func ErrorWithMessage(c *gin.Context, httpStatus int, code string, message string) {
	Error(c, NewError(code, message, httpStatus))
}

// NoContent sends a 204 No Content response
func NoContent(c *gin.Context) {
	c.AbortWithStatus(http.StatusNoContent)
}

// Created sends a 201 Created response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Accepted sends a 202 Accepted response
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

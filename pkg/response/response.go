package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskpro/backend/pkg/apperr"
)

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	Message string `json:"message"`
}

// MessageBody confirms an operation that returns no entity.
type MessageBody struct {
	Message string `json:"message"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Message sends 200 with a confirmation message.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, MessageBody{Message: msg})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Message: msg})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Message: msg})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorBody{Message: msg})
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorBody{Message: msg})
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, msg string) {
	c.JSON(http.StatusTooManyRequests, ErrorBody{Message: msg})
}

// Status maps an error kind to its HTTP status code.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as {message} with the status of its kind.
// Internal errors are attached to the gin context so the request logger records them.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		_ = c.Error(err)
	}
	c.JSON(Status(kind), ErrorBody{Message: apperr.MessageOf(err)})
}

// Abort is Error followed by c.Abort, for middleware.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

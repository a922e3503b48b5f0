// Package handlers provides the HTTP handlers of the operational API.
//
// This file defines the standard response utilities shared by all endpoints:
// a structured error envelope, consistent JSON serialization, and helpers so
// both success and failure responses keep one predictable shape.
//
// Example error response:
//
//	HTTP/1.1 500 Internal Server Error
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "stats_failed",
//	  "message": "collecting statistics failed"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tsoracle/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code"`
	// Human-readable message (safe to show to users)
	Message string `json:"message"`
}

// Fail aborts the request with a structured error and logs server-side
// errors (>= 500) with the request-scoped logger.
func Fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// OK writes a 200 response with the given JSON body.
func OK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

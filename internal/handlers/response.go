// Package handlers implements the gin handlers composing the engine's
// components (C1–C9) per endpoint, following the teacher's
// one-struct-per-concern internal/handlers layout.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/middleware"
)

// ErrorResponse maps err to its HTTP status and the engine's
// {"error": "<message>"} body (spec.md §7), logging the cause for typed
// errors and the full error for anything unexpected without ever leaking
// internals to the caller.
func ErrorResponse(c *gin.Context, err error) {
	if apiErr, ok := apierr.As(err); ok {
		entry := logrus.WithField("request_id", middleware.GetRequestID(c))
		if apiErr.Cause != nil {
			entry.WithError(apiErr.Cause).Warn(apiErr.Message)
		}
		c.JSON(apiErr.StatusCode(), gin.H{"error": apiErr.Message})
		return
	}
	logrus.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error("erro não tratado")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "erro interno"})
}

// BadRequestJSON responds 400 for a request body that failed to bind/decode.
func BadRequestJSON(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

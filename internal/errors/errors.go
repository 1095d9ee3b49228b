package errors

import (
	"net/http"
	"strings"

	"codeberg.org/ragcookbook/server/internal/auth"
	"codeberg.org/ragcookbook/server/internal/logger"
	"github.com/gin-gonic/gin"
)

// Error Handling Guidelines:
//
// For HTTP REST handlers:
//   - Use errors.InternalError(), errors.BadRequest(), etc. for critical errors
//     These functions handle both logging and HTTP response automatically
//   - Use logger.ErrorErr() only for non-critical errors where processing continues
//   - Never call both logger.ErrorErr() and errors.InternalError() for the same error
//   - Use errors.FromError() when the status depends on what failed (platform
//     API error, invalid tool arguments, timeout)
//
// For MCP and CLI entry points:
//   - Return the error to the caller; the tool result or exit status carries it
//
// For services/repositories/internal packages:
//   - Return wrapped errors with context using fmt.Errorf("context: %w", err)
//   - Let the caller (handler) decide how to log and respond
//   - Do not log errors in non-handler code (avoid double logging)

// returns a 403 forbidden error
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "permission denied"
	}

	c.JSON(http.StatusForbidden, ErrorResponse{
		Error:   CodeForbidden,
		Message: message,
	})
}

// returns a 404 not found error
func NotFound(c *gin.Context, resource string) {
	message := "resource not found"

	if resource != "" {
		message = resource + " not found"
	}

	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   CodeNotFound,
		Message: message,
	})
}

// returns a 400 bad request error
func BadRequest(c *gin.Context, message string, err error) {
	if message == "" {
		message = "invalid request"
	}

	response := ErrorResponse{
		Error:   CodeBadRequest,
		Message: message,
	}

	// add details if error provided
	if err != nil {
		response.Details = sanitizeError(err)
	}

	c.JSON(http.StatusBadRequest, response)
}

// returns a 400 bad request error for validation failures
func ValidationError(c *gin.Context, err error) {
	message := "validation failed"
	details := ""

	if err != nil {
		details = sanitizeError(err)
		// extract a more specific message from validation errors if available
		if strings.Contains(err.Error(), "binding") || strings.Contains(err.Error(), "validation") {
			message = "request validation failed"
		}
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   CodeValidationError,
		Message: message,
		Details: details,
	})
}

// returns a 500 internal server error
func InternalError(c *gin.Context, message string, err error) {
	if message == "" {
		message = "an error occurred"
	}

	// log full error server-side with context
	logger.FromContext(c.Request.Context()).Error(message,
		"error", err,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"subject", c.GetString(auth.SubjectKey),
	)

	// return sanitized error to client
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   CodeServerError,
		Message: message,
		Details: sanitizeError(err),
	})
}

// returns a 409 conflict error
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "resource conflict"
	}

	c.JSON(http.StatusConflict, ErrorResponse{
		Error:   CodeConflict,
		Message: message,
	})
}

// returns a 429 too many requests error
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "too many requests"
	}

	c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Error:   CodeTooManyRequests,
		Message: message,
	})
}

// returns a 502 when the platform or a model endpoint failed
func BadGateway(c *gin.Context, message string, err error) {
	if message == "" {
		message = "upstream service error"
	}

	logger.FromContext(c.Request.Context()).Error(message,
		"error", err,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)

	c.JSON(http.StatusBadGateway, ErrorResponse{
		Error:   CodeUpstreamError,
		Message: message,
		Details: sanitizeError(err),
	})
}

// returns a 504 for timeouts and canceled upstream calls
func GatewayTimeout(c *gin.Context, message string) {
	if message == "" {
		message = "request timed out"
	}

	c.JSON(http.StatusGatewayTimeout, ErrorResponse{
		Error:   CodeTimeout,
		Message: message,
	})
}

// writes the response matching the error's category
func FromError(c *gin.Context, message string, err error) {
	info := Classify(err)

	switch info.Category {
	case CategoryValidation:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   CodeValidationError,
			Message: message,
			Details: info.Sanitized,
		})
	case CategoryNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   CodeNotFound,
			Message: message,
			Details: info.Sanitized,
		})
	case CategoryAuth:
		Forbidden(c, message)
	case CategoryConflict:
		Conflict(c, message)
	case CategoryRateLimited:
		TooManyRequests(c, message)
	case CategoryTimeout:
		GatewayTimeout(c, message)
	case CategoryUpstream, CategoryNetwork:
		BadGateway(c, message, err)
	default:
		InternalError(c, message, err)
	}
}

// sanitizes error messages for production
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}

	return Classify(err).Sanitized
}

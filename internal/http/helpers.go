package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kindle-enex/internal/kindle"
	"github.com/mrlokans/kindle-enex/internal/services"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (line number, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// ParseErrorDetails locates a parse failure in the submitted text.
type ParseErrorDetails struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// respondConvertError maps a conversion failure onto a status and JSON body.
func respondConvertError(c *gin.Context, err error) {
	status, resp := convertErrorResponse(err)
	if status == http.StatusInternalServerError {
		respondInternalError(c, err, "convert")
		return
	}
	c.JSON(status, resp)
}

// convertErrorResponse classifies err. Input problems are 4xx with the
// message the user sees; everything else is a 500.
func convertErrorResponse(err error) (int, ErrorResponse) {
	var parseErr *kindle.ParseError
	switch {
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, ErrorResponse{
			Error:   services.FailureMessage(err),
			Code:    string(parseErr.Kind),
			Details: ParseErrorDetails{Line: parseErr.Position + 1, Text: parseErr.Line},
		}
	case errors.Is(err, services.ErrEmptyInput):
		return http.StatusBadRequest, ErrorResponse{Error: services.FailureMessage(err), Code: "empty_input"}
	case errors.Is(err, services.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: services.FailureMessage(err), Code: "input_too_large"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
	}
}

// --- Parameter Parsing ---

// parsePagination reads limit and offset query parameters with bounds.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

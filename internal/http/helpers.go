package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/locallibrary/internal/database/catalog"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondValidationError sends a 400 response carrying binding errors as details.
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Code: "validation_failed", Details: err.Error()})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondForbidden sends a 403 Forbidden response.
func respondForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, ErrorResponse{Error: message, Code: "forbidden"})
}

// respondConflict sends a 409 Conflict response.
func respondConflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, ErrorResponse{Error: message, Code: "conflict"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondStoreError maps catalog store errors onto HTTP responses.
func respondStoreError(c *gin.Context, err error, resource, context string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		respondNotFound(c, resource)
	case errors.Is(err, catalog.ErrInvalidReference):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	return parseID(c, c.Param(paramName), paramName)
}

// parseID parses raw as an unsigned integer ID named name.
func parseID(c *gin.Context, raw, name string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parseUUIDParam extracts a UUID from URL parameters, responding with 400 when malformed.
func parseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return uuid.Nil, false
	}
	return id, true
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

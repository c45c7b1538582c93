package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servora/servora/internal/shared/errors"
)

// ParseUUIDParam reads a UUID path parameter.
// entityName is used in error messages (e.g., "incident", "user").
func ParseUUIDParam(c *gin.Context, paramName, entityName string) (string, error) {
	raw := strings.TrimSpace(c.Param(paramName))
	if raw == "" {
		return "", errors.NewValidationError(entityName + " ID is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.NewValidationError("invalid " + entityName + " ID format")
	}
	return parsed.String(), nil
}

// QueryList reads a comma separated or repeated query parameter.
func QueryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

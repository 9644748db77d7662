package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
	"github.com/noah-isme/tutorcrm-api/pkg/response"
)

// pathID reads a UUID path parameter, writing a 400 and returning "" when it is malformed.
func pathID(c *gin.Context, name string) string {
	raw := strings.TrimSpace(c.Param(name))
	if _, err := uuid.Parse(raw); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a valid id"))
		return ""
	}
	return raw
}

func teacherIDParam(c *gin.Context) string {
	return pathID(c, "id")
}

// queryInt parses an integer query parameter. An absent parameter yields 0.
func queryInt(c *gin.Context, keys ...string) (int, bool) {
	for _, key := range keys {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, key+" must be an integer"))
			return 0, false
		}
		return value, true
	}
	return 0, true
}

// queryString returns the first non-empty query value among keys, accepting both snake_case
// and camelCase spellings.
func queryString(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(c.Query(key)); value != "" {
			return value
		}
	}
	return ""
}

package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseSnowflakeID(value string) (int64, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid_snowflake_id")
	}
	return parsed.Int64(), nil
}

// pathID reads a snowflake id path parameter, aborting the request when it is malformed.
func pathID(c *gin.Context, name, field string) (int64, bool) {
	id, err := parseSnowflakeID(c.Param(name))
	if err != nil {
		AbortWithError(c, newValidationError(field, "invalid_"+field, "invalid "+strings.ReplaceAll(field, "_", " ")))
		return 0, false
	}
	return id, true
}

func queryLimit(c *gin.Context) (int, bool) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil || (limit != nil && *limit < 0) {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return 0, false
	}
	if limit == nil {
		return 0, true
	}
	return *limit, true
}

package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// QueryCount parses a positive integer query parameter. Missing or invalid
// values give def; values above max are capped.
func QueryCount(c *gin.Context, key string, def, max int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, max)
}

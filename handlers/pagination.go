package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseLimit reads ?limit=. Anything missing or unparseable is 0, which the
// query service treats as "use the default".
func ParseLimit(c *gin.Context) int {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 0
	}
	l, err := strconv.Atoi(limitStr)
	if err != nil || l < 0 {
		return 0
	}
	return l
}

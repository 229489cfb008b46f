package middleware

import (
	"strings"
	"time"

	"water-quality-api/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", RequestIDHeader}
)

// SetupCORS lets the dashboard read the API from another origin. A single
// "*" allows any origin without credentials.
func SetupCORS(cfg config.CORSConfig) gin.HandlerFunc {
	var origins []string
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	c := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsHeaders,
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return cors.New(c)
}

package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns a middleware that handles Cross-Origin Resource Sharing for the
// configured origins. A "*" entry allows any origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Accept", "Origin", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}

	for _, o := range allowedOrigins {
		if o == "*" {
			// Wildcard with credentials is rejected by browsers; echo the origin instead.
			cfg.AllowOriginFunc = func(string) bool { return true }
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = allowedOrigins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	return cors.New(cfg)
}

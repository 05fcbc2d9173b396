package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID injects an X-Request-ID header into the request and response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Health endpoints are hit every few seconds by the platform; logging them
// would drown the extraction traffic.
var unloggedPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// Logger logs each completed request in the same key=value line format the
// pipeline stage events use, so a request can be traced across both.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		if unloggedPaths[path] {
			return
		}
		if query := c.Request.URL.RawQuery; query != "" {
			path = path + "?" + query
		}

		requestID := c.GetString("request_id")
		status := c.Writer.Status()
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			log.Printf("http: request=%s %s %s status=%d latency=%s errors=%s",
				requestID, c.Request.Method, path, status, time.Since(start), errs.String())
			return
		}
		log.Printf("http: request=%s %s %s status=%d latency=%s",
			requestID, c.Request.Method, path, status, time.Since(start))
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}

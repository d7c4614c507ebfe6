package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		switch {
		case status >= 500:
			log.Errorf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, status, latency)
		case status >= 400:
			log.Infof("%s %s %d %s", c.Request.Method, c.Request.URL.Path, status, latency)
		default:
			log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, status, latency)
		}
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/lib/metrics"
)

// Metrics records request counts, latencies and in-flight requests
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.RequestStarted()
		defer done()

		start := time.Now()
		c.Next()

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

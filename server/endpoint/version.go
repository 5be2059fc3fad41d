package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/version"
)

// startTime records when the process started for uptime calculation.
var startTime = time.Now()

// Version returns a handler that reports build version information.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"build":  version.Get(),
			"uptime": time.Since(startTime).Round(time.Second).String(),
		})
	}
}

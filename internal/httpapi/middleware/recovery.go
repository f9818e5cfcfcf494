package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/motionbotdev/motionbot/internal/common"
	"github.com/motionbotdev/motionbot/internal/logging"
)

var log = logging.Component("httpapi")

// Recovery turns a handler panic into a 500 envelope instead of a dropped
// connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).WithField("path", c.Request.URL.Path).Error("handler panicked")
				common.Fail(c, http.StatusInternalServerError, 50000, "internal server error")
			}
		}()
		c.Next()
	}
}

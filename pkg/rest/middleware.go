package rest

import (
	"net/http"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GlobalGroup marks a middleware that applies to every route.
const GlobalGroup = "*"

const RequestIdHeader = "X-Request-Id"

type Middleware struct {
	Handler gin.HandlerFunc
	Group   string
}

func NewMiddleware(group string, handler gin.HandlerFunc) Middleware {
	return Middleware{
		Group:   group,
		Handler: handler,
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIdHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger(l *logger.Logger) gin.HandlerFunc {
	l = logger.OrDefault(l)
	return func(c *gin.Context) {
		requestId := c.GetHeader(RequestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		c.Set("request_id", requestId)
		c.Writer.Header().Set(RequestIdHeader, requestId)

		start := time.Now()
		c.Next()

		l.Debugf("[%s] %s %s -> %d (%s)",
			requestId,
			c.Request.Method,
			c.FullPath(),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

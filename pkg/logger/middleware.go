package logger

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the request ID in and out of the HTTP layer.
const RequestIDHeader = "X-Request-ID"

// Probe endpoints are hit every few seconds; logging them is pure noise.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// GinMiddleware threads a request ID through the context and logs one line
// per request on completion. Server errors log at error level.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		if quietPaths[c.Request.URL.Path] {
			return
		}

		evt := Info(ctx)
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = Error(ctx)
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

// WebSocketContext builds the long-lived context for a websocket session,
// honoring a client-supplied request ID from the query string or header.
func WebSocketContext(r *http.Request) context.Context {
	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		requestID = r.Header.Get(RequestIDHeader)
	}
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return WithRequestID(context.Background(), requestID)
}

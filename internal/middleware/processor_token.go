package middleware

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"mediahub/internal/pkg/response"
)

// ProcessorTokenAuth protects the processing webhook using a static bearer
// token shared with the trusted external processor.
func ProcessorTokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ipAllowed(c) {
			logWebhookAuthFailure(c, http.StatusForbidden, "ip_not_allowed")
			writeWebhookError(c, http.StatusForbidden, "AUTH_INVALID", "IP not allowed")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logWebhookAuthFailure(c, http.StatusUnauthorized, "missing_auth")
			writeWebhookError(c, http.StatusUnauthorized, "AUTH_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logWebhookAuthFailure(c, http.StatusUnauthorized, "invalid_auth_format")
			writeWebhookError(c, http.StatusUnauthorized, "AUTH_INVALID", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		if token == "" {
			logWebhookAuthFailure(c, http.StatusInternalServerError, "token_not_configured")
			writeWebhookError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Processor token is not configured")
			c.Abort()
			return
		}

		if parts[1] != token {
			logWebhookAuthFailure(c, http.StatusUnauthorized, "invalid_token")
			writeWebhookError(c, http.StatusUnauthorized, "AUTH_INVALID", "Invalid processor token")
			c.Abort()
			return
		}

		c.Next()
	}
}

func writeWebhookError(c *gin.Context, status int, code, message string) {
	response.Error(c, status, code, message)
}

func ipAllowed(c *gin.Context) bool {
	allowed := strings.TrimSpace(os.Getenv("PROCESSOR_ALLOWED_IPS"))
	if allowed == "" {
		return true
	}
	clientIP := c.ClientIP()
	for _, ip := range strings.Split(allowed, ",") {
		if strings.TrimSpace(ip) == clientIP {
			return true
		}
	}
	return false
}

func logWebhookAuthFailure(c *gin.Context, status int, reason string) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = c.GetHeader("X-Request-Id")
	}
	log.Printf("processor_webhook_auth status=%d request_id=%s reason=%s", status, requestID, reason)
}

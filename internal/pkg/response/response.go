package response

import "github.com/gin-gonic/gin"

// Error writes the shared failure envelope. Used by the auth middlewares;
// domain handlers build their envelopes inline next to the error switch.
func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

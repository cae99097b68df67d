// Package http contains the gin handlers for the chat REST API.
package http

import "github.com/gin-gonic/gin"

// SuccessResponse writes the standard success envelope. Extra payload
// fields ride alongside "success" under their own names.
func SuccessResponse(c *gin.Context, code int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(code, body)
}

// ErrorResponse writes the standard failure envelope.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse renders a view model wrapped in the console's standard envelope.
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError renders a failed view. The error text is included for the operator;
// message is the human-readable notification text.
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	})
}

// Redirect aborts the current view and sends the client to another route.
func Redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
	c.Abort()
}

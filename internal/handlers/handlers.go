package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// serverError logs the underlying cause server-side and returns the
// generic 500 body; internals never leak to the client.
func serverError(c *gin.Context, err error) {
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}

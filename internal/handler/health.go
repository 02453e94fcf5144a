package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health — статический ответ живости сервиса.
func Health(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": service})
	}
}

func Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Root — визитная карточка шлюза.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "CityFix API Gateway",
		"version": "1.0.0",
		"status":  "operational",
	})
}

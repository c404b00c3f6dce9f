package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Element families and properties the plugin can offer in its pickers
var (
	revitElements = map[string][]string{
		"walls":  {"Basic Wall", "Curtain Wall", "Stacked Wall"},
		"floors": {"Basic Floor", "Slab", "Foundation"},
		"roofs":  {"Basic Roof", "Extrusion Roof"},
	}

	revitProperties = map[string][]string{
		"dimensions": {"Length", "Width", "Height", "Area"},
		"materials":  {"Concrete", "Steel", "Wood", "Glass"},
		"parameters": {"Mark", "Comments", "Phase"},
	}
)

func RevitElements(c *gin.Context) {
	c.JSON(http.StatusOK, revitElements)
}

func RevitProperties(c *gin.Context) {
	c.JSON(http.StatusOK, revitProperties)
}

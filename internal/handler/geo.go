package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/cityfix/internal/service"
)

type GeoHandler struct {
	svc *service.GeoService
}

func NewGeoHandler(svc *service.GeoService) *GeoHandler {
	return &GeoHandler{svc: svc}
}

type geocodeRequest struct {
	Address string `json:"address" binding:"required"`
}

type reverseGeocodeRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

func (h *GeoHandler) Geocode(c *gin.Context) {
	var req geocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.svc.Geocode(c.Request.Context(), req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *GeoHandler) Reverse(c *gin.Context) {
	var req reverseGeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.svc.Reverse(c.Request.Context(), *req.Lat, *req.Lon)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *GeoHandler) Tiles(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Tiles())
}

func (h *GeoHandler) Boundaries(c *gin.Context) {
	items, err := h.svc.Boundaries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

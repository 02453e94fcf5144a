package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/cityfix/internal/model"
	"github.com/psds-microservice/cityfix/internal/service"
	"gorm.io/datatypes"
)

type AdminHandler struct {
	svc *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

type createMunicipalityRequest struct {
	Name     string          `json:"name" binding:"required"`
	Location locationRequest `json:"location" binding:"required"`
	AdminID  string          `json:"admin_id" binding:"required"`
	Bounds   json.RawMessage `json:"bounds"`
}

func (h *AdminHandler) ListMunicipalities(c *gin.Context) {
	items, err := h.svc.ListMunicipalities(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *AdminHandler) CreateMunicipality(c *gin.Context) {
	var req createMunicipalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	m := &model.Municipality{
		Name:     req.Name,
		Location: req.Location.toModel(),
		AdminID:  model.ClaimedID(req.AdminID),
	}
	if len(req.Bounds) > 0 && string(req.Bounds) != "null" {
		m.Bounds = datatypes.JSON(req.Bounds)
	}
	if err := h.svc.CreateMunicipality(c.Request.Context(), m); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) AllTickets(c *gin.Context) {
	items, err := h.svc.AllTickets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/cityfix/internal/model"
	"github.com/psds-microservice/cityfix/internal/service"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type sendNotificationRequest struct {
	UserID   string  `json:"user_id" binding:"required"`
	Message  string  `json:"message" binding:"required"`
	Type     string  `json:"type" binding:"omitempty,oneof=info warning success error"`
	TicketID *string `json:"ticket_id"`
}

func (h *NotificationHandler) Send(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	n := &model.Notification{
		UserID:   model.ClaimedID(req.UserID),
		Message:  req.Message,
		Type:     model.NotificationType(req.Type),
		TicketID: req.TicketID,
	}
	if err := h.svc.Send(c.Request.Context(), n); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *NotificationHandler) ListByUser(c *gin.Context) {
	unreadOnly := false
	if v := c.Query("unread_only"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unread_only"})
			return
		}
		unreadOnly = parsed
	}
	items, err := h.svc.ListByUser(c.Request.Context(), model.ClaimedID(c.Param("user_id")), unreadOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.svc.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

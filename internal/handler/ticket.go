package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/cityfix/internal/kafka"
	"github.com/psds-microservice/cityfix/internal/model"
	"github.com/psds-microservice/cityfix/internal/notifyclient"
	"github.com/psds-microservice/cityfix/internal/service"
)

type TicketHandler struct {
	svc      service.TicketServicer
	events   kafka.TicketEventProducer
	notifier *notifyclient.Client
}

func NewTicketHandler(svc service.TicketServicer, events kafka.TicketEventProducer, notifier *notifyclient.Client) *TicketHandler {
	if notifier == nil {
		notifier = notifyclient.NewClient("")
	}
	return &TicketHandler{svc: svc, events: events, notifier: notifier}
}

type locationRequest struct {
	Lat     *float64 `json:"lat" binding:"required"`
	Lon     *float64 `json:"lon" binding:"required"`
	Address *string  `json:"address"`
}

func (l locationRequest) toModel() model.Location {
	return model.Location{Lat: *l.Lat, Lon: *l.Lon, Address: l.Address}
}

type createTicketRequest struct {
	Title       *string         `json:"title" binding:"required"`
	Description *string         `json:"description" binding:"required"`
	Location    locationRequest `json:"location" binding:"required"`
	Category    *string         `json:"category" binding:"required"`
	TenantID    *string         `json:"tenant_id" binding:"required"`
	Images      []string        `json:"images"`
}

// TicketEventPayload — полезная нагрузка событий тикета в Kafka.
func TicketEventPayload(t *model.Ticket) map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"ticket_id":   t.ID,
		"tenant_id":   string(t.TenantID),
		"reported_by": string(t.ReportedBy),
		"assigned_to": t.AssignedTo,
		"title":       t.Title,
		"category":    t.Category,
		"status":      string(t.Status),
		"comments":    len(t.Comments),
		"updated_at":  t.UpdatedAt,
	}
}

// publish — fire-and-forget: событие должно уйти даже при отмене запроса, но с таймаутом.
func (h *TicketHandler) publish(event string, t *model.Ticket) {
	if h.events == nil {
		return
	}
	payload := TicketEventPayload(t)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.events.ProduceTicketEvent(ctx, event, payload)
	}()
}

// Create: user_id — заявленная личность автора, токен не проверяется.
func (h *TicketHandler) Create(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ticket := &model.Ticket{
		Title:       *req.Title,
		Description: *req.Description,
		Location:    req.Location.toModel(),
		Category:    *req.Category,
		TenantID:    model.ClaimedID(*req.TenantID),
		ReportedBy:  model.ClaimedID(userID),
		Images:      model.StringList(req.Images),
	}
	if err := h.svc.Create(c.Request.Context(), ticket); err != nil {
		writeError(c, err)
		return
	}
	h.publish("ticket.created", ticket)
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) Get(c *gin.Context) {
	t, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) List(c *gin.Context) {
	filter := service.TicketFilter{
		TenantID: model.ClaimedID(c.Query("tenant_id")),
		UserID:   model.ClaimedID(c.Query("user_id")),
		Status:   c.Query("status"),
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}
	items, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type updateTicketRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Category    *string `json:"category,omitempty"`
	// null снимает назначение, отсутствие поля оставляет его как есть.
	AssignedTo model.NullableString `json:"assigned_to"`
}

func (h *TicketHandler) Update(c *gin.Context) {
	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	var prevStatus model.TicketStatus
	if req.Status != nil {
		prev, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		prevStatus = prev.Status
	}
	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), service.TicketUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Category:    req.Category,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish("ticket.updated", t)
	if req.Status != nil && t.Status != prevStatus {
		id := t.ID
		h.notifier.SendAsync(notifyclient.Payload{
			UserID:   string(t.ReportedBy),
			Message:  fmt.Sprintf("Ticket %q status changed to %s", t.Title, t.Status),
			Type:     string(model.NotificationInfo),
			TicketID: &id,
		})
	}
	c.JSON(http.StatusOK, t)
}

type commentRequest struct {
	UserID  *string `json:"user_id" binding:"required"`
	Message *string `json:"message" binding:"required"`
}

func (h *TicketHandler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	t, err := h.svc.AddComment(c.Request.Context(), c.Param("id"), model.ClaimedID(*req.UserID), *req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish("ticket.commented", t)
	c.JSON(http.StatusOK, t)
}

type feedbackRequest struct {
	Rating  int     `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment"`
}

func (h *TicketHandler) SetFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	t, err := h.svc.SetFeedback(c.Request.Context(), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish("ticket.feedback", t)
	c.JSON(http.StatusOK, t)
}

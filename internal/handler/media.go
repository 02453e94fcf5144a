package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/cityfix/internal/model"
	"github.com/psds-microservice/cityfix/internal/service"
)

type MediaHandler struct {
	svc *service.MediaService
}

func NewMediaHandler(svc *service.MediaService) *MediaHandler {
	return &MediaHandler{svc: svc}
}

func (h *MediaHandler) Upload(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart body"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	in := service.UploadInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
		UserID:      model.ClaimedID(userID),
	}
	if v := c.Query("ticket_id"); v != "" {
		in.TicketID = &v
	}
	m, err := h.svc.Upload(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file_id":  m.FileID,
		"filename": m.Filename,
		"url":      m.URL,
		"size":     m.Size,
	})
}

func (h *MediaHandler) Get(c *gin.Context) {
	m, path, err := h.svc.Open(c.Request.Context(), c.Param("file_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", m.ContentType)
	c.FileAttachment(path, m.Filename)
}

func (h *MediaHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("file_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

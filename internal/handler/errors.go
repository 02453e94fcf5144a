package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/rs/zerolog/log"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{errs.ErrInvalidID, http.StatusBadRequest},
	{errs.ErrNoChanges, http.StatusBadRequest},
	{errs.ErrInvalidRating, http.StatusBadRequest},
	{errs.ErrInvalidBody, http.StatusBadRequest},
	{errs.ErrInvalidType, http.StatusBadRequest},
	{errs.ErrFileType, http.StatusBadRequest},
	{errs.ErrNoFilename, http.StatusBadRequest},
	{errs.ErrPasswordLong, http.StatusBadRequest},

	{errs.ErrTicketNotFound, http.StatusNotFound},
	{errs.ErrMunicipalityNotFound, http.StatusNotFound},
	{errs.ErrNotificationNotFound, http.StatusNotFound},
	{errs.ErrUserNotFound, http.StatusNotFound},
	{errs.ErrFileNotFound, http.StatusNotFound},
	{errs.ErrAddressNotFound, http.StatusNotFound},

	{errs.ErrMunicipalityExists, http.StatusConflict},
	{errs.ErrEmailTaken, http.StatusConflict},

	{errs.ErrInvalidCredentials, http.StatusUnauthorized},
	{errs.ErrInvalidToken, http.StatusUnauthorized},
	{errs.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{errs.ErrGeocoder, http.StatusBadGateway},
	{errs.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
}

// writeError переводит доменную ошибку в HTTP-ответ {"error": ...}.
// Неизвестные ошибки логируются и скрываются за 500.
func writeError(c *gin.Context, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": m.err.Error()})
			return
		}
	}
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("handler: unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// writeBindError отвечает 400 и перечисляет поля, не прошедшие валидацию.
func writeBindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
}

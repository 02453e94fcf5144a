package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/rs/zerolog/log"
)

// maxJSONBody ограничивает JSON-тело входящего запроса.
const maxJSONBody = 1 << 20

// Document — JSON-документ без фиксированной схемы. Шлюз проверяет лишь, что это корректный
// JSON, и передаёт байты дальше: порядок ключей и неизвестные поля сохраняются.
type Document json.RawMessage

func decodeDocument(r io.Reader) (Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidBody, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, errs.ErrInvalidBody
	}
	return Document(raw), nil
}

// Handler возвращает gin-хендлер, проксирующий маршрут rt.
func (g *Gateway) Handler(rt Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := Outbound{
			Method:   rt.Method,
			Path:     rt.TargetPath(c.Param),
			RawQuery: c.Request.URL.RawQuery,
			Header:   make(http.Header),
		}
		if rt.ForwardAuth {
			if v, ok := c.Request.Header["Authorization"]; ok {
				out.Header["Authorization"] = v
			}
		}

		switch rt.Body {
		case BodyJSON:
			doc, err := decodeDocument(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
				return
			}
			out.Header.Set("Content-Type", "application/json")
			out.Body = bytes.NewReader(doc)
		case BodyMultipart:
			g.relayUpload(c, rt, out)
			return
		}

		g.respond(c, rt, out)
	}
}

func (g *Gateway) respond(c *gin.Context, rt Route, out Outbound) {
	resp, err := g.Forward(c.Request.Context(), rt.Facade, out)
	if err != nil {
		WriteUpstreamError(c, err)
		return
	}
	writeResponse(c, resp)
}

// WriteUpstreamError отвечает 503 с именем недоступного сервиса.
func WriteUpstreamError(c *gin.Context, err error) {
	service := ""
	var ue *errs.UpstreamError
	if errors.As(err, &ue) {
		service = ue.Service
	}
	if errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil {
		log.Debug().Str("service", service).Str("path", c.Request.URL.Path).Msg("gateway: client went away")
	} else {
		log.Error().Err(err).Str("service", service).Str("path", c.Request.URL.Path).Msg("gateway: upstream unavailable")
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   errs.ErrUpstreamUnavailable.Error(),
		"service": service,
	})
}

func writeResponse(c *gin.Context, resp *Response) {
	h := c.Writer.Header()
	for _, k := range relayedHeaders {
		if v := resp.Header.Values(k); len(v) > 0 {
			h[k] = v
		}
	}
	c.Status(resp.Status)
	c.Writer.WriteHeaderNow()
	if len(resp.Body) > 0 {
		_, _ = c.Writer.Write(resp.Body)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// relayUpload находит часть file во входящем multipart и потоково пишет её в новый multipart
// к media-сервису с тем же именем файла и Content-Type. Передаются только user_id и ticket_id.
func (g *Gateway) relayUpload(c *gin.Context, rt Route, out Outbound) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	q := url.Values{"user_id": {userID}}
	if ticketID := c.Query("ticket_id"); ticketID != "" {
		q.Set("ticket_id", ticketID)
	}
	out.RawQuery = q.Encode()

	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart body required"})
		return
	}
	var part *multipart.Part
	for {
		p, err := mr.NextPart()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if p.FormName() == "file" {
			part = p
			break
		}
		_ = p.Close()
	}
	defer part.Close()

	contentType := part.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(part.FileName())))
		h.Set("Content-Type", contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(w, part); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	out.Header.Set("Content-Type", mw.FormDataContentType())
	out.Body = pr
	g.respond(c, rt, out)
	// Писатель должен завершиться до закрытия part.
	_ = pr.Close()
	<-done
}

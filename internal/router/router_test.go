package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/psds-microservice/cityfix/internal/auth"
	"github.com/psds-microservice/cityfix/internal/config"
	"github.com/psds-microservice/cityfix/internal/gateway"
	"github.com/psds-microservice/cityfix/internal/handler"
	"github.com/psds-microservice/cityfix/internal/notifyclient"
	"github.com/psds-microservice/cityfix/internal/service"
	"github.com/psds-microservice/cityfix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordedEvents) ProduceTicketEvent(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordedEvents) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const ticketBody = `{"title":"Pothole","description":"Deep","location":{"lat":40.71,"lon":-74.0},"category":"roads","tenant_id":"M1"}`

func TestTicketRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	events := &recordedEvents{}
	notified := make(chan map[string]any, 1)
	notifySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		_ = json.NewDecoder(r.Body).Decode(&p)
		notified <- p
		w.WriteHeader(http.StatusCreated)
	}))
	defer notifySrv.Close()

	h := New(Handlers{
		Service: "ticket",
		Ticket:  handler.NewTicketHandler(service.NewTicketService(db, nil), events, notifyclient.NewClient(notifySrv.URL)),
	})

	w := do(t, h, http.MethodPost, "/tickets/create?user_id=U1", ticketBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := created["id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "U1", created["reported_by"])
	assert.Equal(t, []any{}, created["comments"])
	assert.Nil(t, created["feedback"])
	assert.Nil(t, created["assigned_to"])

	w = do(t, h, http.MethodGet, "/tickets/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPatch, "/tickets/"+id, `{"status":"in_progress"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "in_progress", updated["status"])
	assert.Equal(t, "Pothole", updated["title"])

	select {
	case p := <-notified:
		assert.Equal(t, "U1", p["user_id"])
		assert.Equal(t, id, p["ticket_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("status change notification was not sent")
	}

	w = do(t, h, http.MethodPost, "/tickets/"+id+"/comments", `{"user_id":"U2","message":"same here"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["comments"], 1)

	w = do(t, h, http.MethodPost, "/tickets/"+id+"/feedback", `{"rating":5,"comment":"fixed fast"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fb := decode(t, w)["feedback"].(map[string]any)
	assert.EqualValues(t, 5, fb["rating"])

	w = do(t, h, http.MethodGet, "/tickets/list?tenant_id=M1&user_id=U1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = do(t, h, http.MethodGet, "/tickets/list?tenant_id=other", "")
	assert.Equal(t, "[]", w.Body.String())

	assert.Eventually(t, func() bool { return len(events.snapshot()) == 4 }, 5*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"ticket.created", "ticket.updated", "ticket.commented", "ticket.feedback"}, events.snapshot())
}

func TestTicketRoutes_Errors(t *testing.T) {
	db := testutil.NewDB(t)
	h := New(Handlers{Service: "ticket", Ticket: handler.NewTicketHandler(service.NewTicketService(db, nil), &recordedEvents{}, nil)})

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/tickets/create", ticketBody).Code)

	w := do(t, h, http.MethodPost, "/tickets/create?user_id=U1", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]any)
	assert.Contains(t, fields, "description")

	w = do(t, h, http.MethodPost, "/tickets/create?user_id=U1", `{"title":"x","description":"y","location":{"lat":1},"category":"c","tenant_id":"M"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/tickets/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/tickets/"+uuid.NewString(), "").Code)

	w = do(t, h, http.MethodPost, "/tickets/create?user_id=U1", ticketBody)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/tickets/"+id, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/tickets/"+id+"/feedback", `{"rating":6}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/tickets/"+id+"/comments", `{"user_id":"U2"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/tickets/"+uuid.NewString()+"/comments", `{"user_id":"U2","message":"m"}`).Code)
}

func TestTicketRoutes_EmptyStringsAccepted(t *testing.T) {
	db := testutil.NewDB(t)
	h := New(Handlers{Service: "ticket", Ticket: handler.NewTicketHandler(service.NewTicketService(db, nil), &recordedEvents{}, nil)})

	body := `{"title":"Pothole","description":"","location":{"lat":1,"lon":2},"category":"roads","tenant_id":"M1"}`
	w := do(t, h, http.MethodPost, "/tickets/create?user_id=U1", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "", created["description"])
	id := created["id"].(string)

	w = do(t, h, http.MethodPost, "/tickets/"+id+"/comments", `{"user_id":"U2","message":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	comments := decode(t, w)["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "", comments[0].(map[string]any)["message"])

	// Отсутствующее поле по-прежнему обязательно.
	w = do(t, h, http.MethodPost, "/tickets/create?user_id=U1", `{"title":"x","location":{"lat":1,"lon":2},"category":"c","tenant_id":"M"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTicketRoutes_AssignUnassign(t *testing.T) {
	db := testutil.NewDB(t)
	h := New(Handlers{Service: "ticket", Ticket: handler.NewTicketHandler(service.NewTicketService(db, nil), &recordedEvents{}, nil)})

	w := do(t, h, http.MethodPost, "/tickets/create?user_id=U1", ticketBody)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = do(t, h, http.MethodPatch, "/tickets/"+id, `{"assigned_to":"op-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "op-1", decode(t, w)["assigned_to"])

	w = do(t, h, http.MethodPatch, "/tickets/"+id, `{"title":"Pothole, deep"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "op-1", decode(t, w)["assigned_to"])

	w = do(t, h, http.MethodPatch, "/tickets/"+id, `{"assigned_to":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode(t, w)
	assert.Contains(t, got, "assigned_to")
	assert.Nil(t, got["assigned_to"])
}

func TestTicketRoutes_NotifiesOnlyOnStatusChange(t *testing.T) {
	db := testutil.NewDB(t)
	notified := make(chan map[string]any, 4)
	notifySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		_ = json.NewDecoder(r.Body).Decode(&p)
		notified <- p
		w.WriteHeader(http.StatusCreated)
	}))
	defer notifySrv.Close()
	h := New(Handlers{
		Service: "ticket",
		Ticket:  handler.NewTicketHandler(service.NewTicketService(db, nil), &recordedEvents{}, notifyclient.NewClient(notifySrv.URL)),
	})

	w := do(t, h, http.MethodPost, "/tickets/create?user_id=U1", ticketBody)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPatch, "/tickets/"+id, `{"status":"in_progress"}`).Code)
	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Fatal("status change notification was not sent")
	}

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPatch, "/tickets/"+id, `{"status":"in_progress","title":"Renamed"}`).Code)
	select {
	case p := <-notified:
		t.Fatalf("unexpected notification for unchanged status: %v", p)
	case <-time.After(300 * time.Millisecond):
	}

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPatch, "/tickets/"+uuid.NewString(), `{"status":"completed"}`).Code)
}

func TestAdminRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	tickets := service.NewTicketService(db, nil)
	h := New(Handlers{
		Service: "admin",
		Admin:   handler.NewAdminHandler(service.NewAdminService(db, tickets, nil)),
		Ticket:  handler.NewTicketHandler(tickets, &recordedEvents{}, nil),
	})

	body := `{"name":"Springfield","location":{"lat":39.8,"lon":-89.6},"admin_id":"A1","bounds":{"type":"Polygon"}}`
	w := do(t, h, http.MethodPost, "/admin/municipalities", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/admin/municipalities", body).Code)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/tickets/create?user_id=U1", ticketBody).Code)
	}
	w = do(t, h, http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode(t, w)
	assert.EqualValues(t, 3, st["total_tickets"])
	assert.EqualValues(t, 3, st["pending_tickets"])
	assert.EqualValues(t, 1, st["total_municipalities"])

	w = do(t, h, http.MethodGet, "/admin/tickets/all", "")
	var all []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 3)
}

func TestNotificationRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	h := New(Handlers{Service: "notification", Notification: handler.NewNotificationHandler(service.NewNotificationService(db, nil))})

	w := do(t, h, http.MethodPost, "/notify/send", `{"user_id":"U1","message":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	n := decode(t, w)
	assert.Equal(t, "info", n["type"])
	assert.Equal(t, false, n["read"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/notify/send", `{"user_id":"U1","message":"x","type":"loud"}`).Code)

	w = do(t, h, http.MethodPatch, "/notify/"+n["id"].(string)+"/read", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["read"])

	w = do(t, h, http.MethodGet, "/notify/user/U1?unread_only=true", "")
	assert.Equal(t, "[]", w.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/notify/user/U1?unread_only=maybe", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPatch, "/notify/"+uuid.NewString()+"/read", "").Code)
}

func TestIdentityRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	jwtm, err := auth.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	h := New(Handlers{Service: "identity", Identity: handler.NewIdentityHandler(service.NewIdentityService(db, jwtm, nil))})

	w := do(t, h, http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"secret123"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/auth/register", `{"email":"bad","password":"secret123"}`).Code)
	long := `{"email":"b@example.com","password":"` + strings.Repeat("a", 73) + `"}`
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/auth/register", long).Code)
	// 37 рун, но 74 байта: проходит max=72 и отсекается на хешировании.
	wide := `{"email":"c@example.com","password":"` + strings.Repeat("é", 37) + `"}`
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/auth/register", wide).Code)

	w = do(t, h, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = do(t, h, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode(t, w)
	assert.Equal(t, "bearer", tok["token_type"])

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok["access_token"].(string))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@example.com", decode(t, w)["email"])

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/auth/me", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/auth/logout", "").Code)
}

func TestMediaRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	svc, err := service.NewMediaService(db, t.TempDir(), 1024, nil)
	require.NoError(t, err)
	h := New(Handlers{Service: "media", Media: handler.NewMediaHandler(svc)})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="pic.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/media/upload?user_id=U1", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	up := decode(t, w)
	fileID := up["file_id"].(string)
	assert.Equal(t, "/media/"+fileID, up["url"])
	assert.EqualValues(t, 3, up["size"])

	w = do(t, h, http.MethodGet, "/media/"+fileID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "pic.png")

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/media/"+fileID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/media/"+fileID, "").Code)
}

func TestHealthAndGatewayRoot(t *testing.T) {
	h := New(Handlers{Service: "geo"})
	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "geo", decode(t, w)["service"])

	urls := map[config.Facade]string{}
	for _, f := range config.Facades {
		urls[f] = "http://127.0.0.1:1"
	}
	gw := NewGateway(gateway.New(urls, time.Second), []string{"http://localhost:5173"})

	w = do(t, gw, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operational", decode(t, w)["status"])

	w = do(t, gw, http.MethodGet, "/health", "")
	assert.Equal(t, "orchestrator", decode(t, w)["service"])

	req := httptest.NewRequest(http.MethodOptions, "/tickets/list", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w = httptest.NewRecorder()
	gw.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, gw, http.MethodGet, "/swagger/openapi.json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, json.Valid(w.Body.Bytes()))
}

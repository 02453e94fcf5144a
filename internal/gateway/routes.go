package gateway

import (
	"net/url"
	"strings"

	"github.com/psds-microservice/cityfix/internal/config"
)

// BodyKind: как шлюз передаёт тело запроса.
type BodyKind int

const (
	// BodyNone: тело не передаётся.
	BodyNone BodyKind = iota
	// BodyJSON: тело обязано быть JSON-документом и передаётся байт в байт.
	BodyJSON
	// BodyMultipart: поле file потоково перекладывается в новый multipart-запрос.
	BodyMultipart
)

// Route связывает внешний маршрут (метод + шаблон пути gin) с backend-сервисом и путём в нём.
// Параметры вида :name в Target подставляются из внешнего пути.
type Route struct {
	Method      string
	Path        string
	Facade      config.Facade
	Target      string
	Body        BodyKind
	ForwardAuth bool
}

// Routes: статическая таблица маршрутизации шлюза.
var Routes = []Route{
	{Method: "POST", Path: "/auth/register", Facade: config.FacadeIdentity, Target: "/auth/register", Body: BodyJSON},
	{Method: "POST", Path: "/auth/login", Facade: config.FacadeIdentity, Target: "/auth/login", Body: BodyJSON},
	{Method: "GET", Path: "/auth/me", Facade: config.FacadeIdentity, Target: "/auth/me", ForwardAuth: true},
	{Method: "POST", Path: "/auth/logout", Facade: config.FacadeIdentity, Target: "/auth/logout"},

	{Method: "GET", Path: "/admin/municipalities", Facade: config.FacadeAdmin, Target: "/admin/municipalities"},
	{Method: "POST", Path: "/admin/municipalities", Facade: config.FacadeAdmin, Target: "/admin/municipalities", Body: BodyJSON},
	{Method: "GET", Path: "/admin/stats", Facade: config.FacadeAdmin, Target: "/admin/stats"},
	{Method: "GET", Path: "/admin/tickets/all", Facade: config.FacadeAdmin, Target: "/admin/tickets/all"},

	{Method: "POST", Path: "/tickets/create", Facade: config.FacadeTicket, Target: "/tickets/create", Body: BodyJSON},
	{Method: "GET", Path: "/tickets/list", Facade: config.FacadeTicket, Target: "/tickets/list"},
	{Method: "GET", Path: "/tickets/:id", Facade: config.FacadeTicket, Target: "/tickets/:id"},
	{Method: "PATCH", Path: "/tickets/:id", Facade: config.FacadeTicket, Target: "/tickets/:id", Body: BodyJSON},
	{Method: "POST", Path: "/tickets/:id/comments", Facade: config.FacadeTicket, Target: "/tickets/:id/comments", Body: BodyJSON},
	{Method: "POST", Path: "/tickets/:id/feedback", Facade: config.FacadeTicket, Target: "/tickets/:id/feedback", Body: BodyJSON},

	{Method: "POST", Path: "/media/upload", Facade: config.FacadeMedia, Target: "/media/upload", Body: BodyMultipart},
	{Method: "GET", Path: "/media/:file_id", Facade: config.FacadeMedia, Target: "/media/:file_id"},
	{Method: "DELETE", Path: "/media/:file_id", Facade: config.FacadeMedia, Target: "/media/:file_id"},

	{Method: "POST", Path: "/geo/geocode", Facade: config.FacadeGeo, Target: "/geo/geocode", Body: BodyJSON},
	{Method: "POST", Path: "/geo/reverse-geocode", Facade: config.FacadeGeo, Target: "/geo/reverse-geocode", Body: BodyJSON},
	{Method: "GET", Path: "/geo/map/tiles", Facade: config.FacadeGeo, Target: "/geo/map/tiles"},
	{Method: "GET", Path: "/geo/boundaries", Facade: config.FacadeGeo, Target: "/geo/boundaries"},

	{Method: "POST", Path: "/notify/send", Facade: config.FacadeNotification, Target: "/notify/send", Body: BodyJSON},
	{Method: "GET", Path: "/notify/user/:user_id", Facade: config.FacadeNotification, Target: "/notify/user/:user_id"},
	{Method: "PATCH", Path: "/notify/:id/read", Facade: config.FacadeNotification, Target: "/notify/:id/read"},
}

// TargetPath подставляет параметры пути; значения экранируются как сегменты пути.
func (r Route) TargetPath(param func(name string) string) string {
	segs := strings.Split(r.Target, "/")
	for i, s := range segs {
		if name, ok := strings.CutPrefix(s, ":"); ok {
			segs[i] = url.PathEscape(param(name))
		}
	}
	return strings.Join(segs, "/")
}

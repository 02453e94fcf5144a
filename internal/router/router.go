package router

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/psds-microservice/cityfix/api"
	"github.com/psds-microservice/cityfix/internal/gateway"
	"github.com/psds-microservice/cityfix/internal/handler"
	"github.com/psds-microservice/cityfix/internal/logging"
	"github.com/psds-microservice/helpy/paths"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers — хендлеры backend-сервиса. Регистрируются только ненулевые группы,
// поэтому один роутер обслуживает любой из сервисов.
type Handlers struct {
	Service      string
	Ticket       *handler.TicketHandler
	Admin        *handler.AdminHandler
	Notification *handler.NotificationHandler
	Identity     *handler.IdentityHandler
	Media        *handler.MediaHandler
	Geo          *handler.GeoHandler
}

var validatorOnce sync.Once

// useJSONFieldNames заставляет валидатор называть поля по json-тегам.
func useJSONFieldNames() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func base() *gin.Engine {
	useJSONFieldNames()
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware())
	r.GET(paths.PathReady, handler.Ready)
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(paths.PathSwagger+"/openapi.json"))(c)
	})
	return r
}

// New собирает роутер backend-сервиса.
func New(h Handlers) http.Handler {
	r := base()
	r.GET(paths.PathHealth, handler.Health(h.Service))

	if h.Identity != nil {
		g := r.Group("/auth")
		g.POST("/register", h.Identity.Register)
		g.POST("/login", h.Identity.Login)
		g.GET("/me", h.Identity.Me)
		g.POST("/logout", h.Identity.Logout)
	}
	if h.Admin != nil {
		g := r.Group("/admin")
		g.GET("/municipalities", h.Admin.ListMunicipalities)
		g.POST("/municipalities", h.Admin.CreateMunicipality)
		g.GET("/stats", h.Admin.Stats)
		g.GET("/tickets/all", h.Admin.AllTickets)
	}
	if h.Ticket != nil {
		g := r.Group("/tickets")
		g.POST("/create", h.Ticket.Create)
		g.GET("/list", h.Ticket.List)
		g.GET("/:id", h.Ticket.Get)
		g.PATCH("/:id", h.Ticket.Update)
		g.POST("/:id/comments", h.Ticket.AddComment)
		g.POST("/:id/feedback", h.Ticket.SetFeedback)
	}
	if h.Media != nil {
		g := r.Group("/media")
		g.POST("/upload", h.Media.Upload)
		g.GET("/:file_id", h.Media.Get)
		g.DELETE("/:file_id", h.Media.Delete)
	}
	if h.Geo != nil {
		g := r.Group("/geo")
		g.POST("/geocode", h.Geo.Geocode)
		g.POST("/reverse-geocode", h.Geo.Reverse)
		g.GET("/map/tiles", h.Geo.Tiles)
		g.GET("/boundaries", h.Geo.Boundaries)
	}
	if h.Notification != nil {
		g := r.Group("/notify")
		g.POST("/send", h.Notification.Send)
		g.GET("/user/:user_id", h.Notification.ListByUser)
		g.PATCH("/:id/read", h.Notification.MarkRead)
	}
	return r
}

// NewGateway собирает публичный роутер шлюза: таблица gateway.Routes плюс служебные маршруты, под CORS.
func NewGateway(gw *gateway.Gateway, corsOrigins []string) http.Handler {
	r := base()
	r.GET("/", handler.Root)
	r.GET(paths.PathHealth, handler.Health("orchestrator"))
	for _, rt := range gateway.Routes {
		r.Handle(rt.Method, rt.Path, gw.Handler(rt))
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/psds-microservice/cityfix/internal/auth"
	"github.com/psds-microservice/cityfix/internal/config"
	"github.com/psds-microservice/cityfix/internal/database"
	"github.com/psds-microservice/cityfix/internal/gateway"
	"github.com/psds-microservice/cityfix/internal/geocode"
	"github.com/psds-microservice/cityfix/internal/handler"
	"github.com/psds-microservice/cityfix/internal/kafka"
	"github.com/psds-microservice/cityfix/internal/notifyclient"
	"github.com/psds-microservice/cityfix/internal/router"
	"github.com/psds-microservice/cityfix/internal/service"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// API — HTTP-сервер одного процесса: шлюза или backend-сервиса.
type API struct {
	name    string
	cfg     *config.Config
	httpSrv *http.Server
	closers []io.Closer
}

func newServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// NewGateway создаёт шлюз. База данных ему не нужна.
func NewGateway(cfg *config.Config) (*API, error) {
	if err := cfg.ValidateGateway(); err != nil {
		return nil, err
	}
	gw := gateway.New(cfg.ServiceURLs, cfg.UpstreamTimeout)
	return &API{
		name:    "gateway",
		cfg:     cfg,
		httpSrv: newServer(cfg, router.NewGateway(gw, cfg.CORSOrigins)),
	}, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return db, nil
}

// NewService создаёт backend-сервис f: миграции, БД, сервисный слой и роутер.
func NewService(ctx context.Context, cfg *config.Config, f config.Facade) (*API, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	clock := service.NewClock(nil)
	a := &API{name: string(f), cfg: cfg}
	h := router.Handlers{Service: string(f)}

	switch f {
	case config.FacadeTicket:
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
		if producer.Enabled() {
			a.closers = append(a.closers, producer)
		}
		h.Ticket = handler.NewTicketHandler(
			service.NewTicketService(db, clock),
			producer,
			notifyclient.NewClient(cfg.NotificationServiceURL),
		)
	case config.FacadeAdmin:
		h.Admin = handler.NewAdminHandler(service.NewAdminService(db, service.NewTicketService(db, clock), clock))
	case config.FacadeNotification:
		h.Notification = handler.NewNotificationHandler(service.NewNotificationService(db, clock))
	case config.FacadeIdentity:
		if err := cfg.ValidateIdentity(); err != nil {
			return nil, err
		}
		jwtm, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpire)
		if err != nil {
			return nil, err
		}
		h.Identity = handler.NewIdentityHandler(service.NewIdentityService(db, jwtm, clock))
	case config.FacadeMedia:
		svc, err := service.NewMediaService(db, cfg.UploadDir, cfg.MaxFileSize, clock)
		if err != nil {
			return nil, err
		}
		h.Media = handler.NewMediaHandler(svc)
	case config.FacadeGeo:
		var cache geocode.Cache = geocode.NewMemoryCache(cfg.GeocodeCacheTTL)
		if cfg.Redis.Addr != "" {
			rc, err := geocode.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.GeocodeCacheTTL)
			if err != nil {
				log.Warn().Err(err).Msg("geo: redis unavailable, using in-process cache")
			} else {
				cache = rc
				a.closers = append(a.closers, rc)
			}
		}
		geocoder := geocode.NewCached(geocode.NewNominatim(cfg.NominatimURL), cache)
		h.Geo = handler.NewGeoHandler(service.NewGeoService(db, geocoder))
	default:
		return nil, fmt.Errorf("unknown service %q", f)
	}

	a.httpSrv = newServer(cfg, router.New(h))
	return a, nil
}

// Run запускает HTTP-сервер и блокируется до отмены ctx, затем мягко останавливается.
func (a *API) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.httpSrv.Addr).Str("env", a.cfg.AppEnv).Msgf("%s listening", a.name)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.httpSrv.Shutdown(shutdownCtx)
	for _, c := range a.closers {
		if cerr := c.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close")
		}
	}
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msgf("%s stopped", a.name)
	return nil
}

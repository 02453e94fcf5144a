package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Facade: имя backend-сервиса, в который шлюз проксирует запросы.
type Facade string

const (
	FacadeIdentity     Facade = "identity"
	FacadeAdmin        Facade = "admin"
	FacadeTicket       Facade = "ticket"
	FacadeMedia        Facade = "media"
	FacadeGeo          Facade = "geo"
	FacadeNotification Facade = "notification"
)

// Facades перечисляет все backend-сервисы в порядке регистрации маршрутов шлюза.
var Facades = []Facade{
	FacadeIdentity, FacadeAdmin, FacadeTicket, FacadeMedia, FacadeGeo, FacadeNotification,
}

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// ServiceURLs: базовые адреса backend-сервисов (AUTH_SERVICE_URL, TICKET_SERVICE_URL, ...).
	ServiceURLs map[Facade]string
	// UpstreamTimeout: общий таймаут одного проксируемого запроса. Повторов нет.
	UpstreamTimeout time.Duration
	CORSOrigins     []string

	JWTSecret string
	JWTExpire time.Duration

	UploadDir   string
	MaxFileSize int64

	NominatimURL    string
	GeocodeCacheTTL time.Duration
	Redis           struct {
		Addr     string
		Password string
		DB       int
	}

	KafkaBrokers     []string
	KafkaTopicTicket string

	// NotificationServiceURL: если задан, ticket-сервис уведомляет автора тикета о смене статуса.
	NotificationServiceURL string

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:  getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort: firstEnv("APP_PORT", "HTTP_PORT", "PORT", "8000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		ServiceURLs: map[Facade]string{
			FacadeIdentity:     getEnv("AUTH_SERVICE_URL", "http://localhost:8001"),
			FacadeAdmin:        getEnv("ADMIN_SERVICE_URL", "http://localhost:8002"),
			FacadeTicket:       getEnv("TICKET_SERVICE_URL", "http://localhost:8003"),
			FacadeMedia:        getEnv("MEDIA_SERVICE_URL", "http://localhost:8004"),
			FacadeGeo:          getEnv("GEO_SERVICE_URL", "http://localhost:8005"),
			FacadeNotification: getEnv("NOTIFICATION_SERVICE_URL", "http://localhost:8006"),
		},
		CORSOrigins:            splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		UploadDir:              getEnv("UPLOAD_DIR", "uploads"),
		NominatimURL:           getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		KafkaBrokers:           splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicTicket:       getEnv("KAFKA_TOPIC_TICKET", ""),
		NotificationServiceURL: os.Getenv("NOTIFICATION_SERVICE_URL"),
	}

	var err error
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheTTL, err = getDuration("GEOCODE_CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	expireMin, err := getInt("JWT_EXPIRE_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.JWTExpire = time.Duration(expireMin) * time.Minute
	maxSize, err := getInt("MAX_FILE_SIZE", 10*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.MaxFileSize = int64(maxSize)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "cityfix")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.Host == "" || c.DB.Database == "" {
		return errors.New("config: DB_HOST and DB_DATABASE are required")
	}
	if c.AppEnv == "production" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("config: UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}

// ValidateGateway проверяет только то, что нужно шлюзу: адреса всех backend-сервисов.
func (c *Config) ValidateGateway() error {
	for _, f := range Facades {
		raw := c.ServiceURLs[f]
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: invalid %s service url %q", f, raw)
		}
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("config: UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}

// ValidateIdentity требует JWT_SECRET вне development.
func (c *Config) ValidateIdentity() error {
	if c.JWTSecret == "" {
		if c.AppEnv != "development" {
			return errors.New("config: JWT_SECRET is required")
		}
		c.JWTSecret = "development-secret-change-me"
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

// getDuration принимает как "15s", так и целое число секунд.
func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

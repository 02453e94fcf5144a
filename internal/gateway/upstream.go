package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/psds-microservice/cityfix/internal/config"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// maxResponseSize ограничивает тело ответа backend-сервиса, которое шлюз держит в памяти.
const maxResponseSize = 64 << 20

// relayedHeaders: заголовки ответа, которые шлюз передаёт клиенту без изменений.
var relayedHeaders = []string{"Content-Type", "Content-Disposition", "WWW-Authenticate", "Cache-Control"}

// Response: ответ backend-сервиса, полностью прочитанный до отправки клиенту.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// upstream: клиент и предохранитель одного backend-сервиса. Живёт всё время процесса.
type upstream struct {
	facade  config.Facade
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[*Response]
}

func newUpstream(f config.Facade, baseURL string) *upstream {
	name := "gateway-" + string(f)
	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Отключение клиента: не сбой backend-сервиса.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("gateway: circuit breaker state")
		},
	})
	return &upstream{
		facade:  f,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			// Редиректы backend-сервиса отдаются клиенту как есть.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		cb: cb,
	}
}

// do выполняет запрос через предохранитель. Любой статус backend-сервиса: успешный обмен;
// ошибки транспорта, таймаут и разомкнутая цепь превращаются в *errs.UpstreamError.
func (u *upstream) do(req *http.Request) (*Response, error) {
	resp, err := u.cb.Execute(func() (*Response, error) {
		r, err := u.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer r.Body.Close()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return &Response{Status: r.StatusCode, Header: r.Header, Body: body}, nil
	})
	if err != nil {
		return nil, &errs.UpstreamError{Service: string(u.facade), Err: err}
	}
	return resp, nil
}

// Gateway владеет клиентами backend-сервисов; клиент создаётся при первом обращении.
type Gateway struct {
	urls    map[config.Facade]string
	timeout time.Duration

	mu        sync.Mutex
	upstreams map[config.Facade]*upstream
}

func New(urls map[config.Facade]string, timeout time.Duration) *Gateway {
	return &Gateway{
		urls:      urls,
		timeout:   timeout,
		upstreams: make(map[config.Facade]*upstream),
	}
}

func (g *Gateway) upstream(f config.Facade) (*upstream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if u, ok := g.upstreams[f]; ok {
		return u, nil
	}
	base, ok := g.urls[f]
	if !ok || base == "" {
		return nil, &errs.UpstreamError{Service: string(f), Err: errors.New("service url not configured")}
	}
	u := newUpstream(f, base)
	g.upstreams[f] = u
	return u, nil
}

// Outbound: исходящий запрос к backend-сервису.
type Outbound struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     io.Reader
}

// Forward отправляет запрос в backend-сервис с ограниченным таймаутом и без повторов:
// проксируемые операции (например, создание тикета) не идемпотентны.
func (g *Gateway) Forward(ctx context.Context, f config.Facade, out Outbound) (*Response, error) {
	u, err := g.upstream(f)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	target := u.baseURL + out.Path
	if out.RawQuery != "" {
		target += "?" + out.RawQuery
	}
	req, err := http.NewRequestWithContext(ctx, out.Method, target, out.Body)
	if err != nil {
		return nil, &errs.UpstreamError{Service: string(f), Err: err}
	}
	for k, vs := range out.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return u.do(req)
}

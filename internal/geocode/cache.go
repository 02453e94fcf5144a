package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache хранит сериализованные результаты геокодирования.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// MemoryCache — кэш процесса на go-cache.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte) {
	m.c.Set(key, value, gocache.DefaultExpiration)
}

// RedisCache — общий кэш для нескольких экземпляров geo-сервиса.
// Ошибки Redis не прерывают запрос: промах и запись логируются.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("geocode cache: get")
		}
		return nil, false
	}
	return b, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("geocode cache: set")
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Cached оборачивает Geocoder кэшем. Отрицательные ответы не кэшируются.
type Cached struct {
	next  Geocoder
	cache Cache
}

func NewCached(next Geocoder, cache Cache) *Cached {
	return &Cached{next: next, cache: cache}
}

func (c *Cached) lookup(ctx context.Context, key string, fetch func() (*Place, error)) (*Place, error) {
	if b, ok := c.cache.Get(ctx, key); ok {
		var p Place
		if err := json.Unmarshal(b, &p); err == nil {
			return &p, nil
		}
	}
	p, err := fetch()
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		c.cache.Set(ctx, key, b)
	}
	return p, nil
}

func (c *Cached) Geocode(ctx context.Context, address string) (*Place, error) {
	return c.lookup(ctx, "geo:fwd:"+address, func() (*Place, error) {
		return c.next.Geocode(ctx, address)
	})
}

func (c *Cached) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	key := "geo:rev:" + strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lon, 'f', 6, 64)
	return c.lookup(ctx, key, func() (*Place, error) {
		return c.next.Reverse(ctx, lat, lon)
	})
}

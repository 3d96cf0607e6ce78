package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dzoniops/rental-service/models"
)

type PropertyCache struct {
	cli    *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func New(addr string, ttl time.Duration) *PropertyCache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

func NewWithClient(cli *redis.Client, ttl time.Duration) *PropertyCache {
	return &PropertyCache{
		cli:    cli,
		ttl:    ttl,
		tracer: otel.Tracer("github.com/dzoniops/rental-service/cache"),
	}
}

func (c *PropertyCache) Ping(ctx context.Context) error {
	return c.cli.Ping(ctx).Err()
}

func (c *PropertyCache) Close() error {
	return c.cli.Close()
}

// Get returns (nil, nil) on a miss.
func (c *PropertyCache) Get(ctx context.Context, id string) (*models.Property, error) {
	ctx, span := c.tracer.Start(ctx, "PropertyCache.Get")
	defer span.End()

	raw, err := c.cli.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	var property models.Property
	if err := json.Unmarshal(raw, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

func (c *PropertyCache) Set(ctx context.Context, property *models.Property) error {
	ctx, span := c.tracer.Start(ctx, "PropertyCache.Set")
	defer span.End()

	raw, err := json.Marshal(property)
	if err != nil {
		return err
	}
	return c.cli.Set(ctx, key(property.ID), raw, c.ttl).Err()
}

func (c *PropertyCache) Invalidate(ctx context.Context, id string) error {
	ctx, span := c.tracer.Start(ctx, "PropertyCache.Invalidate")
	defer span.End()

	return c.cli.Del(ctx, key(id)).Err()
}

func key(id string) string {
	return "property:" + id
}

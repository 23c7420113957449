package exporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes exported events to a Redis pub/sub channel, one
// JSON-encoded batch per publish, using the same client-construction and
// ping-on-connect shape as this daemon's other Redis-backed clients.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink parses addr as a redis:// URL (a value ParseURL rejects,
// such as a bare host:port, is used as a plain address) and pings it before
// returning, so a misconfigured sink fails at environment startup rather
// than on the first flush.
func NewRedisSink(ctx context.Context, addr, channel string) (*RedisSink, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("exporter: connect redis sink: %w", err)
	}
	return &RedisSink{client: client, channel: channel}, nil
}

func (s *RedisSink) Write(ctx context.Context, events []Event) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("exporter: marshal redis batch: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, raw).Err(); err != nil {
		return fmt.Errorf("exporter: publish redis batch: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error { return s.client.Close() }

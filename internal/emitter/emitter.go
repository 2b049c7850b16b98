// Package emitter publishes committed credit and balance changes to
// downstream consumers.
package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vietddude/walletnotify/internal/core/domain"
	redisclient "github.com/vietddude/walletnotify/internal/infra/redis"
	"github.com/vietddude/walletnotify/internal/metrics"
)

// Emitter defines the interface for emitting wallet events
type Emitter interface {
	// Emit sends a single event
	Emit(ctx context.Context, event *domain.Event) error

	// Close closes the emitter connection
	Close() error
}

// LogEmitter writes events to the structured log.
type LogEmitter struct {
	log *slog.Logger
}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{log: slog.Default().With("component", "emitter")}
}

func (e *LogEmitter) Emit(ctx context.Context, event *domain.Event) error {
	e.log.Info("event",
		"type", event.Type,
		"network", event.Network,
		"ref_id", event.RefID,
		"account_id", event.AccountID,
		"amount", event.Amount,
		"state", event.State,
		"available", event.Available,
		"total", event.Total,
	)
	metrics.EventsEmitted.WithLabelValues(string(event.Type), "ok").Inc()
	return nil
}

func (e *LogEmitter) Close() error { return nil }

// publisher is the subset of the Redis client the stream emitter uses.
type publisher interface {
	Publish(ctx context.Context, stream string, maxLen int64, values []any) (string, error)
	Close() error
}

// RedisEmitter appends events to a per-network Redis stream.
type RedisEmitter struct {
	client publisher
	prefix string
	maxLen int64
}

func NewRedisEmitter(client *redisclient.Client, prefix string, maxLen int64) *RedisEmitter {
	return newRedisEmitter(client, prefix, maxLen)
}

func newRedisEmitter(client publisher, prefix string, maxLen int64) *RedisEmitter {
	if maxLen <= 0 {
		maxLen = redisclient.DefaultStreamMaxLen
	}
	return &RedisEmitter{client: client, prefix: prefix, maxLen: maxLen}
}

func (e *RedisEmitter) Emit(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = e.client.Publish(ctx, redisclient.StreamKey(e.prefix, event.Network), e.maxLen, []any{
		"type", string(event.Type),
		"payload", string(payload),
	})
	if err != nil {
		metrics.EventsEmitted.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	metrics.EventsEmitted.WithLabelValues(string(event.Type), "ok").Inc()
	return nil
}

func (e *RedisEmitter) Close() error {
	return e.client.Close()
}

// Multi fans an event out to several emitters and returns the first error.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, event *domain.Event) error {
	var first error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, e := range m {
		if err := e.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

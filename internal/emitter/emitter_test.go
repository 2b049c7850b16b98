package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/walletnotify/internal/core/domain"
	redisclient "github.com/vietddude/walletnotify/internal/infra/redis"
)

func TestRedisEmitter_PublishesToNetworkStream(t *testing.T) {
	db, mock := redismock.NewClientMock()
	e := NewRedisEmitter(redisclient.Wrap(db), "walletnotify", 500)

	event := domain.NewBalanceEvent(&domain.BalanceSnapshot{
		Available: 100,
		Total:     150,
		Network:   "bitcoin",
		Time:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	payload, _ := json.Marshal(event)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "walletnotify:bitcoin",
		MaxLen: 500,
		Approx: true,
		Values: []any{"type", "balance_updated", "payload", string(payload)},
	}).SetVal("1-0")

	if err := e.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

type failingPublisher struct{ closed bool }

func (f *failingPublisher) Publish(ctx context.Context, stream string, maxLen int64, values []any) (string, error) {
	return "", errors.New("connection refused")
}

func (f *failingPublisher) Close() error {
	f.closed = true
	return nil
}

func TestMulti_ContinuesAfterFailure(t *testing.T) {
	failing := newRedisEmitter(&failingPublisher{}, "walletnotify", 0)
	recorder := &recordingEmitter{}
	m := Multi{failing, recorder}

	err := m.Emit(context.Background(), &domain.Event{Type: domain.EventTypeCreditReceived, Network: "bitcoin"})
	if err == nil {
		t.Error("expected error from failing emitter")
	}
	if len(recorder.events) != 1 {
		t.Errorf("second emitter saw %d events, want 1", len(recorder.events))
	}
}

type recordingEmitter struct {
	events []*domain.Event
}

func (r *recordingEmitter) Emit(ctx context.Context, event *domain.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) Close() error { return nil }

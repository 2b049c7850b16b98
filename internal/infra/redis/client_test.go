package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
)

func TestClient_PublishTrimsApproximately(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	values := []any{"type", "balance_updated"}
	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "walletnotify:bitcoin",
		MaxLen: 1000,
		Approx: true,
		Values: values,
	}).SetVal("1-0")

	id, err := c.Publish(context.Background(), StreamKey("walletnotify", "bitcoin"), 1000, values)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if id != "1-0" {
		t.Errorf("id = %q, want 1-0", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestClient_PublishError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	values := []any{"type", "x"}
	mock.ExpectXAdd(&redis.XAddArgs{Stream: "s", Values: values}).SetErr(errors.New("READONLY"))

	if _, err := c.Publish(context.Background(), "s", 0, values); err == nil {
		t.Error("expected error")
	}
}

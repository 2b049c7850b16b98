package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/walletnotify/internal/infra/storage/memory"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLedger_CurrentWithoutSnapshotIsZero(t *testing.T) {
	l := New(memory.NewMemoryStorage(), "BTC")

	snap, err := l.Current(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap.Available != 0 || snap.Total != 0 {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
}

func TestLedger_AdjustBuildsOnCurrent(t *testing.T) {
	ctx := context.Background()
	l := New(memory.NewMemoryStorage(), "BTC")

	if _, err := l.Reground(ctx, "bitcoin", 500, 800); err != nil {
		t.Fatalf("Reground: %v", err)
	}
	if _, err := l.Adjust(ctx, "bitcoin", Delta{Total: 50000000}); err != nil {
		t.Fatalf("Adjust: %v", err)
	}

	snap, err := l.Current(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap.Available != 500 || snap.Total != 50000800 {
		t.Errorf("got available=%d total=%d", snap.Available, snap.Total)
	}
}

func TestLedger_SendDecrementsBothFromZero(t *testing.T) {
	l := New(memory.NewMemoryStorage(), "BTC")

	snap, err := l.Adjust(context.Background(), "bitcoin", Delta{Available: -1000000, Total: -1000000})
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if snap.Available != -1000000 || snap.Total != -1000000 {
		t.Errorf("got %+v", snap)
	}
}

func TestLedger_TiesBrokenByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	l := New(memory.NewMemoryStorage(), "BTC")
	l.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, total := range []int64{10, 20, 30} {
		if _, err := l.Reground(ctx, "bitcoin", total, total); err != nil {
			t.Fatalf("Reground: %v", err)
		}
	}

	snap, _ := l.Current(ctx, "bitcoin")
	if snap.Total != 30 {
		t.Errorf("expected the last inserted snapshot, got total=%d", snap.Total)
	}
}

func TestLedger_LaterTimeWinsOverLaterInsert(t *testing.T) {
	ctx := context.Background()
	l := New(memory.NewMemoryStorage(), "BTC")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	l.now = fixedClock(t0.Add(time.Minute))
	_, _ = l.Reground(ctx, "bitcoin", 1, 1)
	l.now = fixedClock(t0)
	_, _ = l.Reground(ctx, "bitcoin", 2, 2)

	snap, _ := l.Current(ctx, "bitcoin")
	if snap.Total != 1 {
		t.Errorf("expected most recent by time, got total=%d", snap.Total)
	}
}

func TestLedger_FailedCommitLeavesBalanceUnchanged(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	l := New(store, "BTC")

	if _, err := l.Reground(ctx, "bitcoin", 100, 100); err != nil {
		t.Fatalf("Reground: %v", err)
	}

	store.SetCommitHook(func() error { return errors.New("commit failed") })
	if _, err := l.Adjust(ctx, "bitcoin", Delta{Total: 5}); err == nil {
		t.Fatal("expected error")
	}
	store.SetCommitHook(nil)

	snap, _ := l.Current(ctx, "bitcoin")
	if snap.Total != 100 {
		t.Errorf("total = %d, want 100", snap.Total)
	}
}

func TestLedger_InitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := New(memory.NewMemoryStorage(), "BTC")

	_, created, err := l.Init(ctx, "bitcoin")
	if err != nil || !created {
		t.Fatalf("first Init: created=%v err=%v", created, err)
	}
	if _, err := l.Adjust(ctx, "bitcoin", Delta{Total: 7}); err != nil {
		t.Fatal(err)
	}
	snap, created, err := l.Init(ctx, "bitcoin")
	if err != nil || created {
		t.Fatalf("second Init: created=%v err=%v", created, err)
	}
	if snap.Total != 7 {
		t.Errorf("Init overwrote balance: %+v", snap)
	}
}

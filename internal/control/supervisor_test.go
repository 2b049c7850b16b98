package control

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/emitter"
	"github.com/vietddude/walletnotify/internal/infra/storage/memory"
	"github.com/vietddude/walletnotify/internal/ledger"
	"github.com/vietddude/walletnotify/internal/notify"
	"github.com/vietddude/walletnotify/internal/reconcile"
)

type stubNode struct {
	mu     sync.Mutex
	txs    map[string]*domain.TransactionDetail
	blocks int64
	total  float64
}

func (n *stubNode) GetNewAddress(ctx context.Context) (string, error) { return "", nil }

func (n *stubNode) ValidateAddress(address, netcode string) bool { return true }

func (n *stubNode) SendToAddress(ctx context.Context, address string, amount int64) (string, error) {
	return "", nil
}

func (n *stubNode) GetTransaction(ctx context.Context, txid string) (*domain.TransactionDetail, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	tx, ok := n.txs[txid]
	if !ok {
		return nil, errors.New("Invalid or non-wallet transaction id")
	}
	cp := *tx
	return &cp, nil
}

func (n *stubNode) GetBalance(ctx context.Context, account string, minConf int) (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.total, nil
}

func (n *stubNode) GetInfo(ctx context.Context) (*domain.NodeInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return &domain.NodeInfo{Blocks: n.blocks, Balance: n.total}, nil
}

func (n *stubNode) confirm(txid string, confirmations, blocks int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.txs[txid].Confirmations = confirmations
	n.blocks = blocks
}

func send(t *testing.T, path string, rec domain.NotificationRecord) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := notify.Send(path, rec)
		if err == nil {
			return
		}
		if !errors.Is(err, notify.ErrNoReader) || time.Now().After(deadline) {
			t.Fatalf("Send: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSupervisor_EndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	const addr = "bc1qdeposit"
	ctx := context.Background()
	node := &stubNode{
		txs: map[string]*domain.TransactionDetail{
			"tx1": {TxID: "tx1", Outputs: []domain.TransactionOutput{
				{Category: domain.CategoryReceive, Address: addr, Amount: 0.5},
			}},
		},
		blocks: 100,
		total:  0.5,
	}
	store := memory.NewMemoryStorage()
	if err := store.Addresses().Save(ctx, &domain.Address{Address: addr, AccountID: 7, Network: "bitcoin"}); err != nil {
		t.Fatal(err)
	}
	l := ledger.New(store, "BTC")
	em := emitter.NewLogEmitter()
	cfg := reconcile.Config{Network: "bitcoin", Currency: "BTC", Confirmations: 3, CallTimeout: time.Second}

	path := filepath.Join(t.TempDir(), "walletnotify.pipe")
	sup := NewSupervisor(
		PipeConfig{Path: path, Mode: 0o600},
		"bitcoin",
		func(q *notify.TxQueue) *reconcile.TxWorker {
			return reconcile.NewTxWorker(cfg, node, store, l, nil, em, q)
		},
		func(c *notify.Coalescer) *reconcile.BlockWorker {
			return reconcile.NewBlockWorker(cfg, node, store, l, em, c)
		},
	)
	if err := sup.Start(ctx); err != nil {
		t.Fatal(err)
	}

	send(t, path, domain.NotificationRecord{Network: "bitcoin", Type: domain.NotificationTransaction, Data: "tx1"})
	eventually(t, "pending credit", func() bool {
		pending, err := store.Credits().ListUnconfirmed(ctx, "bitcoin")
		return err == nil && len(pending) == 1
	})

	node.confirm("tx1", 3, 101)
	send(t, path, domain.NotificationRecord{Network: "bitcoin", Type: domain.NotificationBlock, Data: "hash101"})
	eventually(t, "block rescan", func() bool { return sup.LastHeight() == 101 })

	pending, err := store.Credits().ListUnconfirmed(ctx, "bitcoin")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending credits after confirmation, want 0", len(pending))
	}

	snap, err := l.Current(ctx, "bitcoin")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Available != 50_000_000 || snap.Total != 50_000_000 {
		t.Errorf("balance = %d/%d, want 50000000/50000000", snap.Available, snap.Total)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sup.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sup.QueueDepth() != 0 {
		t.Errorf("queue depth after stop = %d", sup.QueueDepth())
	}
}

func TestSupervisor_StopWhileWaitingForWriter(t *testing.T) {
	defer goleak.VerifyNone(t)

	node := &stubNode{txs: map[string]*domain.TransactionDetail{}}
	store := memory.NewMemoryStorage()
	l := ledger.New(store, "BTC")
	em := emitter.NewLogEmitter()
	cfg := reconcile.Config{Network: "bitcoin", Currency: "BTC", Confirmations: 1}

	path := filepath.Join(t.TempDir(), "walletnotify.pipe")
	sup := NewSupervisor(
		PipeConfig{Path: path, Mode: 0o600},
		"bitcoin",
		func(q *notify.TxQueue) *reconcile.TxWorker {
			return reconcile.NewTxWorker(cfg, node, store, l, nil, em, q)
		},
		func(c *notify.Coalescer) *reconcile.BlockWorker {
			return reconcile.NewBlockWorker(cfg, node, store, l, em, c)
		},
	)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// A second stop is a no-op.
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestSupervisor_StopPastDeadlineStillClosesQueues(t *testing.T) {
	node := &stubNode{txs: map[string]*domain.TransactionDetail{}}
	store := memory.NewMemoryStorage()
	l := ledger.New(store, "BTC")
	cfg := reconcile.Config{Network: "bitcoin", Currency: "BTC", Confirmations: 1}
	sup := NewSupervisor(
		PipeConfig{Path: filepath.Join(t.TempDir(), "walletnotify.pipe"), Mode: 0o600},
		"bitcoin",
		func(q *notify.TxQueue) *reconcile.TxWorker {
			return reconcile.NewTxWorker(cfg, node, store, l, nil, nil, q)
		},
		func(c *notify.Coalescer) *reconcile.BlockWorker {
			return reconcile.NewBlockWorker(cfg, node, store, l, nil, c)
		},
	)
	// A read loop that never finishes.
	sup.cancel = func() {}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sup.Stop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Stop: got %v, want context.Canceled", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := sup.queue.Pop(); ok {
			t.Error("queue still open after Stop")
		}
		if sup.signals.Wait() {
			t.Error("block trigger still open after Stop")
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers would block forever after Stop")
	}
}

package notify

import (
	"sync"

	"github.com/vietddude/walletnotify/internal/metrics"
)

// TxQueue is an unbounded FIFO of transaction ids. Close acts as the
// end-of-stream marker: items pushed before Close are still delivered.
type TxQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func NewTxQueue() *TxQueue {
	q := &TxQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a txid. It never blocks; pushes after Close are dropped.
func (q *TxQueue) Push(txid string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, txid)
	metrics.TxQueueDepth.Set(float64(len(q.items)))
	q.cond.Signal()
	return true
}

// Pop blocks until an item is available. ok is false once the queue is
// closed and drained.
func (q *TxQueue) Pop() (txid string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return "", false
	}
	txid = q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	metrics.TxQueueDepth.Set(float64(len(q.items)))
	return txid, true
}

// Len returns the number of pending items.
func (q *TxQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the end of the stream. Safe to call more than once.
func (q *TxQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

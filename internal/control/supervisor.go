package control

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/vietddude/walletnotify/internal/metrics"
	"github.com/vietddude/walletnotify/internal/notify"
	"github.com/vietddude/walletnotify/internal/reconcile"
)

// PipeConfig describes the notification endpoint.
type PipeConfig struct {
	Path  string
	Mode  uint32
	Group string
}

// Supervisor owns the notification endpoint and the two workers fed by it.
type Supervisor struct {
	pipe    PipeConfig
	reader  *notify.Reader
	queue   *notify.TxQueue
	signals *notify.Coalescer
	txs     *reconcile.TxWorker
	blocks  *reconcile.BlockWorker
	log     *slog.Logger

	mu       sync.Mutex
	current  *os.File
	stopped  bool
	cancel   context.CancelFunc
	readDone chan struct{}
	workers  sync.WaitGroup
}

// NewSupervisor wires a reader to its workers through a fresh queue and trigger.
func NewSupervisor(
	pipe PipeConfig,
	network string,
	newTxWorker func(*notify.TxQueue) *reconcile.TxWorker,
	newBlockWorker func(*notify.Coalescer) *reconcile.BlockWorker,
) *Supervisor {
	queue := notify.NewTxQueue()
	signals := notify.NewCoalescer()
	return &Supervisor{
		pipe:     pipe,
		reader:   notify.NewReader(network, queue, signals),
		queue:    queue,
		signals:  signals,
		txs:      newTxWorker(queue),
		blocks:   newBlockWorker(signals),
		log:      slog.Default().With("component", "supervisor"),
		readDone: make(chan struct{}),
	}
}

// Start creates the endpoint and launches the workers and the read loop.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := notify.EnsurePipe(s.pipe.Path, s.pipe.Mode, s.pipe.Group); err != nil {
		return err
	}

	// Workers outlive ctx; they stop when their queues are closed.
	workCtx := context.WithoutCancel(ctx)
	s.workers.Add(2)
	go func() {
		defer s.workers.Done()
		s.txs.Run(workCtx)
	}()
	go func() {
		defer s.workers.Done()
		s.blocks.Run(workCtx)
	}()

	readCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.readLoop(readCtx)

	s.log.Info("listening for notifications", "pipe", s.pipe.Path)
	return nil
}

// readLoop reopens the pipe every time the last writer goes away.
func (s *Supervisor) readLoop(ctx context.Context) {
	defer close(s.readDone)
	for {
		f, err := notify.OpenPipe(ctx, s.pipe.Path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("failed to open pipe", "pipe", s.pipe.Path, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if !s.setCurrent(f) {
			_ = f.Close()
			return
		}
		err = s.reader.Read(ctx, f)
		s.setCurrent(nil)
		_ = f.Close()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Error("pipe read failed", "error", err)
		}
		metrics.PipeReopens.Inc()
	}
}

func (s *Supervisor) setCurrent(f *os.File) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped && f != nil {
		return false
	}
	s.current = f
	return true
}

// Stop ends the read loop, lets both workers drain and waits for them
// until ctx expires.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	if s.current != nil {
		notify.Interrupt(s.current)
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-s.readDone:
		case <-ctx.Done():
			// Workers still get their sentinels so they drain and exit.
			s.queue.Close()
			s.signals.Close()
			s.log.Warn("shutdown deadline reached before the reader stopped")
			return ctx.Err()
		}
	}

	s.queue.Close()
	s.signals.Close()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("workers drained")
		return nil
	case <-ctx.Done():
		s.log.Warn("shutdown deadline reached with work in flight", "queued", s.queue.Len())
		return ctx.Err()
	}
}

// LastHeight implements health.Progress.
func (s *Supervisor) LastHeight() int64 { return s.blocks.LastHeight() }

// QueueDepth implements health.Progress.
func (s *Supervisor) QueueDepth() int { return s.queue.Len() }

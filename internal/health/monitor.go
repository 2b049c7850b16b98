package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/infra/storage"
)

// NodeProbe reports the node's current height.
type NodeProbe interface {
	GetInfo(ctx context.Context) (*domain.NodeInfo, error)
}

// Progress exposes how far the pipeline has got.
type Progress interface {
	// LastHeight is the last block height the block worker handled
	LastHeight() int64
	// QueueDepth is the number of transaction notifications waiting
	QueueDepth() int
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	network    string
	node       NodeProbe
	store      storage.Store
	progress   Progress
	interval   time.Duration
	lastCheck  time.Time
	lastReport *Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(network string, node NodeProbe, store storage.Store, progress Progress) *Monitor {
	return &Monitor{
		network:  network,
		node:     node,
		store:    store,
		progress: progress,
		interval: 10 * time.Second,
	}
}

// CheckHealth probes the node and the store.
func (m *Monitor) CheckHealth(ctx context.Context) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid spamming RPC
	if m.lastReport != nil && time.Since(m.lastCheck) < m.interval {
		return m.lastReport
	}

	report := &Report{
		Status:          StatusHealthy,
		Network:         m.network,
		ProcessedHeight: m.progress.LastHeight(),
		QueueDepth:      m.progress.QueueDepth(),
		Database:        "ok",
		Node:            "ok",
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.store.Health(ctx); err != nil {
		report.Database = err.Error()
		report.Status = StatusCritical
	} else if pending, err := m.store.Credits().ListUnconfirmed(ctx, m.network); err == nil {
		report.PendingCredits = len(pending)
	}

	info, err := m.node.GetInfo(ctx)
	if err != nil {
		report.Node = err.Error()
		if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	} else {
		report.NodeHeight = info.Blocks
		if report.ProcessedHeight > 0 && info.Blocks > report.ProcessedHeight {
			report.BlockLag = info.Blocks - report.ProcessedHeight
		}
	}

	switch {
	case report.Status == StatusCritical:
	case report.BlockLag > 100:
		report.Status = StatusCritical
	case report.BlockLag > 10 && report.Status == StatusHealthy:
		report.Status = StatusDegraded
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full system health report for one wallet network.
type Report struct {
	Status          SystemStatus `json:"status"`
	Network         string       `json:"network"`
	NodeHeight      int64        `json:"node_height"`
	ProcessedHeight int64        `json:"processed_height"`
	BlockLag        int64        `json:"block_lag"`
	PendingCredits  int          `json:"pending_credits"`
	QueueDepth      int          `json:"queue_depth"`
	Database        string       `json:"database"`
	Node            string       `json:"node"`
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsTotal tracks notification records by type and outcome
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletnotify_notifications_total",
			Help: "Total number of notification records read from the pipe",
		},
		[]string{"type", "result"},
	)

	// PipeReopens tracks how often the pipe reached EOF and was reopened
	PipeReopens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletnotify_pipe_reopens_total",
			Help: "Total number of times the notification pipe was reopened",
		},
	)

	// TxQueueDepth tracks transaction ids waiting for the transaction worker
	TxQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletnotify_tx_queue_depth",
			Help: "Number of transaction notifications waiting to be processed",
		},
	)

	// CreditsTotal tracks incoming-credit processing outcomes
	CreditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletnotify_credits_total",
			Help: "Incoming credit processing outcomes",
		},
		[]string{"network", "result"},
	)

	// CreditsConfirmed tracks credits promoted to complete by the block worker
	CreditsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletnotify_credits_confirmed_total",
			Help: "Credits promoted to complete during block rescans",
		},
		[]string{"network"},
	)

	// PersistenceFailures tracks rolled back units of work
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletnotify_persistence_failures_total",
			Help: "Total number of rolled back persistence commits",
		},
		[]string{"operation"},
	)

	// RPCCallsTotal tracks RPC calls per method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletnotify_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrorsTotal tracks RPC errors per method
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletnotify_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"method"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletnotify_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ChainLatestBlock tracks the last block height observed by the block worker
	ChainLatestBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletnotify_chain_latest_block",
			Help: "Latest block height observed by the block worker",
		},
		[]string{"network"},
	)

	// HotWalletBalance tracks the current snapshot in minor units
	HotWalletBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletnotify_hot_wallet_balance",
			Help: "Current hot wallet balance in minor units",
		},
		[]string{"network", "kind"},
	)

	// EventsEmitted tracks downstream event emission
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletnotify_events_emitted_total",
			Help: "Total number of emitted events",
		},
		[]string{"type", "result"},
	)

	// DBConnectionPoolUsage tracks the percentage of open connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletnotify_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)

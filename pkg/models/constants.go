package models

// Queue scopes: which item family populates the queue.
const (
	ScopeTrace  = "trace"
	ScopeThread = "thread"
)

// Thread statuses. Active threads cannot accept scores.
const (
	ThreadStatusActive   = "active"
	ThreadStatusInactive = "inactive"
)

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultItemListLimit       = 500
	DefaultQueueListLimit      = 100
	DefaultPollIntervalSec     = 5.0
)

package depspawn

import "github.com/go-foundations/depspawn/internal/workitem"

// Snapshot is a point-in-time copy of runtime counters, returned by
// Metrics.
type Snapshot workitem.Snapshot

package workitem

import "sync/atomic"

// Metrics accumulates scheduler-wide counters using plain atomics, in the
// same spirit as the teacher pool's GetMetrics snapshot but sized to the
// dependency-tracking runtime: spawns, completions, tasks run inline by the
// goroutine that readied them because the ready queue was full (queue
// back-pressure), conflict-scan edges installed, GC sweeps and reclaimed
// work items.
type Metrics struct {
	spawned   atomic.Int64
	completed atomic.Int64
	stolen    atomic.Int64
	edges     atomic.Int64
	gcPasses  atomic.Int64
	reclaimed atomic.Int64
}

// Snapshot is a point-in-time copy of Metrics safe to read without races.
type Snapshot struct {
	Spawned         int64
	Completed       int64
	SubmitterStolen int64
	DependencyEdges int64
	GCPasses        int64
	Reclaimed       int64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Spawned:         m.spawned.Load(),
		Completed:       m.completed.Load(),
		SubmitterStolen: m.stolen.Load(),
		DependencyEdges: m.edges.Load(),
		GCPasses:        m.gcPasses.Load(),
		Reclaimed:       m.reclaimed.Load(),
	}
}

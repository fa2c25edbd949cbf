// Package workitem implements the dependency-tracked unit of scheduling at
// the core of the runtime: argument bookkeeping, the lock-free worklist,
// the conflict scan that wires up predecessor/successor edges from memory
// overlap, and the finish path that releases successors and reclaims
// pooled records. It has no knowledge of the public Arg/Task surface; the
// root package translates user-facing spawns into Workitem values.
package workitem

import (
	"sync"
	"sync/atomic"
)

// Status is the lifecycle state of a Workitem, following the state machine
// in the scheduler design: a task is Filling while its argument list is
// still being built by the spawning goroutine, then Waiting for unresolved
// predecessors, then Ready to run, Running on a worker, Done once its body
// and every child it spawned have completed, and finally Deallocatable once
// the worklist garbage collector may reclaim it.
type Status int32

const (
	Filling Status = iota
	Waiting
	Ready
	Running
	Done
	Deallocatable
)

// DepLink is one edge in a Workitem's successor list: `Task` is a task that
// named an argument overlapping ours and must wait for us to finish.
type DepLink struct {
	Next *DepLink
	Task *Workitem
}

// Workitem is one scheduled unit: a closure plus the arguments whose
// addresses determine its dependencies on sibling tasks. It is always
// allocated from an Engine's pool and returned there once Deallocatable.
type Workitem struct {
	Run    func()
	Args   *ArgInfo
	Parent *Workitem

	status Status
	guard  atomic.Bool // true once a worker has claimed this item to run it

	pending  atomic.Int32 // unresolved predecessors blocking Ready
	children atomic.Int32 // this task's own body (1) plus live children

	mu   sync.Mutex // guards status and deps
	deps *DepLink

	next *Workitem

	Panic any // set by Engine.runTask if Run panicked, surfaced at the next wait
}

// Reset clears a pooled Workitem back to its construction-time zero state.
// Called by Engine when recycling a node acquired from the pool, since
// Pool.Acquire only zeroes the embedded value, not pointer-graph invariants
// that the caller must re-establish.
func (w *Workitem) Reset() {
	w.Run = nil
	w.Args = nil
	w.Parent = nil
	w.status = Filling
	w.guard.Store(false)
	w.pending.Store(0)
	w.children.Store(1)
	w.deps = nil
	w.next = nil
	w.Panic = nil
}

func (w *Workitem) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Workitem) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

// TryClaim performs the Ready -> Running guard-word transition with a
// single CAS, so a task can be hand-delivered to a worker and also stolen
// back by the submitting goroutine under ready-queue back-pressure without
// either side ever running it twice.
func (w *Workitem) TryClaim() bool {
	return w.guard.CompareAndSwap(false, true)
}

// AddArg inserts an argument record into this item's sorted list. It must
// only be called while the item is Filling, before it is published to the
// worklist.
func (w *Workitem) AddArg(a *ArgInfo, free func(*ArgInfo)) {
	InsertOrdered(a, &w.Args, free)
}

// addSuccessor records that `succ` must wait on w, threading a pooled
// DepLink onto w's reverse-dependency list. Caller must hold w.mu.
func (w *Workitem) addSuccessor(succ *Workitem, link *DepLink) {
	link.Task = succ
	link.Next = w.deps
	w.deps = link
}

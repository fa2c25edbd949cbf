package depspawn

import "github.com/go-foundations/depspawn/internal/workitem"

// Task is the handle a running task body receives so that any further
// Spawn calls it makes are registered as its children. The C++ original
// tracks "the currently executing task" with a thread-local pointer
// (tbb::enumerable_thread_specific); Go has no safe goroutine-local
// storage, so the father is threaded explicitly instead, the same way
// errgroup.Group or testing.T carry their own scope through an explicit
// receiver rather than ambient state.
type Task struct {
	item *workitem.Workitem
}

// Spawn registers f as a child of t, so WaitForSubtasks and an Observer
// created from t will wait for it too.
func (t *Task) Spawn(f func(*Task), args ...Arg) *Task {
	return spawnOn(t.item, f, args)
}

// Sync spawns f as a child of t and blocks until it completes, without
// waiting for any of t's other in-flight children.
func (t *Task) Sync(f func(*Task), args ...Arg) {
	child := t.Spawn(f, args...)
	defaultEngine().Await(child.item)
}

// WaitForSubtasks blocks until every task spawned so far from t (directly
// or transitively) has finished.
func (t *Task) WaitForSubtasks() {
	defaultEngine().WaitForSubtasks(t.item)
}

// NewObserver returns an Observer scoped to t's descendants.
func (t *Task) NewObserver() *Observer {
	return &Observer{o: defaultEngine().NewObserver(t.item)}
}

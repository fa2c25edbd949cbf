// Package depspawn is a data-dependent task scheduler: Spawn runs a
// function concurrently with the rest of the program, inferring ordering
// against other spawned tasks from which arguments overlap in memory and
// whether they are written to, instead of requiring the caller to name
// locks or channels by hand.
package depspawn

import (
	"sync"
	"sync/atomic"

	"github.com/go-foundations/depspawn/internal/workitem"
	"github.com/go-foundations/depspawn/log"
)

var (
	engineOnce sync.Once
	engine     *workitem.Engine
	engineCfg  atomic.Pointer[Config]
	started    atomic.Bool
)

func defaultEngine() *workitem.Engine {
	engineOnce.Do(func() {
		cfg := engineCfg.Load()
		if cfg == nil {
			c := DefaultConfig()
			cfg = &c
		}
		engine = workitem.NewEngine(cfg.NumThreads, cfg.TaskQueueLimit, cfg.Logger)
		started.Store(true)
	})
	return engine
}

// Configure sets the runtime's configuration. It must be called before the
// first call that lazily starts the runtime (Spawn, Sync, WaitForAll,
// WaitFor, WaitForSubtasks, NewObserver, SetThreads, SetLogger or Metrics);
// once the runtime has started, Configure returns an error and has no
// effect. After start, the worker count can still be changed with
// SetThreads.
func Configure(opts ...Option) error {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return err
	}
	if started.Load() {
		return &ConfigError{Field: "Configure", Value: nil, Msg: "runtime already started"}
	}
	engineCfg.Store(&cfg)
	return nil
}

// SetThreads resizes the worker pool at runtime.
func SetThreads(n int) error {
	if n < 1 {
		return &ConfigError{Field: "NumThreads", Value: n, Msg: "must be >= 1"}
	}
	defaultEngine().SetThreads(n)
	return nil
}

// SetLogger installs a logger on the runtime, starting it if necessary.
func SetLogger(l log.Logger) {
	defaultEngine().SetLogger(l)
}

func spawnOn(parent *workitem.Workitem, f func(*Task), args []Arg) *Task {
	e := defaultEngine()
	w := e.Acquire(parent)
	for _, raw := range toRawArgs(args) {
		e.AddArg(w, raw)
	}
	t := &Task{item: w}
	w.Run = func() { f(t) }
	e.Publish(w)
	return t
}

// Spawn runs f concurrently, inferring its ordering against every other
// live task from the memory described by args. It returns immediately; f
// may not have started, or even finished, by the time Spawn returns.
func Spawn(f func(*Task), args ...Arg) *Task {
	return spawnOn(nil, f, args)
}

// Sync runs f and blocks until it completes, observing dependencies on
// args exactly as Spawn would.
func Sync(f func(*Task), args ...Arg) {
	t := Spawn(f, args...)
	defaultEngine().Await(t.item)
}

// WaitForAll blocks until every task spawned so far, and every task they
// transitively spawned, has finished.
func WaitForAll() error {
	defaultEngine().WaitForAll()
	return takeError()
}

// WaitFor blocks until every pending write to the memory named by args has
// completed, without waiting for unrelated tasks.
func WaitFor(args ...Arg) error {
	defaultEngine().WaitFor(nil, toRawArgs(args))
	return takeError()
}

// WaitForSubtasks blocks until every top-level task spawned so far (and
// its descendants) has finished. It is equivalent to WaitForAll at the top
// level; Task.WaitForSubtasks scopes the same wait to one task's children.
func WaitForSubtasks() error {
	defaultEngine().WaitForSubtasks(nil)
	return takeError()
}

func takeError() error {
	info, ok := defaultEngine().TakePanic()
	if !ok {
		return nil
	}
	return &TaskError{Recovered: info.Value, Stack: info.Stack}
}

// Metrics returns a point-in-time snapshot of runtime counters.
func Metrics() Snapshot {
	return Snapshot(defaultEngine().Metrics())
}

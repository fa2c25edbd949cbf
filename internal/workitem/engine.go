package workitem

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-foundations/depspawn/internal/pool"
	"github.com/go-foundations/depspawn/internal/threadpool"
	"github.com/go-foundations/depspawn/log"
)

// RawArg is the engine-level view of one spawn argument, already stripped
// of the public Arg wrapper types the root package exposes to callers.
type RawArg struct {
	Addr     uintptr
	Size     uintptr
	Writable bool
	Ranges   []Range
}

// Engine owns every pool, the worklist, the ready queue and the worker
// pool backing one runtime instance. Spawns, waits and shutdown are all
// methods on *Engine so a program can in principle run more than one
// independent scheduler, though the root package keeps a single
// lazily-started instance behind its package-level API.
type Engine struct {
	workPool *pool.Pool[Workitem]
	argPool  *pool.Pool[ArgInfo]
	depPool  *pool.Pool[DepLink]

	head atomic.Pointer[Workitem]

	eraserBusy atomic.Bool
	scanners   atomic.Int32 // in-flight insertInWorklist calls walking `next` pointers

	queue   *threadpool.Queue[func()]
	workers *threadpool.Pool

	numThreads atomic.Int32
	queueLimit atomic.Int32

	logger  atomic.Pointer[log.Logger]
	metrics Metrics

	// root is the implicit master task every top-level Spawn is parented
	// to, mirroring depspawn's master_workitem: it lets WaitForAll reuse
	// exactly the same fork-join children counter as WaitForSubtasks.
	root *Workitem

	allMu   sync.Mutex
	allCond *sync.Cond

	firstPanic atomic.Pointer[PanicInfo]
}

// PanicInfo captures a recovered task panic for later surfacing at a wait
// call, since Go has no exception propagation across goroutines.
type PanicInfo struct {
	Value any
	Stack []byte
}

// TakePanic atomically claims and clears the first recorded task panic, if
// any. Subsequent calls return ok==false until another task panics.
func (e *Engine) TakePanic() (*PanicInfo, bool) {
	p := e.firstPanic.Swap(nil)
	return p, p != nil
}

// NewEngine constructs a scheduler with numThreads workers and a ready
// queue of queueLimit slots per worker (numThreads*queueLimit, rounded up
// to a power of two); once it is full, a task made ready runs inline on the
// goroutine that readied it.
func NewEngine(numThreads, queueLimit int, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard{}
	}
	e := &Engine{
		workPool: pool.New[Workitem](64),
		argPool:  pool.New[ArgInfo](256),
		depPool:  pool.New[DepLink](256),
	}
	e.logger.Store(&logger)
	e.allCond = sync.NewCond(&e.allMu)
	e.numThreads.Store(int32(numThreads))
	e.queueLimit.Store(int32(queueLimit))

	e.root = e.workPool.Acquire()
	e.root.Reset()
	e.root.status = Ready

	e.queue = threadpool.NewQueue[func()](numThreads * queueLimit)
	e.workers = threadpool.NewPool(e.queue, numThreads)
	return e
}

// SetThreads resizes the live worker pool.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.numThreads.Store(int32(n))
	e.workers.Resize(n)
	e.Logger().WithField("threads", n).Debug("resized worker pool")
}

// Logger returns the currently installed logger.
func (e *Engine) Logger() log.Logger {
	return *e.logger.Load()
}

// SetLogger installs a new logger, taking effect for subsequent log calls.
func (e *Engine) SetLogger(l log.Logger) {
	if l == nil {
		l = log.Discard{}
	}
	e.logger.Store(&l)
}

func (e *Engine) Metrics() Snapshot { return e.metrics.Snapshot() }

// Root is the implicit top-level task; a nil parent to Spawn means Root.
func (e *Engine) Root() *Workitem { return e.root }

// newArg builds an ArgInfo from a RawArg using a pooled record.
func (e *Engine) newArg(raw RawArg) *ArgInfo {
	a := e.argPool.Acquire()
	a.Addr = raw.Addr
	a.Size = raw.Size
	a.Writable = raw.Writable
	a.Ranges = raw.Ranges
	a.Next = nil
	return a
}

func (e *Engine) freeArg(a *ArgInfo) { e.argPool.Release(a) }

// Acquire allocates a Workitem parented to parent (or the implicit root if
// nil) without publishing it to the worklist. Callers fill in Run and
// arguments via AddArg before calling Publish — splitting allocation from
// publication lets the root package's Spawn build a closure that closes
// over the very Workitem it runs as, with no window where a worker could
// claim the task before Run is assigned.
func (e *Engine) Acquire(parent *Workitem) *Workitem {
	if parent == nil {
		parent = e.root
	}
	w := e.workPool.Acquire()
	w.Reset()
	w.Parent = parent
	parent.children.Add(1)
	return w
}

// AddArg adds one argument to w's list. w must not have been published yet.
func (e *Engine) AddArg(w *Workitem, raw RawArg) {
	w.AddArg(e.newArg(raw), e.freeArg)
}

// Publish runs the conflict scan against the live worklist and dispatches
// w immediately if nothing blocks it. w.Run and every argument must be set
// before calling Publish.
func (e *Engine) Publish(w *Workitem) {
	e.metrics.spawned.Add(1)
	e.insertInWorklist(w)
}

// Spawn is the single-call convenience form of Acquire/AddArg/Publish for
// callers, such as WaitFor's synthetic task, that have no closure-capture
// cycle to worry about.
func (e *Engine) Spawn(parent *Workitem, run func(), raws []RawArg) *Workitem {
	w := e.Acquire(parent)
	w.Run = run
	for _, raw := range raws {
		e.AddArg(w, raw)
	}
	e.Publish(w)
	return w
}

// insertInWorklist runs the pairwise argument conflict check against every
// live predecessor, wires up dependency edges, publishes w at the worklist
// head, and either marks it Ready for dispatch or Waiting on its
// predecessors. Ports workitem.cpp's insert_in_worklist.
func (e *Engine) insertInWorklist(w *Workitem) {
	e.scanners.Add(1)
	defer e.scanners.Add(-1)

	ancestor := w.Parent
	var pendingCount int32

	for p := e.head.Load(); p != nil; p = p.next {
		if ancestor != nil && p == ancestor {
			if IsContained(w, ancestor) {
				break
			}
			ancestor = ancestor.Parent
		}

		st := p.Status()
		if st == Deallocatable || st == Done {
			continue
		}
		if !conflicts(w, p) {
			continue
		}

		p.mu.Lock()
		if p.status != Done && p.status != Deallocatable {
			link := e.depPool.Acquire()
			p.addSuccessor(w, link)
			pendingCount++
			e.metrics.edges.Add(1)
		}
		p.mu.Unlock()
	}

	w.pending.Store(pendingCount)

	for {
		old := e.head.Load()
		w.next = old
		if e.head.CompareAndSwap(old, w) {
			break
		}
	}

	if pendingCount == 0 {
		e.makeReady(w)
	} else {
		w.setStatus(Waiting)
	}
}

// conflicts reports whether any argument pair between w and p overlaps
// with at least one side writable (pure reader/reader pairs never
// conflict).
func conflicts(w, p *Workitem) bool {
	for aw := w.Args; aw != nil; aw = aw.Next {
		for ap := p.Args; ap != nil; ap = ap.Next {
			if !aw.Writable && !ap.Writable {
				continue
			}
			switch {
			case aw.IsArray() && ap.IsArray():
				if aw.Addr == ap.Addr && aw.OverlapArray(ap) {
					return true
				}
			default:
				if Overlaps(aw, ap) {
					return true
				}
			}
		}
	}
	return false
}

// makeReady marks w Ready and hands it to a worker, falling back to
// running it on the calling goroutine when the ready queue is saturated
// (the submitter-side stealing behavior described for queue back-pressure).
func (e *Engine) makeReady(w *Workitem) {
	w.setStatus(Ready)
	job := func() { e.runTask(w) }
	if e.queue.TryPush(job) {
		e.workers.Notify()
		return
	}
	e.metrics.stolen.Add(1)
	job()
}

func (e *Engine) runTask(w *Workitem) {
	if !w.TryClaim() {
		return
	}
	w.setStatus(Running)
	if w.Run != nil {
		e.runGuarded(w)
	}
	e.finishExecution(w)
}

func (e *Engine) runGuarded(w *Workitem) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			w.Panic = r
			e.firstPanic.CompareAndSwap(nil, &PanicInfo{Value: r, Stack: stack[:n]})
			e.Logger().WithField("panic", r).Error("task panicked")
		}
	}()
	w.Run()
}

// finishExecution decrements w's children bias, and once the task's body
// and every child it spawned have completed, releases its successors and
// recurses into its parent. Ports workitem.cpp's finish_execution.
func (e *Engine) finishExecution(w *Workitem) {
	if w.children.Add(-1) != 0 {
		return
	}

	w.setStatus(Done)

	w.mu.Lock()
	deps := w.deps
	w.deps = nil
	w.mu.Unlock()

	for d := deps; d != nil; {
		next := d.Next
		succ := d.Task
		if succ.pending.Add(-1) == 0 {
			e.makeReady(succ)
		}
		e.depPool.Release(d)
		d = next
	}

	w.setStatus(Deallocatable)
	e.metrics.completed.Add(1)

	parent := w.Parent
	if parent != nil {
		if parent == e.root {
			e.allMu.Lock()
			if e.root.children.Load() == 1 {
				e.allCond.Broadcast()
			}
			e.allMu.Unlock()
		}
		e.finishExecution(parent)
	}

	e.tryGC()
}

// tryGC claims the single eraser token and runs a sweep, but only when no
// conflict scan is walking the worklist: cleanWorklist mutates interior
// `next` pointers in place, which would race with insertInWorklist's
// concurrent reads of those same pointers. Skipping a sweep here is safe —
// the next finishExecution will retry.
func (e *Engine) tryGC() {
	if e.scanners.Load() != 0 {
		return
	}
	if !e.eraserBusy.CompareAndSwap(false, true) {
		return
	}
	if e.scanners.Load() != 0 {
		e.eraserBusy.Store(false)
		return
	}
	e.metrics.gcPasses.Add(1)
	e.cleanWorklist()
	e.eraserBusy.Store(false)
}

// cleanWorklist walks the worklist unlinking and reclaiming every
// Deallocatable item, mirroring workitem.cpp's Clean_worklist. It is only
// ever run by the single goroutine holding eraserBusy, so mutating
// interior `next` pointers is safe even though the worklist is otherwise a
// lock-free CAS-pushed structure.
func (e *Engine) cleanWorklist() {
	var prev *Workitem
	curr := e.head.Load()

	for curr != nil {
		next := curr.next

		if curr.Status() == Deallocatable && curr != e.root {
			if prev == nil {
				if !e.head.CompareAndSwap(curr, next) {
					curr = e.head.Load()
					prev = nil
					continue
				}
			} else {
				prev.next = next
			}
			e.reclaim(curr)
			curr = next
			continue
		}

		prev = curr
		curr = next
	}
}

func (e *Engine) reclaim(w *Workitem) {
	for a := w.Args; a != nil; {
		next := a.Next
		e.argPool.Release(a)
		a = next
	}
	e.metrics.reclaimed.Add(1)
	e.workPool.Release(w)
}

// helpStep pops and runs one ready job if one is available, returning
// whether it found work. Callers blocked on a wait condition use it to
// cooperatively drain the ready queue instead of idling.
func (e *Engine) helpStep() bool {
	job, ok := e.queue.TryPop()
	if !ok {
		return false
	}
	job()
	return true
}

// spinUntil cooperatively executes ready tasks while waiting for cond to
// become true, yielding the processor when no work is available. It runs
// whichever job the ready queue yields next; tasks on the awaited task's
// critical path are not preferred over unrelated ones.
func (e *Engine) spinUntil(cond func() bool) {
	for !cond() {
		if !e.helpStep() {
			runtime.Gosched()
		}
	}
}

// WaitForAll blocks the calling goroutine until every currently spawned
// task (and every task transitively spawned from it) has finished.
func (e *Engine) WaitForAll() {
	e.WaitForSubtasks(nil)
}

// WaitForSubtasks blocks until every live descendant of father (or of the
// implicit root, if nil) has finished. Children added while it waits,
// including ones a concurrent goroutine adds, are waited for as well.
func (e *Engine) WaitForSubtasks(father *Workitem) {
	if father == nil {
		father = e.root
	}
	e.spinUntil(func() bool { return father.children.Load() <= 1 })
}

// Await blocks until w itself has finished running, regardless of its
// argument list — the building block behind Sync, which needs to wait for
// one specific task rather than every writer of some memory.
func (e *Engine) Await(w *Workitem) {
	e.spinUntil(func() bool {
		st := w.Status()
		return st == Done || st == Deallocatable
	})
}

// WaitFor blocks until every currently pending write to the memory
// described by raws has completed, implemented as a synthetic read-only
// no-op task subjected to the ordinary conflict scan.
func (e *Engine) WaitFor(parent *Workitem, raws []RawArg) {
	readOnly := make([]RawArg, len(raws))
	for i, r := range raws {
		readOnly[i] = RawArg{Addr: r.Addr, Size: r.Size, Writable: false, Ranges: r.Ranges}
	}
	w := e.Spawn(parent, nil, readOnly)
	e.spinUntil(func() bool { return w.Status() == Done || w.Status() == Deallocatable })
}

// Observer scopes a WaitForSubtasks-style wait to an externally held
// handle, so a caller can poll or explicitly close it instead of blocking
// immediately, mirroring depspawn's Observer RAII helper.
type Observer struct {
	engine *Engine
	father *Workitem
}

// NewObserver returns an Observer watching the descendants of father (the
// implicit root if nil).
func (e *Engine) NewObserver(father *Workitem) *Observer {
	if father == nil {
		father = e.root
	}
	return &Observer{engine: e, father: father}
}

// Wait blocks until every descendant being observed has finished.
func (o *Observer) Wait() {
	o.engine.WaitForSubtasks(o.father)
}

// Done reports whether every observed descendant has already finished,
// without blocking.
func (o *Observer) Done() bool {
	return o.father.children.Load() <= 1
}

// Close waits for completion and releases the Observer; it is safe to
// call Close without a prior Wait.
func (o *Observer) Close() error {
	o.Wait()
	return nil
}

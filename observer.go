package depspawn

import "github.com/go-foundations/depspawn/internal/workitem"

// Observer watches a scope of descendant tasks and lets a caller poll or
// explicitly wait for them, instead of blocking immediately the way
// WaitForSubtasks does. It mirrors depspawn's Observer RAII helper; Close
// plays the role of the destructor-triggered wait.
type Observer struct {
	o *workitem.Observer
}

// NewObserver returns an Observer scoped to the top-level tasks and their
// descendants. Done, Wait and Close look at the tasks live at the time they
// are called, including tasks spawned after NewObserver returned.
func NewObserver() *Observer {
	return &Observer{o: defaultEngine().NewObserver(nil)}
}

// Wait blocks until every observed task has finished.
func (o *Observer) Wait() error {
	o.o.Wait()
	return takeError()
}

// Done reports whether every observed task has already finished, without
// blocking.
func (o *Observer) Done() bool {
	return o.o.Done()
}

// Close waits for completion and releases the Observer. It implements
// io.Closer so an Observer can be used with defer.
func (o *Observer) Close() error {
	return o.Wait()
}

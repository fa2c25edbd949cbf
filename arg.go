package depspawn

import (
	"unsafe"

	"github.com/go-foundations/depspawn/internal/workitem"
)

// Range names an inclusive [First, Last] slice of one dimension of an
// array argument passed to WRange/RRange.
type Range = workitem.Range

// Arg describes how one spawn argument is accessed: a memory address and
// size, whether the task may write through it, and — for WRange/RRange —
// the per-dimension index ranges actually touched. Go has no equivalent of
// the C++ original's compile-time parameter introspection, so callers
// build Arg values explicitly with W, R, Ignore, Freeze, WRange or RRange
// instead of the scheduler inferring access mode from the function
// signature.
type Arg struct {
	raw    workitem.RawArg
	ignore bool
}

func scalarArg(addr unsafe.Pointer, size uintptr, writable bool) Arg {
	return Arg{raw: workitem.RawArg{Addr: uintptr(addr), Size: size, Writable: writable}}
}

// W marks v as read-write: the task may both observe and mutate it, and
// the scheduler serializes it against any other task reading or writing
// the same address.
func W[T any](v *T) Arg {
	var zero T
	return scalarArg(unsafe.Pointer(v), unsafe.Sizeof(zero), true)
}

// R marks v as read-only: the task only observes it, so it may run
// concurrently with other readers but is still ordered after any writer.
func R[T any](v *T) Arg {
	var zero T
	return scalarArg(unsafe.Pointer(v), unsafe.Sizeof(zero), false)
}

// Ignore excludes v from dependency tracking entirely. Use it for
// arguments whose aliasing is known by the caller to be harmless, such as
// read-only configuration shared across the whole program.
func Ignore[T any](v *T) Arg {
	return Arg{ignore: true}
}

// Freeze copies v at spawn time and records a read-only descriptor for the
// address of that private copy rather than for the caller's variable, so no
// dependency edge is recorded against writers of the original. The copy is
// not passed to the task body; the closure still sees whatever variables it
// captures.
func Freeze[T any](v T) Arg {
	snapshot := v
	return scalarArg(unsafe.Pointer(&snapshot), unsafe.Sizeof(v), false)
}

// WRange marks the given index ranges of a multi-dimensional array slice
// as read-write. Dependency tracking is scoped to the named subregion, so
// two tasks touching disjoint ranges of the same backing array run
// concurrently.
func WRange[T any](s []T, ranges ...Range) Arg {
	return rangeArg(s, ranges, true)
}

// RRange marks the given index ranges of a multi-dimensional array slice
// as read-only.
func RRange[T any](s []T, ranges ...Range) Arg {
	return rangeArg(s, ranges, false)
}

func rangeArg[T any](s []T, ranges []Range, writable bool) Arg {
	if len(s) == 0 {
		return Arg{ignore: true}
	}
	var zero T
	elemSize := unsafe.Sizeof(zero)
	if len(ranges) == 0 {
		ranges = []Range{{First: 0, Last: len(s) - 1}}
	}
	return Arg{raw: workitem.RawArg{
		Addr:     uintptr(unsafe.Pointer(&s[0])),
		Size:     elemSize,
		Writable: writable,
		Ranges:   append([]Range(nil), ranges...),
	}}
}

func toRawArgs(args []Arg) []workitem.RawArg {
	raws := make([]workitem.RawArg, 0, len(args))
	for _, a := range args {
		if a.ignore {
			continue
		}
		raws = append(raws, a.raw)
	}
	return raws
}

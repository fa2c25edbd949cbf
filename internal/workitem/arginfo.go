package workitem

// Range is an inclusive [First, Last] index range selected in one dimension
// of an array argument.
type Range struct {
	First, Last int
}

// ArgInfo describes one spawn argument: its base address, size, whether it
// is bound mutably, and — for array selections — the per-dimension ranges
// naming the selected subregion. ArgInfo values are pooled and chained by
// Next in non-decreasing address order inside a single Workitem's argument
// list, mirroring depspawn's arg_info.
type ArgInfo struct {
	Addr     uintptr
	Size     uintptr
	Writable bool
	Ranges   []Range // nil for scalars, len(Ranges) == rank for arrays
	Next     *ArgInfo
}

// IsArray reports whether this record describes a multi-dimensional array
// selection rather than a scalar memory region.
func (a *ArgInfo) IsArray() bool {
	return a.Ranges != nil
}

func overlapsIntervals(s1, e1, s2, e2 uintptr) bool {
	if s1 <= s2 {
		return s2 <= e1
	}
	return s1 <= e1
}

// Overlaps reports whether the scalar byte ranges of a and b intersect.
func Overlaps(a, b *ArgInfo) bool {
	return overlapsIntervals(a.Addr, a.Addr+a.Size-1, b.Addr, b.Addr+b.Size-1)
}

func containsIntervals(s1, e1, s2, e2 uintptr) bool {
	return s1 <= s2 && e2 <= e1
}

// Contains reports whether a's scalar byte range contains b's.
func Contains(a, b *ArgInfo) bool {
	return containsIntervals(a.Addr, a.Addr+a.Size, b.Addr, b.Addr+b.Size)
}

// OverlapArray reports whether this array selection conflicts with `other`
// or any later record chained on the same base address, requiring at least
// one side to be writable and every dimension's range to intersect.
func (a *ArgInfo) OverlapArray(other *ArgInfo) bool {
	for other != nil && other.Addr == a.Addr {
		if a.Writable || other.Writable {
			conflict := true
			for i := range a.Ranges {
				if !overlapsIntervalsInt(a.Ranges[i], other.Ranges[i]) {
					conflict = false
					break
				}
			}
			if conflict {
				return true
			}
		}
		other = other.Next
	}
	return false
}

// IsContainedArray reports whether this array selection is fully contained,
// dimension by dimension, in `other` or any later record chained on the
// same base address.
func (a *ArgInfo) IsContainedArray(other *ArgInfo) bool {
	for other != nil && other.Addr == a.Addr {
		contained := true
		for i := range a.Ranges {
			if !containsIntervalsInt(other.Ranges[i], a.Ranges[i]) {
				contained = false
				break
			}
		}
		if contained {
			return true
		}
		other = other.Next
	}
	return false
}

func overlapsIntervalsInt(a, b Range) bool {
	if a.First <= b.First {
		return b.First <= a.Last
	}
	return a.First <= b.Last
}

func containsIntervalsInt(outer, inner Range) bool {
	return outer.First <= inner.First && inner.Last <= outer.Last
}

// IsContained reports whether every argument of w falls within a writable
// argument of ancestor, dimension by dimension for arrays or by byte range
// for scalars — the test behind the AncestorEscape optimization in §4.4.
func IsContained(w, ancestor *Workitem) bool {
	argW := w.Args
	argP := ancestor.Args

	for argP != nil && argW != nil {
		if argW.Addr < argP.Addr {
			return false
		}

		if argW.IsArray() {
			if argP.Addr == argW.Addr {
				if !argP.Writable || !argW.IsContainedArray(argP) {
					return false
				}
				argW = argW.Next
			} else {
				argP = argP.Next
			}
		} else {
			if argP.Writable && (argW.Addr+argW.Size) <= (argP.Addr+argP.Size) {
				argW = argW.Next
			} else {
				argP = argP.Next
			}
		}
	}

	return argW == nil
}

// solveOverlap merges `a` — a scalar record about to be inserted — into the
// existing record `existing` at the same base address. The larger size
// wins; if a strict remainder is left over it is re-inserted starting the
// scan at `existing`. Ports arg_info::solve_overlap.
func solveOverlap(a, existing *ArgInfo, free func(*ArgInfo)) {
	orWritable := a.Writable || existing.Writable

	switch {
	case a.Size == existing.Size:
		existing.Writable = orWritable
		free(a)

	case a.Size < existing.Size:
		if orWritable == existing.Writable {
			free(a)
		} else {
			remainderSize := existing.Size - a.Size
			a.Addr += a.Size
			a.Size = remainderSize
			a.Writable = existing.Writable

			existing.Size = existing.Size - remainderSize // == a's original size
			existing.Writable = orWritable

			insertFrom(a, existing)
		}

	default: // a.Size > existing.Size
		if orWritable == a.Writable {
			existing.Writable = orWritable
			existing.Size = a.Size
			free(a)
		} else {
			consumed := existing.Size
			a.Addr += consumed
			a.Size -= consumed
			insertFrom(a, existing)
		}
	}
}

// InsertOrdered inserts item into the argument list referenced by *head so
// that addresses stay non-decreasing. Scalar collisions at an identical
// address are merged via solveOverlap; array records always chain as-is.
// Ports arg_info::insert_in_arglist.
func InsertOrdered(item *ArgInfo, head **ArgInfo, free func(*ArgInfo)) {
	if *head == nil {
		*head = item
		return
	}
	if item.Addr < (*head).Addr {
		item.Next = *head
		*head = item
		return
	}
	insertWalk(item, *head, func(newHead *ArgInfo) { *head = newHead }, free)
}

// insertFrom inserts item starting the scan at `start`, used when a caller
// already knows item.Addr >= start.Addr (solveOverlap's re-insertion of a
// split remainder) so the list-head-replacement branch can never trigger.
func insertFrom(item, start *ArgInfo, free ...func(*ArgInfo)) {
	var f func(*ArgInfo)
	if len(free) > 0 {
		f = free[0]
	} else {
		f = func(*ArgInfo) {}
	}
	insertWalk(item, start, func(*ArgInfo) {}, f)
}

func insertWalk(item, from *ArgInfo, setHead func(*ArgInfo), free func(*ArgInfo)) {
	prev := from
	p := from.Next
	for p != nil {
		if item.Addr < p.Addr {
			if !item.IsArray() && item.Addr == prev.Addr {
				solveOverlap(item, prev, free)
			} else {
				prev.Next = item
				item.Next = p
			}
			return
		}
		prev = p
		p = p.Next
	}
	if !item.IsArray() && item.Addr == prev.Addr {
		solveOverlap(item, prev, free)
	} else {
		prev.Next = item
	}
}

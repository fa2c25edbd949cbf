package workitem

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ArgInfoSuite struct {
	suite.Suite
}

func TestArgInfoSuite(t *testing.T) {
	suite.Run(t, new(ArgInfoSuite))
}

func (s *ArgInfoSuite) TestOverlapsDetectsIntersectingRanges() {
	a := &ArgInfo{Addr: 100, Size: 10}
	b := &ArgInfo{Addr: 105, Size: 10}
	s.Require().True(Overlaps(a, b))
	s.Require().True(Overlaps(b, a))
}

func (s *ArgInfoSuite) TestOverlapsRejectsDisjointRanges() {
	a := &ArgInfo{Addr: 100, Size: 10}
	b := &ArgInfo{Addr: 200, Size: 10}
	s.Require().False(Overlaps(a, b))
}

func (s *ArgInfoSuite) TestContainsRequiresFullSpan() {
	outer := &ArgInfo{Addr: 100, Size: 100}
	inner := &ArgInfo{Addr: 120, Size: 10}
	s.Require().True(Contains(outer, inner))
	s.Require().False(Contains(inner, outer))
}

func (s *ArgInfoSuite) TestInsertOrderedMergesEqualSizeScalars() {
	var head *ArgInfo
	freed := 0
	free := func(*ArgInfo) { freed++ }

	a := &ArgInfo{Addr: 100, Size: 8, Writable: false}
	InsertOrdered(a, &head, free)

	b := &ArgInfo{Addr: 100, Size: 8, Writable: true}
	InsertOrdered(b, &head, free)

	s.Require().Equal(1, freed, "equal-size collision at the same address must merge into one record")
	s.Require().Same(a, head)
	s.Require().True(head.Writable, "merge must OR the writable flags")
	s.Require().Nil(head.Next)
}

func (s *ArgInfoSuite) TestInsertOrderedSplitsSmallerWithinLarger() {
	var head *ArgInfo
	free := func(*ArgInfo) {}

	big := &ArgInfo{Addr: 0, Size: 16, Writable: false}
	InsertOrdered(big, &head, free)

	small := &ArgInfo{Addr: 0, Size: 4, Writable: true}
	InsertOrdered(small, &head, free)

	// The writable sub-range must now be distinguished from the remainder.
	s.Require().Equal(uintptr(4), head.Size)
	s.Require().True(head.Writable)
	s.Require().NotNil(head.Next)
	s.Require().Equal(uintptr(4), head.Next.Addr)
	s.Require().Equal(uintptr(12), head.Next.Size)
	s.Require().False(head.Next.Writable, "remainder inherits the pre-merge writable flag it was split from")
}

func (s *ArgInfoSuite) TestInsertOrderedKeepsAddressOrder() {
	var head *ArgInfo
	free := func(*ArgInfo) {}

	InsertOrdered(&ArgInfo{Addr: 300, Size: 4}, &head, free)
	InsertOrdered(&ArgInfo{Addr: 100, Size: 4}, &head, free)
	InsertOrdered(&ArgInfo{Addr: 200, Size: 4}, &head, free)

	var addrs []uintptr
	for p := head; p != nil; p = p.Next {
		addrs = append(addrs, p.Addr)
	}
	s.Require().Equal([]uintptr{100, 200, 300}, addrs)
}

func (s *ArgInfoSuite) TestOverlapArrayRequiresWritableSide() {
	a := &ArgInfo{Addr: 1000, Writable: false, Ranges: []Range{{First: 0, Last: 4}}}
	b := &ArgInfo{Addr: 1000, Writable: false, Ranges: []Range{{First: 2, Last: 6}}}
	s.Require().False(a.OverlapArray(b), "two readers of overlapping ranges must not conflict")

	b.Writable = true
	s.Require().True(a.OverlapArray(b))
}

func (s *ArgInfoSuite) TestOverlapArrayDisjointRanges() {
	a := &ArgInfo{Addr: 1000, Writable: true, Ranges: []Range{{First: 0, Last: 4}}}
	b := &ArgInfo{Addr: 1000, Writable: true, Ranges: []Range{{First: 5, Last: 9}}}
	s.Require().False(a.OverlapArray(b))
}

func (s *ArgInfoSuite) TestIsContainedArray() {
	outer := &ArgInfo{Addr: 1000, Writable: true, Ranges: []Range{{First: 0, Last: 99}}}
	inner := &ArgInfo{Addr: 1000, Ranges: []Range{{First: 10, Last: 20}}}
	s.Require().True(inner.IsContainedArray(outer))

	escaping := &ArgInfo{Addr: 1000, Ranges: []Range{{First: 90, Last: 110}}}
	s.Require().False(escaping.IsContainedArray(outer))
}

func (s *ArgInfoSuite) TestIsContainedScalarRequiresWritableAncestor() {
	ancestor := &Workitem{Args: &ArgInfo{Addr: 0, Size: 100, Writable: false}}
	w := &Workitem{Args: &ArgInfo{Addr: 10, Size: 10}}
	s.Require().False(IsContained(w, ancestor), "a read-only ancestor argument cannot absorb a descendant's access")

	ancestor.Args.Writable = true
	s.Require().True(IsContained(w, ancestor))
}

package workitem

import (
	"testing"
)

// BenchmarkIndependentSpawns measures pure scheduling overhead: every task
// touches its own scalar, so the conflict scan never installs an edge and
// every spawn is immediately Ready.
func BenchmarkIndependentSpawns(b *testing.B) {
	e := NewEngine(8, 4, nil)
	slots := make([]int, b.N)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		i := i
		e.Spawn(nil, func() { slots[i] = i }, []RawArg{{Addr: addrOf(&slots[i]), Size: 8, Writable: true}})
	}
	e.WaitForAll()
}

// BenchmarkContendedCounter measures the cost of a write-after-write chain
// where every task conflicts with the one before it, forcing the
// scheduler to serialize the whole run.
func BenchmarkContendedCounter(b *testing.B) {
	e := NewEngine(8, 4, nil)
	counter := 0
	raws := []RawArg{{Addr: addrOf(&counter), Size: 8, Writable: true}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Spawn(nil, func() { counter++ }, raws)
	}
	e.WaitForAll()
}

func BenchmarkDisjointArrayRanges(b *testing.B) {
	const width = 64
	e := NewEngine(8, 4, nil)
	data := make([]int, width*b.N)
	base := addrOf(&data[0])
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		i := i
		raws := []RawArg{{
			Addr:     base,
			Size:     8,
			Writable: true,
			Ranges:   []Range{{First: i * width, Last: i*width + width - 1}},
		}}
		e.Spawn(nil, func() {
			for j := i * width; j < i*width+width; j++ {
				data[j] = j
			}
		}, raws)
	}
	e.WaitForAll()
}

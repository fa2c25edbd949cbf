package depspawn_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/go-foundations/depspawn"
)

// DepspawnSuite exercises the public API end to end. All tests share the
// package's single lazily-started runtime, so each test uses its own
// scratch variables rather than relying on isolation between runs.
type DepspawnSuite struct {
	suite.Suite
}

func TestDepspawnSuite(t *testing.T) {
	suite.Run(t, new(DepspawnSuite))
}

func (s *DepspawnSuite) TestWriterFansIntoSharedAccumulator() {
	total := 0
	for i := 0; i < 50; i++ {
		depspawn.Spawn(func(*depspawn.Task) {
			total++
		}, depspawn.W(&total))
	}
	s.Require().NoError(depspawn.WaitForAll())
	s.Require().Equal(50, total)
}

func (s *DepspawnSuite) TestReadersRunConcurrentlyWithoutCorruptingWriter() {
	var value int
	depspawn.Spawn(func(*depspawn.Task) { value = 7 }, depspawn.W(&value))

	seen := make([]int, 10)
	for i := range seen {
		i := i
		depspawn.Spawn(func(*depspawn.Task) {
			seen[i] = value
		}, depspawn.R(&value), depspawn.WRange(seen, depspawn.Range{First: i, Last: i}))
	}

	s.Require().NoError(depspawn.WaitForAll())
	for i, v := range seen {
		s.Require().Equal(7, v, "reader %d observed a stale value", i)
	}
}

func (s *DepspawnSuite) TestDisjointArraySlicesRunWithoutConflict() {
	data := make([]int, 100)
	for half := 0; half < 2; half++ {
		half := half
		depspawn.Spawn(func(*depspawn.Task) {
			for i := half * 50; i < half*50+50; i++ {
				data[i] = half + 1
			}
		}, depspawn.WRange(data, depspawn.Range{First: half * 50, Last: half*50 + 49}))
	}

	s.Require().NoError(depspawn.WaitForAll())
	for i, v := range data {
		want := 1
		if i >= 50 {
			want = 2
		}
		s.Require().Equal(want, v)
	}
}

func (s *DepspawnSuite) TestIgnoreExcludesArgumentFromTracking() {
	sharedConfig := "read-everywhere"
	writes := 0
	for i := 0; i < 20; i++ {
		depspawn.Spawn(func(*depspawn.Task) {
			_ = sharedConfig
			writes++
		}, depspawn.Ignore(&sharedConfig), depspawn.W(&writes))
	}
	s.Require().NoError(depspawn.WaitForAll())
	s.Require().Equal(20, writes)
}

func (s *DepspawnSuite) TestNestedSpawnIsChildOfItsTask() {
	outerDone := false
	innerDone := false

	parent := depspawn.Spawn(func(t *depspawn.Task) {
		t.Spawn(func(*depspawn.Task) {
			innerDone = true
		}, depspawn.W(&innerDone))
		t.WaitForSubtasks()
		s.Require().True(innerDone, "WaitForSubtasks must observe its own nested spawn")
		outerDone = true
	}, depspawn.W(&outerDone))

	s.Require().NoError(depspawn.WaitForAll())
	_ = parent
	s.Require().True(outerDone)
	s.Require().True(innerDone)
}

func (s *DepspawnSuite) TestSyncBlocksUntilTaskCompletes() {
	result := 0
	depspawn.Sync(func(*depspawn.Task) {
		result = 99
	}, depspawn.W(&result))
	s.Require().Equal(99, result)
}

func (s *DepspawnSuite) TestWaitForOnlyBlocksOnNamedMemory() {
	var tracked int
	depspawn.Spawn(func(*depspawn.Task) {
		tracked = 1
	}, depspawn.W(&tracked))

	s.Require().NoError(depspawn.WaitFor(depspawn.R(&tracked)))
	s.Require().Equal(1, tracked)
}

func (s *DepspawnSuite) TestTaskPanicIsReportedAsError() {
	depspawn.Spawn(func(*depspawn.Task) {
		panic("deliberate failure")
	})
	err := depspawn.WaitForAll()
	s.Require().Error(err)

	var taskErr *depspawn.TaskError
	s.Require().ErrorAs(err, &taskErr)
	s.Require().Equal("deliberate failure", taskErr.Recovered)
}

func (s *DepspawnSuite) TestObserverReportsCompletion() {
	obs := depspawn.NewObserver()
	s.Require().True(obs.Done())

	flag := false
	depspawn.Spawn(func(*depspawn.Task) { flag = true }, depspawn.W(&flag))
	s.Require().NoError(obs.Close())
	s.Require().True(flag)
}

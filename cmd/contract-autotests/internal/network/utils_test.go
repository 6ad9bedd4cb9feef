package network

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/stellar/go/support/log"
)

type testingCounter struct {
	count int64
}

func (tc *testingCounter) Inc() {
	atomic.AddInt64(&tc.count, 1)
}

func (tc *testingCounter) value() int64 {
	return atomic.LoadInt64(&tc.count)
}

type testingGauge struct {
	testingCounter
}

func (tg *testingGauge) Dec() {
	atomic.AddInt64(&tg.count, -1)
}

// logCounter counts the entries written per level.
type logCounter struct {
	entry  *log.Entry
	counts [logrus.TraceLevel + 1]int64
}

func makeLogCounter() *logCounter {
	out := &logCounter{entry: log.New()}
	out.entry.AddHook(out)
	out.entry.SetLevel(logrus.DebugLevel)
	return out
}

func (lc *logCounter) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (lc *logCounter) Fire(e *logrus.Entry) error {
	atomic.AddInt64(&lc.counts[e.Level], 1)
	return nil
}

func (lc *logCounter) count(level logrus.Level) int64 {
	return atomic.LoadInt64(&lc.counts[level])
}

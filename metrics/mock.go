package metrics

import "sync"

var _ Metrics = (*Mock)(nil)

// Mock records calls for assertions in tests. It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	pointsScored        int
	setsCompleted       int
	matchesCompleted    int
	schedulesGenerated  int
	bracketsGenerated   int
	notificationsFailed int
	durations           []float64
}

func NewMock() *Mock {
	return &Mock{durations: make([]float64, 0)}
}

func (m *Mock) inc(counter *int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

func (m *Mock) get(counter *int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *counter
}

func (m *Mock) IncPointsScored()        { m.inc(&m.pointsScored) }
func (m *Mock) IncSetsCompleted()       { m.inc(&m.setsCompleted) }
func (m *Mock) IncMatchesCompleted()    { m.inc(&m.matchesCompleted) }
func (m *Mock) IncSchedulesGenerated()  { m.inc(&m.schedulesGenerated) }
func (m *Mock) IncBracketsGenerated()   { m.inc(&m.bracketsGenerated) }
func (m *Mock) IncNotificationsFailed() { m.inc(&m.notificationsFailed) }

func (m *Mock) ObserveScorePointDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, seconds)
}

func (m *Mock) PointsScored() int        { return m.get(&m.pointsScored) }
func (m *Mock) SetsCompleted() int       { return m.get(&m.setsCompleted) }
func (m *Mock) MatchesCompleted() int    { return m.get(&m.matchesCompleted) }
func (m *Mock) SchedulesGenerated() int  { return m.get(&m.schedulesGenerated) }
func (m *Mock) BracketsGenerated() int   { return m.get(&m.bracketsGenerated) }
func (m *Mock) NotificationsFailed() int { return m.get(&m.notificationsFailed) }

// Observations returns the number of recorded durations.
func (m *Mock) Observations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.durations)
}

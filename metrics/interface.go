package metrics

// Metrics is what the services report. Implementations must be safe for
// concurrent use.
type Metrics interface {
	IncPointsScored()
	IncSetsCompleted()
	IncMatchesCompleted()
	IncSchedulesGenerated()
	IncBracketsGenerated()
	IncNotificationsFailed()
	ObserveScorePointDuration(seconds float64)
}

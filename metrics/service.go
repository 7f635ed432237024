package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// Service holds the Prometheus collectors of the competition engine.
type Service struct {
	PointsScored        prometheus.Counter
	SetsCompleted       prometheus.Counter
	MatchesCompleted    prometheus.Counter
	SchedulesGenerated  prometheus.Counter
	BracketsGenerated   prometheus.Counter
	NotificationsFailed prometheus.Counter
	ScorePointDuration  prometheus.Histogram
}

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the collectors.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		PointsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volley_points_scored_total",
			Help: "The total number of rally points recorded.",
		}),
		SetsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volley_sets_completed_total",
			Help: "The total number of sets that reached a winner.",
		}),
		MatchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volley_matches_completed_total",
			Help: "The total number of matches that reached a winner.",
		}),
		SchedulesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volley_pool_schedules_generated_total",
			Help: "The total number of pool-play schedules generated.",
		}),
		BracketsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volley_brackets_generated_total",
			Help: "The total number of playoff brackets generated.",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volley_notifications_failed_total",
			Help: "The total number of realtime events that could not be delivered.",
		}),
		ScorePointDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "volley_score_point_duration_seconds",
			Help:    "Time spent recording a single point, lock wait included.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}

	reg.MustRegister(
		s.PointsScored,
		s.SetsCompleted,
		s.MatchesCompleted,
		s.SchedulesGenerated,
		s.BracketsGenerated,
		s.NotificationsFailed,
		s.ScorePointDuration,
	)

	return s
}

func (s *Service) IncPointsScored()        { s.PointsScored.Inc() }
func (s *Service) IncSetsCompleted()       { s.SetsCompleted.Inc() }
func (s *Service) IncMatchesCompleted()    { s.MatchesCompleted.Inc() }
func (s *Service) IncSchedulesGenerated()  { s.SchedulesGenerated.Inc() }
func (s *Service) IncBracketsGenerated()   { s.BracketsGenerated.Inc() }
func (s *Service) IncNotificationsFailed() { s.NotificationsFailed.Inc() }

func (s *Service) ObserveScorePointDuration(seconds float64) {
	s.ScorePointDuration.Observe(seconds)
}

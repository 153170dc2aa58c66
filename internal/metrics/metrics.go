// Package metrics declares the Prometheus collectors of the tracker.
//
// Collectors are package-level and registered on the default registry by
// promauto, so any package can record without plumbing. GET /metrics serves
// them via promhttp.Handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_http_requests_total",
			Help: "Total HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_http_active_requests",
			Help: "Requests currently being served",
		},
	)

	// Submissions
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_submissions_total",
			Help: "Daily submissions by outcome (accepted, already_submitted_today, submissions_closed, ...)",
		},
		[]string{"outcome"},
	)

	SubmissionPoints = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_submission_points_total",
			Help: "Points awarded across all accepted submissions",
		},
	)

	// Leaderboard
	LeaderboardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_leaderboard_cache_total",
			Help: "Leaderboard cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	LeaderboardBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_leaderboard_build_seconds",
			Help:    "Time to load and rank a challenge's enrollments",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Accounts and challenges
	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_registrations_total",
			Help: "Users registered",
		},
	)

	ChallengesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_challenges_created_total",
			Help: "Monthly challenges created, by trigger (admin, scheduler)",
		},
		[]string{"trigger"},
	)

	// Scheduler
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_scheduler_runs_total",
			Help: "Background job runs by job and result",
		},
		[]string{"job", "result"},
	)
)

// RecordHTTPRequest records one finished request.
func RecordHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackActiveRequest moves the in-flight gauge up or down.
func TrackActiveRequest(inc bool) {
	if inc {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordJob records one scheduler run.
func RecordJob(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SchedulerRuns.WithLabelValues(job, result).Inc()
}

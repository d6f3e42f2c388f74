package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskplan",
			Name:      "bookings_created_total",
			Help:      "Count of timetable bookings created by desk.",
		},
		[]string{"desk"},
	)

	bookingsRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "deskplan",
			Name:      "bookings_removed_total",
			Help:      "Count of timetable bookings removed.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "deskplan",
			Name:      "booking_conflicts_total",
			Help:      "Count of booking requests rejected because a slot was taken.",
		},
	)

	deskUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskplan",
			Name:      "desk_updates_total",
			Help:      "Count of committed desk mutations by operation.",
		},
		[]string{"operation"},
	)

	storeSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskplan",
			Name:      "store_saves_total",
			Help:      "Count of document saves by result.",
		},
		[]string{"result"},
	)

	storeSaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "deskplan",
			Name:      "store_save_duration_seconds",
			Help:      "Duration of document saves.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskplan",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated,
			bookingsRemoved,
			bookingConflicts,
			deskUpdates,
			storeSaves,
			storeSaveDuration,
			httpRequests,
		)
	})
}

func AddBookingsCreated(deskID string, n int) {
	bookingsCreated.WithLabelValues(deskID).Add(float64(n))
}

func IncBookingRemoved() {
	bookingsRemoved.Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

func IncDeskUpdate(operation string) {
	deskUpdates.WithLabelValues(operation).Inc()
}

// ObserveSave records the result and duration of one document save.
func ObserveSave(start time.Time, err error) {
	storeSaveDuration.Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeSaves.WithLabelValues(result).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

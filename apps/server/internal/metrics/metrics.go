package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelResult = "result"
	LabelKind   = "kind"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookduel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cookduel_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cookduel_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Relay Metrics
var (
	RoomsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cookduel_rooms_open",
			Help: "Rooms currently held by the lobby",
		},
	)

	RoomJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookduel_room_joins_total",
			Help: "Seat join attempts by result",
		},
		[]string{LabelResult},
	)

	ConnectedSeats = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cookduel_connected_seats",
			Help: "WebSocket connections currently paired to a seat",
		},
	)

	RelayedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookduel_relayed_frames_total",
			Help: "Frames forwarded between seats",
		},
		[]string{LabelKind},
	)

	LedgerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cookduel_ledger_errors_total",
			Help: "Frames that could not be written to the ledger",
		},
	)
)

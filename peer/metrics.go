package peer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cookduel_peer_actions_total",
		Help: "Actions appended to a replica log, by origin and result.",
	}, []string{"origin", "result"})

	refoldsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cookduel_peer_refolds_total",
		Help: "Out-of-order arrivals that forced a replica to rebuild its state.",
	})

	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cookduel_peer_frames_total",
		Help: "Frames sent and received by peer sessions.",
	}, []string{"direction"})
)

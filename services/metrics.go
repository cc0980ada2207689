package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	fleetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "decoyd_fleet_services",
			Help: "Supervised tasks in the running fleet",
		},
	)

	serviceUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "decoyd_service_up",
			Help: "Whether a supervised task is running",
		},
		[]string{"service"},
	)

	eventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decoyd_events_total",
			Help: "Session events drained by the log worker",
		},
	)
)

func init() {
	prometheus.MustRegister(fleetSize)
	prometheus.MustRegister(serviceUp)
	prometheus.MustRegister(eventsTotal)
}

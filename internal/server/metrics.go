package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxcall_rooms_active",
		Help: "Number of rooms with at least one participant.",
	})

	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxcall_clients_connected",
		Help: "Number of websocket clients currently connected.",
	})

	relayedSignals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxcall_signals_relayed_total",
		Help: "Total offer/answer/candidate messages relayed between peers.",
	})
)

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "homekit_envisalink"

var armStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   namespace,
	Subsystem:   "alarm",
	Name:        "state",
	Help:        "Current security state of the partition",
	ConstLabels: map[string]string{},
}, []string{"name"})

var obstructedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   namespace,
	Subsystem:   "alarm",
	Name:        "obstructed",
	Help:        "Whether the partition is not ready to arm",
	ConstLabels: map[string]string{},
}, []string{"name"})

var openGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   namespace,
	Subsystem:   "alarm",
	Name:        "open",
	Help:        "Whether the zone or program is open or detecting",
	ConstLabels: map[string]string{},
}, []string{"name"})

var batteryGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace:   namespace,
	Subsystem:   "alarm",
	Name:        "battery_level",
	Help:        "Panel battery level",
	ConstLabels: map[string]string{},
})

var requestCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   namespace,
	Subsystem:   "client",
	Name:        "requests_total",
	Help:        "",
	ConstLabels: map[string]string{},
})

var requestErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   namespace,
	Subsystem:   "client",
	Name:        "request_errors_total",
	Help:        "",
	ConstLabels: map[string]string{},
})

var busyCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   namespace,
	Subsystem:   "client",
	Name:        "busy_total",
	Help:        "Commands answered with a busy acknowledgement",
	ConstLabels: map[string]string{},
})

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector the service exports. Methods are safe on
// a nil *Registry so components can run without metrics.
type Registry struct {
	reg *prometheus.Registry

	restRequests    *prometheus.CounterVec
	restDuration    *prometheus.HistogramVec
	restRateLimited *prometheus.CounterVec
	gatewayEvents   *prometheus.CounterVec
	cachedEvents    prometheus.Gauge
	componentHealth *prometheus.GaugeVec
	hostMemory      prometheus.Gauge
	hostCPU         prometheus.Gauge
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		restRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildevents_rest_requests_total",
				Help: "REST requests sent to the platform, by route and status",
			},
			[]string{"route", "status"},
		),
		restDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guildevents_rest_request_duration_seconds",
				Help:    "REST request round trip in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route"},
		),
		restRateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildevents_rest_rate_limited_total",
				Help: "REST requests rejected locally because the bucket was exhausted",
			},
			[]string{"route"},
		),
		gatewayEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildevents_gateway_events_total",
				Help: "Scheduled event gateway dispatches handled, by kind",
			},
			[]string{"kind"},
		),
		cachedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guildevents_cached_scheduled_events",
			Help: "Scheduled events currently held in the entity cache",
		}),
		componentHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "guildevents_component_healthy",
				Help: "1 when the watchdog last saw the component healthy, else 0",
			},
			[]string{"component"},
		),
		hostMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guildevents_host_memory_used_percent",
			Help: "Host virtual memory used percent",
		}),
		hostCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guildevents_host_cpu_percent",
			Help: "Host CPU utilisation percent since the previous sample",
		}),
	}

	r.reg.MustRegister(
		r.restRequests,
		r.restDuration,
		r.restRateLimited,
		r.gatewayEvents,
		r.cachedEvents,
		r.componentHealth,
		r.hostMemory,
		r.hostCPU,
	)
	return r
}

func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

func (r *Registry) ObserveREST(route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.restRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	r.restDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (r *Registry) RateLimited(route string) {
	if r == nil {
		return
	}
	r.restRateLimited.WithLabelValues(route).Inc()
}

func (r *Registry) GatewayEvent(kind string) {
	if r == nil {
		return
	}
	r.gatewayEvents.WithLabelValues(kind).Inc()
}

func (r *Registry) SetCachedEvents(n int) {
	if r == nil {
		return
	}
	r.cachedEvents.Set(float64(n))
}

func (r *Registry) SetComponentHealth(component string, healthy bool) {
	if r == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	r.componentHealth.WithLabelValues(component).Set(v)
}

var GlobalRegistry *Registry

func InitGlobalRegistry() {
	GlobalRegistry = NewRegistry()
}

func GetRegistry() *Registry {
	if GlobalRegistry == nil {
		InitGlobalRegistry()
	}
	return GlobalRegistry
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg               *prometheus.Registry
	OrdersPlaced      prometheus.Counter
	StatusTransitions *prometheus.CounterVec
	CartMutations     *prometheus.CounterVec
	ReorderDropped    prometheus.Counter
	ActiveOrders      prometheus.Gauge
	OutboxDispatched  *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "cafe_orders_placed_total"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cafe_order_status_transitions_total"}, []string{"status"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cafe_cart_mutations_total"}, []string{"kind"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "cafe_reorder_lines_dropped_total"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{Name: "cafe_active_orders"})
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cafe_outbox_dispatched_total"}, []string{"result"})

	r.MustRegister(placed, transitions, mutations, dropped, active, dispatched)
	return &Registry{
		reg:               r,
		OrdersPlaced:      placed,
		StatusTransitions: transitions,
		CartMutations:     mutations,
		ReorderDropped:    dropped,
		ActiveOrders:      active,
		OutboxDispatched:  dispatched,
	}
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

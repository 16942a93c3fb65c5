package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/queue"
)

// Metrics holds Prometheus metric descriptors for the game. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	game      *Game
	startTime time.Time
	reg       *prometheus.Registry

	objectsTotal    prometheus.Gauge
	queueDepth      *prometheus.GaugeVec
	handlesInUse    prometheus.Gauge
	commandsTotal   prometheus.Counter
	limitHitsTotal  *prometheus.CounterVec
	panicsTotal     prometheus.Counter
	slowTotal       prometheus.Counter
	uptimeSeconds   prometheus.Gauge
	memoryHeapBytes prometheus.Gauge
	goroutines      prometheus.Gauge
}

// NewMetrics creates the game's metrics on a private registry.
func NewMetrics(game *Game, startTime time.Time) *Metrics {
	m := &Metrics{
		game:      game,
		startTime: startTime,
		reg:       prometheus.NewRegistry(),
		objectsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mushcore_objects_total",
			Help: "Total number of objects in the database.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mushcore_queue_depth",
			Help: "Current command queue depth by queue.",
		}, []string{"queue"}),
		handlesInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mushcore_queue_handles_in_use",
			Help: "Queue handles currently assigned to entries.",
		}),
		commandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mushcore_commands_processed_total",
			Help: "Commands executed since server start.",
		}),
		limitHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mushcore_eval_limit_hits_total",
			Help: "Function calls refused by an evaluator ceiling.",
		}, []string{"limit"}),
		panicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mushcore_queue_entry_panics_total",
			Help: "Queue entries that panicked and were dropped.",
		}),
		slowTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mushcore_queue_entry_slow_total",
			Help: "Queue entries that tripped the slow-entry watchdog.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mushcore_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mushcore_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mushcore_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	stat := func(name, help string, pick func(queue.Stats) uint64) prometheus.CounterFunc {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, func() float64 {
			return float64(pick(game.Queue.Stats()))
		})
	}

	m.reg.MustRegister(
		m.objectsTotal,
		m.queueDepth,
		m.handlesInUse,
		m.commandsTotal,
		m.limitHitsTotal,
		m.panicsTotal,
		m.slowTotal,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
		stat("mushcore_queue_dispatched_total", "Queue entries dispatched.", func(s queue.Stats) uint64 { return s.Dispatched }),
		stat("mushcore_queue_reaped_total", "Halted queue entries discarded at dispatch.", func(s queue.Stats) uint64 { return s.Reaped }),
		stat("mushcore_queue_halted_total", "Queue entries halted.", func(s queue.Stats) uint64 { return s.Halted }),
		stat("mushcore_queue_rejected_total", "Submissions refused at admission.", func(s queue.Stats) uint64 { return s.Rejected }),
		stat("mushcore_queue_released_total", "Semaphore waits released by notify or timeout.", func(s queue.Stats) uint64 { return s.Released }),
		stat("mushcore_queue_drained_total", "Semaphore waits discarded by drain.", func(s queue.Stats) uint64 { return s.Drained }),
	)
	return m
}

// Update refreshes all gauge metrics from current game state. Safe to call
// from any goroutine.
func (m *Metrics) Update() {
	m.objectsTotal.Set(float64(m.game.ObjectCount()))

	st := m.game.Queue.Stats()
	m.queueDepth.WithLabelValues("player").Set(float64(st.Player))
	m.queueDepth.WithLabelValues("object").Set(float64(st.Object))
	m.queueDepth.WithLabelValues("wait").Set(float64(st.Wait))
	m.queueDepth.WithLabelValues("semaphore").Set(float64(st.Semaphore))
	m.handlesInUse.Set(float64(st.Handles))

	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	inner := promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		inner.ServeHTTP(w, r)
	})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	log.Printf("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Metrics) command() {
	if m != nil {
		m.commandsTotal.Inc()
	}
}

func (m *Metrics) limits(h eval.LimitStats) {
	if m == nil {
		return
	}
	m.limitHitsTotal.WithLabelValues("recursion").Add(float64(h.Recursion))
	m.limitHitsTotal.WithLabelValues("invocation").Add(float64(h.Invocation))
	m.limitHitsTotal.WithLabelValues("cpu").Add(float64(h.CPU))
}

func (m *Metrics) panic() {
	if m != nil {
		m.panicsTotal.Inc()
	}
}

func (m *Metrics) slow() {
	if m != nil {
		m.slowTotal.Inc()
	}
}

// Package prometheus exports engine metrics and stats snapshots as
// Prometheus collectors.
package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/ewe-studios/go-valtron/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	pollDurationSeconds *prom.HistogramVec
	runQueueDepth       *prom.GaugeVec
	delayHeapDepth      *prom.GaugeVec
	tasksRetiredTotal   *prom.CounterVec
	stealsTotal         *prom.CounterVec
	tasksRejectedTotal  *prom.CounterVec
	taskPanicTotal      *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "valtron"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	pollVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Duration of one task poll in seconds.",
		Buckets:   buckets,
	}, []string{"engine", "kind"})
	runDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "run_queue_depth",
		Help:      "Current run queue depth per worker.",
	}, []string{"engine", "worker"})
	delayDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "delay_heap_depth",
		Help:      "Current delay heap depth per worker.",
	}, []string{"engine", "worker"})
	retiredVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_retired_total",
		Help:      "Total number of retired tasks by outcome.",
	}, []string{"engine", "outcome"})
	stealsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "steals_total",
		Help:      "Total number of global queue steals per worker.",
	}, []string{"engine", "worker"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_rejected_total",
		Help:      "Total number of rejected submissions by strategy.",
	}, []string{"engine", "strategy"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of recovered task panics.",
	}, []string{"engine"})

	var err error
	if pollVec, err = registerCollector(reg, pollVec); err != nil {
		return nil, err
	}
	if runDepthVec, err = registerCollector(reg, runDepthVec); err != nil {
		return nil, err
	}
	if delayDepthVec, err = registerCollector(reg, delayDepthVec); err != nil {
		return nil, err
	}
	if retiredVec, err = registerCollector(reg, retiredVec); err != nil {
		return nil, err
	}
	if stealsVec, err = registerCollector(reg, stealsVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		pollDurationSeconds: pollVec,
		runQueueDepth:       runDepthVec,
		delayHeapDepth:      delayDepthVec,
		tasksRetiredTotal:   retiredVec,
		stealsTotal:         stealsVec,
		tasksRejectedTotal:  rejectedVec,
		taskPanicTotal:      panicVec,
	}, nil
}

// RecordPoll records the duration of one poll step.
func (m *MetricsExporter) RecordPoll(engine, label string, kind core.StatusKind, duration time.Duration) {
	if m == nil {
		return
	}
	m.pollDurationSeconds.WithLabelValues(normalizeLabel(engine, "unknown"), kind.String()).Observe(duration.Seconds())
}

// RecordQueueDepth records one worker's run queue and delay heap depth.
func (m *MetricsExporter) RecordQueueDepth(engine string, worker, ready, delayed int) {
	if m == nil {
		return
	}
	engine = normalizeLabel(engine, "unknown")
	w := strconv.Itoa(worker)
	m.runQueueDepth.WithLabelValues(engine, w).Set(float64(ready))
	m.delayHeapDepth.WithLabelValues(engine, w).Set(float64(delayed))
}

// RecordRetired records a task leaving its arena.
func (m *MetricsExporter) RecordRetired(engine, outcome string) {
	if m == nil {
		return
	}
	m.tasksRetiredTotal.WithLabelValues(normalizeLabel(engine, "unknown"), normalizeLabel(outcome, "unknown")).Inc()
}

// RecordSteal records a worker taking a task from the global queue.
func (m *MetricsExporter) RecordSteal(engine string, worker int) {
	if m == nil {
		return
	}
	m.stealsTotal.WithLabelValues(normalizeLabel(engine, "unknown"), strconv.Itoa(worker)).Inc()
}

// RecordRejected records a submission the engine could not accept.
func (m *MetricsExporter) RecordRejected(engine, strategy string) {
	if m == nil {
		return
	}
	m.tasksRejectedTotal.WithLabelValues(normalizeLabel(engine, "unknown"), normalizeLabel(strategy, "unknown")).Inc()
}

// RecordPanic records a recovered poll panic.
func (m *MetricsExporter) RecordPanic(engine, label string) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(engine, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}

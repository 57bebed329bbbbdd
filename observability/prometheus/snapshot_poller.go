package prometheus

import (
	"context"
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/ewe-studios/go-valtron/core"
)

// EngineSnapshotProvider provides current engine stats snapshots. Both
// engine implementations satisfy it.
type EngineSnapshotProvider interface {
	Stats() core.EngineStats
}

// SnapshotPoller periodically exports engine Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	enginesMu sync.RWMutex
	engines   map[string]EngineSnapshotProvider

	engineRunning      *prom.GaugeVec
	engineSubmitted    *prom.GaugeVec
	engineRetired      *prom.GaugeVec
	engineRejected     *prom.GaugeVec
	enginePanics       *prom.GaugeVec
	engineGlobalQueued *prom.GaugeVec

	workerQueued  *prom.GaugeVec
	workerDelayed *prom.GaugeVec
	workerLive    *prom.GaugeVec
	workerPolls   *prom.GaugeVec
	workerSteals  *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "valtron"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	engineLabels := []string{"engine", "type"}
	workerLabels := []string{"engine", "type", "worker"}

	engineRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "engine_running",
		Help:      "Engine running state (1=running, 0=stopped).",
	}, engineLabels)
	engineSubmitted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "engine_submitted",
		Help:      "Accepted root submission count snapshot.",
	}, engineLabels)
	engineRetired := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "engine_retired",
		Help:      "Retired task count snapshot.",
	}, engineLabels)
	engineRejected := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "engine_rejected",
		Help:      "Rejected submission count snapshot.",
	}, engineLabels)
	enginePanics := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "engine_panics",
		Help:      "Recovered poll panic count snapshot.",
	}, engineLabels)
	engineGlobalQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "engine_global_queued",
		Help:      "Tasks waiting in the cross-worker queue.",
	}, engineLabels)

	workerQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_queued",
		Help:      "Run queue depth per worker.",
	}, workerLabels)
	workerDelayed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_delayed",
		Help:      "Delay heap depth per worker.",
	}, workerLabels)
	workerLive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_live",
		Help:      "Live arena slots per worker.",
	}, workerLabels)
	workerPolls := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_polls",
		Help:      "Poll count snapshot per worker.",
	}, workerLabels)
	workerSteals := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_steals",
		Help:      "Global queue steal count snapshot per worker.",
	}, workerLabels)

	var err error
	if engineRunning, err = registerCollector(reg, engineRunning); err != nil {
		return nil, err
	}
	if engineSubmitted, err = registerCollector(reg, engineSubmitted); err != nil {
		return nil, err
	}
	if engineRetired, err = registerCollector(reg, engineRetired); err != nil {
		return nil, err
	}
	if engineRejected, err = registerCollector(reg, engineRejected); err != nil {
		return nil, err
	}
	if enginePanics, err = registerCollector(reg, enginePanics); err != nil {
		return nil, err
	}
	if engineGlobalQueued, err = registerCollector(reg, engineGlobalQueued); err != nil {
		return nil, err
	}
	if workerQueued, err = registerCollector(reg, workerQueued); err != nil {
		return nil, err
	}
	if workerDelayed, err = registerCollector(reg, workerDelayed); err != nil {
		return nil, err
	}
	if workerLive, err = registerCollector(reg, workerLive); err != nil {
		return nil, err
	}
	if workerPolls, err = registerCollector(reg, workerPolls); err != nil {
		return nil, err
	}
	if workerSteals, err = registerCollector(reg, workerSteals); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:           interval,
		engines:            make(map[string]EngineSnapshotProvider),
		engineRunning:      engineRunning,
		engineSubmitted:    engineSubmitted,
		engineRetired:      engineRetired,
		engineRejected:     engineRejected,
		enginePanics:       enginePanics,
		engineGlobalQueued: engineGlobalQueued,
		workerQueued:       workerQueued,
		workerDelayed:      workerDelayed,
		workerLive:         workerLive,
		workerPolls:        workerPolls,
		workerSteals:       workerSteals,
	}, nil
}

// AddEngine adds or replaces an engine snapshot provider by name.
func (p *SnapshotPoller) AddEngine(name string, provider EngineSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "engine")
	p.enginesMu.Lock()
	p.engines[name] = provider
	p.enginesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.enginesMu.RLock()
	defer p.enginesMu.RUnlock()

	for name, provider := range p.engines {
		stats := provider.Stats()
		typeLabel := normalizeLabel(stats.Engine, "unknown")

		if stats.Running {
			p.engineRunning.WithLabelValues(name, typeLabel).Set(1)
		} else {
			p.engineRunning.WithLabelValues(name, typeLabel).Set(0)
		}
		p.engineSubmitted.WithLabelValues(name, typeLabel).Set(float64(stats.Submitted))
		p.engineRetired.WithLabelValues(name, typeLabel).Set(float64(stats.Retired))
		p.engineRejected.WithLabelValues(name, typeLabel).Set(float64(stats.Rejected))
		p.enginePanics.WithLabelValues(name, typeLabel).Set(float64(stats.Panics))
		p.engineGlobalQueued.WithLabelValues(name, typeLabel).Set(float64(stats.GlobalQueued))

		for _, w := range stats.Workers {
			worker := strconv.Itoa(w.ID)
			p.workerQueued.WithLabelValues(name, typeLabel, worker).Set(float64(w.Queued))
			p.workerDelayed.WithLabelValues(name, typeLabel, worker).Set(float64(w.Delayed))
			p.workerLive.WithLabelValues(name, typeLabel, worker).Set(float64(w.Live))
			p.workerPolls.WithLabelValues(name, typeLabel, worker).Set(float64(w.Polls))
			p.workerSteals.WithLabelValues(name, typeLabel, worker).Set(float64(w.Steals))
		}
	}
}

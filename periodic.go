package valtron

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/ewe-studios/go-valtron/core"
)

var (
	// ErrPeriodicExists reports a Register under an already taken name.
	ErrPeriodicExists = errors.New("valtron: periodic entry already registered")

	// ErrPeriodicUnknown reports an Unregister of a name never registered.
	ErrPeriodicUnknown = errors.New("valtron: periodic entry not registered")
)

// cronParser accepts six-field expressions with a leading seconds field,
// plus descriptors such as @every.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// PeriodicSubmitter submits factory-built tasks to an engine on cron
// schedules. Each tick builds a fresh task, so the factory must be safe to
// call repeatedly.
type PeriodicSubmitter[R, P any] struct {
	cron    *cron.Cron
	engine  Engine[R, P]
	logger  Logger
	entries map[string]cron.EntryID
	mu      sync.Mutex
}

// NewPeriodicSubmitter builds a submitter feeding eng. A nil logger falls
// back to the default logger.
func NewPeriodicSubmitter[R, P any](eng Engine[R, P], logger Logger) *PeriodicSubmitter[R, P] {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &PeriodicSubmitter[R, P]{
		cron:    cron.New(cron.WithSeconds()),
		engine:  eng,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Register schedules factory under the given cron spec. The name must be
// unique; it identifies the entry in logs and to Unregister.
func (ps *PeriodicSubmitter[R, P]) Register(name, spec string, factory func() Task[R, P]) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrPeriodicExists, name)
	}
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("valtron: periodic entry %q: invalid cron spec: %w", name, err)
	}

	id, err := ps.cron.AddFunc(spec, func() {
		ps.submit(name, factory)
	})
	if err != nil {
		return fmt.Errorf("valtron: periodic entry %q: %w", name, err)
	}
	ps.entries[name] = id

	ps.logger.Debug("periodic entry registered", F("name", name), F("spec", spec))
	return nil
}

// Unregister removes a scheduled entry. Ticks already running finish.
func (ps *PeriodicSubmitter[R, P]) Unregister(name string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	id, exists := ps.entries[name]
	if !exists {
		return fmt.Errorf("%w: %q", ErrPeriodicUnknown, name)
	}
	ps.cron.Remove(id)
	delete(ps.entries, name)

	ps.logger.Debug("periodic entry unregistered", F("name", name))
	return nil
}

// Entries lists registered entry names in sorted order.
func (ps *PeriodicSubmitter[R, P]) Entries() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	names := make([]string, 0, len(ps.entries))
	for name := range ps.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins firing registered entries on their schedules.
func (ps *PeriodicSubmitter[R, P]) Start() {
	ps.cron.Start()
	ps.logger.Info("periodic submitter started", F("entries", len(ps.Entries())))
}

// Stop halts the schedule and waits for ticks already firing to return.
// Tasks those ticks submitted keep running on the engine.
func (ps *PeriodicSubmitter[R, P]) Stop() {
	<-ps.cron.Stop().Done()
	ps.logger.Info("periodic submitter stopped")
}

func (ps *PeriodicSubmitter[R, P]) submit(name string, factory func() Task[R, P]) {
	if _, err := ps.engine.SubmitSchedule(WithLabel(name, factory())); err != nil {
		ps.logger.Warn("periodic submission refused", F("name", name), F("error", err))
		return
	}
	ps.logger.Debug("periodic task submitted", F("name", name))
}

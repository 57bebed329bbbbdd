package core

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// memLogger captures log lines for assertions.
type memLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *memLogger) record(level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := level + " " + msg
	for _, f := range fields {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	l.lines = append(l.lines, line)
}

func (l *memLogger) Debug(msg string, fields ...Field) { l.record("DEBUG", msg, fields) }
func (l *memLogger) Info(msg string, fields ...Field)  { l.record("INFO", msg, fields) }
func (l *memLogger) Warn(msg string, fields ...Field)  { l.record("WARN", msg, fields) }
func (l *memLogger) Error(msg string, fields ...Field) { l.record("ERROR", msg, fields) }

func (l *memLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// recordingSink captures published events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) byKind(kind EventKind) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// recordingMetrics counts metric calls by name.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (m *recordingMetrics) bump(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *recordingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *recordingMetrics) RecordPoll(string, string, StatusKind, time.Duration) { m.bump("poll") }
func (m *recordingMetrics) RecordQueueDepth(string, int, int, int)               { m.bump("depth") }
func (m *recordingMetrics) RecordRetired(engine, outcome string)                 { m.bump("retired:" + outcome) }
func (m *recordingMetrics) RecordSteal(string, int)                              { m.bump("steal") }
func (m *recordingMetrics) RecordRejected(engine, strategy string)               { m.bump("rejected:" + strategy) }
func (m *recordingMetrics) RecordPanic(string, string)                           { m.bump("panic") }

// recordingScheduler captures Scheduler calls for action tests.
type recordingScheduler struct {
	lifted    []Task[int, int]
	parents   []Entry
	scheduled []Task[int, int]
	broadcast []Task[int, int]
	fail      error
}

func (s *recordingScheduler) Lift(child Task[int, int], parent Entry) error {
	if s.fail != nil {
		return s.fail
	}
	s.lifted = append(s.lifted, child)
	s.parents = append(s.parents, parent)
	return nil
}

func (s *recordingScheduler) Schedule(child Task[int, int]) error {
	if s.fail != nil {
		return s.fail
	}
	s.scheduled = append(s.scheduled, child)
	return nil
}

func (s *recordingScheduler) Broadcast(child Task[int, int]) error {
	if s.fail != nil {
		return s.fail
	}
	s.broadcast = append(s.broadcast, child)
	return nil
}

// quietOptions silences engine logging in tests.
func quietOptions() Options {
	return Options{Logger: NewNoOpLogger()}
}

// collect drains an observation stream until it closes.
func collect[R, P any](obs *Observation[R, P]) []Status[R, P] {
	var out []Status[R, P]
	for st := range obs.Statuses() {
		out = append(out, st)
	}
	return out
}

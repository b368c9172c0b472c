package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// TimerOutput defines the interface for outputting timer results.
type TimerOutput interface {
	// Output writes the timing information.
	Output(format string, args ...interface{})
}

// LoggerOutput adapts Logger interface to TimerOutput.
type LoggerOutput struct {
	Logger Logger
}

// Output implements TimerOutput using Logger.Info.
func (o *LoggerOutput) Output(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Info(format, args...)
	}
}

// Phase represents a single timed phase.
type Phase struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	completed bool
}

// PhaseTimer times a single phase and supports completion via defer.
type PhaseTimer struct {
	timer     *Timer
	phaseName string
}

// Stop stops the phase timer and records the duration.
// Safe to call multiple times; only the first call has effect.
func (pt *PhaseTimer) Stop() time.Duration {
	return pt.timer.StopPhase(pt.phaseName)
}

// Timer records named phases of an operation, in insertion order.
type Timer struct {
	mu         sync.RWMutex
	name       string
	startTime  time.Time
	phases     map[string]*Phase
	phaseOrder []string
	output     TimerOutput
	enabled    bool
	clock      Clock
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithOutput sets the output strategy for the timer.
func WithOutput(output TimerOutput) TimerOption {
	return func(t *Timer) {
		t.output = output
	}
}

// WithLogger sets a Logger as the output strategy.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		if logger != nil {
			t.output = &LoggerOutput{Logger: logger}
		}
	}
}

// WithEnabled sets whether the timer is enabled.
// When disabled, all operations are no-ops for zero overhead.
func WithEnabled(enabled bool) TimerOption {
	return func(t *Timer) {
		t.enabled = enabled
	}
}

// WithClock sets a custom clock for testability.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		t.clock = clock
	}
}

// NewTimer creates a new Timer with the given name and options.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:       name,
		phases:     make(map[string]*Phase),
		phaseOrder: make([]string, 0),
		enabled:    true,
		clock:      NewRealClock(),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.startTime = t.clock.Now()
	return t
}

// Start starts timing a new phase.
// Returns a PhaseTimer that can be used with defer for automatic completion.
func (t *Timer) Start(phaseName string) *PhaseTimer {
	if !t.enabled {
		return &PhaseTimer{timer: t, phaseName: phaseName}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.phases[phaseName] = &Phase{
		Name:      phaseName,
		StartTime: t.clock.Now(),
	}
	t.phaseOrder = append(t.phaseOrder, phaseName)

	return &PhaseTimer{timer: t, phaseName: phaseName}
}

// StopPhase stops timing a phase and returns its duration.
// Safe to call multiple times; only the first call has effect.
func (t *Timer) StopPhase(phaseName string) time.Duration {
	if !t.enabled {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	phase, ok := t.phases[phaseName]
	if !ok || phase.completed {
		if !ok {
			return 0
		}
		return phase.Duration
	}

	phase.EndTime = t.clock.Now()
	phase.Duration = phase.EndTime.Sub(phase.StartTime)
	phase.completed = true

	return phase.Duration
}

// GetDuration returns the duration of a completed phase.
func (t *Timer) GetDuration(phaseName string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if phase, ok := t.phases[phaseName]; ok {
		return phase.Duration
	}
	return 0
}

// TotalDuration returns the total duration since the timer was created.
func (t *Timer) TotalDuration() time.Duration {
	return t.clock.Since(t.startTime)
}

// GetPhases returns all phases in insertion order.
func (t *Timer) GetPhases() []*Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()

	phases := make([]*Phase, 0, len(t.phaseOrder))
	for _, name := range t.phaseOrder {
		if phase, ok := t.phases[name]; ok {
			// Return a copy to prevent external modification
			phaseCopy := *phase
			phases = append(phases, &phaseCopy)
		}
	}
	return phases
}

// Summary returns a formatted summary of all timing phases.
func (t *Timer) Summary() string {
	if !t.enabled {
		return ""
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== %s Timing Summary ===\n", t.name))
	for i, name := range t.phaseOrder {
		phase := t.phases[name]
		sb.WriteString(fmt.Sprintf("Phase %d - %s: %v\n", i+1, phase.Name, phase.Duration))
	}
	sb.WriteString(fmt.Sprintf("Total: %v\n", t.TotalDuration()))
	return sb.String()
}

// PrintSummary outputs the timing summary using the configured output strategy.
func (t *Timer) PrintSummary() {
	if !t.enabled || t.output == nil {
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	t.output.Output("=== %s Timing Summary ===", t.name)
	for i, name := range t.phaseOrder {
		phase := t.phases[name]
		t.output.Output("Phase %d - %s: %v", i+1, phase.Name, phase.Duration)
	}
	t.output.Output("Total: %v", t.TotalDuration())
}

// Reset clears all phases and resets the start time.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.phases = make(map[string]*Phase)
	t.phaseOrder = make([]string, 0)
	t.startTime = t.clock.Now()
}

// TimeFunc times the execution of a function and records it as a phase.
func (t *Timer) TimeFunc(phaseName string, fn func()) time.Duration {
	pt := t.Start(phaseName)
	fn()
	return pt.Stop()
}

// NullTimer is a no-op timer for when timing is disabled.
// All methods are safe to call but do nothing.
var NullTimer = &Timer{enabled: false, phases: make(map[string]*Phase), clock: NewRealClock()}

package coordinator

import (
	"time"

	"github.com/ShayCichocki/scopecraft/internal/supervisor"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

const (
	// DefaultAgentTimeout bounds one phase agent.
	DefaultAgentTimeout = 300 * time.Second
	// DefaultOverallTimeout bounds a caller's wait for a run.
	DefaultOverallTimeout = 600 * time.Second
	// DefaultCallTimeout bounds GetState and AnswerQuestion.
	DefaultCallTimeout = 5 * time.Second
	// DefaultMaxQuestions is how many clarifications one phase may ask.
	DefaultMaxQuestions = 3
	// DefaultEventBuffer is the size of the event channel.
	DefaultEventBuffer = 256
)

// Option configures a Service. Use With* functions to create Options.
type Option func(*serviceOptions)

type serviceOptions struct {
	agentTimeout   time.Duration
	overallTimeout time.Duration
	callTimeout    time.Duration
	stopGrace      time.Duration
	maxQuestions   int
	phases         []string
	index          Index
	debugLog       bool
	eventBuffer    int
	now            func() time.Time

	// Injectable for testing
	supervisor *supervisor.Supervisor
}

func defaultOptions() serviceOptions {
	return serviceOptions{
		agentTimeout:   DefaultAgentTimeout,
		overallTimeout: DefaultOverallTimeout,
		callTimeout:    DefaultCallTimeout,
		stopGrace:      5 * time.Second,
		maxQuestions:   DefaultMaxQuestions,
		phases:         models.DefaultPhases(),
		eventBuffer:    DefaultEventBuffer,
		now:            time.Now,
	}
}

// WithAgentTimeout sets the per-agent timeout.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *serviceOptions) { o.agentTimeout = d }
}

// WithOverallTimeout sets how long Start, Resume and Replan wait.
func WithOverallTimeout(d time.Duration) Option {
	return func(o *serviceOptions) { o.overallTimeout = d }
}

// WithCallTimeout sets the timeout of synchronous coordinator queries.
func WithCallTimeout(d time.Duration) Option {
	return func(o *serviceOptions) { o.callTimeout = d }
}

// WithStopGrace sets how long a stopped agent gets to exit.
func WithStopGrace(d time.Duration) Option {
	return func(o *serviceOptions) { o.stopGrace = d }
}

// WithMaxQuestions sets how many clarification questions one phase may ask.
func WithMaxQuestions(n int) Option {
	return func(o *serviceOptions) { o.maxQuestions = n }
}

// WithPhases overrides the phase order of new projects.
func WithPhases(phases []string) Option {
	return func(o *serviceOptions) { o.phases = append([]string(nil), phases...) }
}

// WithIndex records every persisted state change in idx.
func WithIndex(idx Index) Option {
	return func(o *serviceOptions) { o.index = idx }
}

// WithDebugLog enables the per-project coordinator log file.
func WithDebugLog(enabled bool) Option {
	return func(o *serviceOptions) { o.debugLog = enabled }
}

// WithEventBuffer sets the event channel size.
func WithEventBuffer(n int) Option {
	return func(o *serviceOptions) { o.eventBuffer = n }
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// WithSupervisor sets a custom supervisor (mainly for testing).
func WithSupervisor(s *supervisor.Supervisor) Option {
	return func(o *serviceOptions) { o.supervisor = s }
}

package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/calendar"
	"github.com/teemow/meetingscheduler/internal/instrumentation"
)

// ServerContext holds the dependencies shared by the MCP tool handlers.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	calendar *calendar.Client
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	location *time.Location
	profile  assistant.Profile

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics sets the recorder used for tool invocation metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithLogger sets the logger used by tool handlers.
func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) {
		if l != nil {
			sc.logger = l
		}
	}
}

// WithLocation sets the zone used to interpret times without an offset.
func WithLocation(loc *time.Location) Option {
	return func(sc *ServerContext) {
		if loc != nil {
			sc.location = loc
		}
	}
}

// WithProfile sets the operator profile served to MCP clients. Its location
// also becomes the server location.
func WithProfile(p assistant.Profile) Option {
	return func(sc *ServerContext) {
		sc.profile = p
		if p.Location != nil {
			sc.location = p.Location
		}
	}
}

// NewServerContext creates a new server context around a calendar client.
// The client authorizes lazily, so a missing token only surfaces when a
// tool reads the calendar.
func NewServerContext(ctx context.Context, cal *calendar.Client, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		calendar: cal,
		logger:   slog.Default(),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// CalendarClient returns the calendar client.
func (sc *ServerContext) CalendarClient() *calendar.Client {
	return sc.calendar
}

// Metrics returns the metrics recorder. It may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the logger for tool handlers.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Location returns the zone used for times without an offset.
func (sc *ServerContext) Location() *time.Location {
	return sc.location
}

// Profile returns the operator profile.
func (sc *ServerContext) Profile() assistant.Profile {
	return sc.profile
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

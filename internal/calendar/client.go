package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/meetingscheduler/internal/google"
	"github.com/teemow/meetingscheduler/internal/instrumentation"
	"github.com/teemow/meetingscheduler/internal/logging"
)

const (
	// DefaultLookahead is the window used when no end time is given.
	DefaultLookahead = 3 * 24 * time.Hour

	// DefaultMaxAttempts bounds retries of transient provider failures.
	DefaultMaxAttempts = 3

	// MaxBusyEvents is the number of events fetched per participant.
	MaxBusyEvents = 50

	opListEvents = "events.list"
)

// Client wraps the Google Calendar service. The service is built on first
// use so that authorization happens only when a calendar is actually read.
type Client struct {
	tokenProvider google.TokenProvider
	svcOptions    []option.ClientOption

	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	now         func() time.Time
	maxAttempts uint
	newBackOff  func() backoff.BackOff

	mu  sync.Mutex
	svc *calendar.Service
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock overrides the clock used for default query windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithMaxAttempts sets how many times a transient failure is tried.
func WithMaxAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBackOff sets the backoff policy between retries.
func WithRetryBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// WithServiceOptions appends options passed to calendar.NewService, after the
// authenticated HTTP client.
func WithServiceOptions(opts ...option.ClientOption) Option {
	return func(c *Client) { c.svcOptions = append(c.svcOptions, opts...) }
}

// NewClient creates a Calendar client that authenticates through provider.
func NewClient(provider google.TokenProvider, opts ...Option) *Client {
	c := &Client{
		tokenProvider: provider,
		logger:        slog.Default(),
		now:           time.Now,
		maxAttempts:   DefaultMaxAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, "calendar")
	return c
}

// HasToken reports whether the token provider already holds a credential.
func (c *Client) HasToken() bool {
	return c.tokenProvider != nil && c.tokenProvider.HasToken()
}

func (c *Client) service(ctx context.Context) (*calendar.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svc != nil {
		return c.svc, nil
	}
	if c.tokenProvider == nil {
		return nil, fmt.Errorf("%w: token provider cannot be nil", ErrAuthorization)
	}

	ts, err := c.tokenProvider.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	// the HTTP client outlives the request that triggered authorization
	httpClient := oauth2.NewClient(context.WithoutCancel(ctx), ts)
	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, c.svcOptions...)

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	c.svc = svc
	return svc, nil
}

// ValidateParticipant checks that participant is a bare email address and
// returns it trimmed.
func ValidateParticipant(participant string) (string, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidParticipant)
	}
	addr, err := mail.ParseAddress(participant)
	if err != nil || addr.Address != participant {
		return "", fmt.Errorf("%w: %q is not an email address", ErrInvalidParticipant, participant)
	}
	return participant, nil
}

// BusyIntervals lists the events of participant's calendar between start and
// end. A zero start means now; a zero end means start plus DefaultLookahead.
func (c *Client) BusyIntervals(ctx context.Context, participant string, start, end time.Time) (BusyResult, error) {
	participant, err := ValidateParticipant(participant)
	if err != nil {
		return BusyResult{}, err
	}

	if start.IsZero() {
		start = c.now()
	}
	if end.IsZero() {
		end = start.Add(DefaultLookahead)
	}
	if !end.After(start) {
		return BusyResult{}, fmt.Errorf("end time %s is not after start time %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	logger := c.logger.With(logging.Operation("busy_intervals"), logging.Participant(participant))
	ctx, span := instrumentation.StartCalendarSpan(ctx, logging.AnonymizeEmail(participant))
	defer span.End()

	began := time.Now()
	events, err := c.listWithRetry(ctx, participant, start, end)
	if err != nil {
		c.metrics.RecordCalendarQuery(ctx, instrumentation.StatusError, time.Since(began))
		instrumentation.SetSpanError(span, err)
		logger.Warn("busy interval query failed", logging.Err(err))
		return BusyResult{}, err
	}

	result := BusyResult{
		Participant: participant,
		From:        start,
		To:          end,
		Intervals:   make([]TimeRange, 0, len(events)),
	}
	for _, event := range events {
		result.Intervals = append(result.Intervals, toTimeRange(event))
	}

	status := instrumentation.StatusSuccess
	if result.Empty() {
		status = instrumentation.StatusEmpty
		logger.Debug("no events found in window")
	}
	c.metrics.RecordCalendarQuery(ctx, status, time.Since(began))
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrEventCount, len(result.Intervals)))
	instrumentation.SetSpanSuccess(span)

	return result, nil
}

func (c *Client) listWithRetry(ctx context.Context, participant string, start, end time.Time) ([]*calendar.Event, error) {
	attempt := 0
	operation := func() ([]*calendar.Event, error) {
		attempt++
		events, err := c.listOnce(ctx, participant, start, end)
		if err == nil {
			return events, nil
		}

		var perr *ProviderError
		if ctx.Err() != nil || !errors.As(err, &perr) || !perr.Temporary() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying calendar query",
			logging.Participant(participant),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			logging.Err(err))
	}

	events, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithNotify(notify),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	return events, err
}

func (c *Client) listOnce(ctx context.Context, participant string, start, end time.Time) ([]*calendar.Event, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, &ProviderError{Participant: participant, Op: opListEvents, Err: authError(err)}
	}

	events, err := svc.Events.List(participant).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		MaxResults(MaxBusyEvents).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, toProviderError(participant, opListEvents, err)
	}
	return events.Items, nil
}

// ListEvents lists up to max events in a calendar within a time range
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, max int64) ([]EventSummary, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, authError(err)
	}

	call := svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if max > 0 {
		call = call.MaxResults(max)
	}

	events, err := call.Do()
	if err != nil {
		return nil, toProviderError(calendarID, opListEvents, err)
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}
	return summaries, nil
}

func authError(err error) error {
	if errors.Is(err, ErrAuthorization) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAuthorization, err)
}

// toProviderError classifies a failed API call. Token refresh failures and
// HTTP 401 are authorization errors.
func toProviderError(participant, op string, err error) *ProviderError {
	perr := &ProviderError{Participant: participant, Op: op, Err: err}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.Code
		if apiErr.Code == 401 {
			perr.Err = authError(err)
		}
		return perr
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) || errors.Is(err, ErrAuthorization) {
		perr.Err = authError(err)
	}
	return perr
}

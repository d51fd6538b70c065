package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/registry"
	"github.com/roach88/telemetryd/internal/store"
)

// Journal records arrivals. *store.Store satisfies it.
type Journal interface {
	WriteArrival(ctx context.Context, a store.Arrival) error
}

// Counters receives boundary-level counts. *metrics.Recorder satisfies it.
type Counters interface {
	Rejected(ctx context.Context, code string)
	JournalError(ctx context.Context)
}

// Ack reports the effect of one accepted submission.
type Ack struct {
	EventID  string   `json:"eventId"`
	EntityID string   `json:"channel"`
	Seq      int64    `json:"messageNumber"`
	Arrival  int64    `json:"arrival"`
	Outcome  string   `json:"outcome"`
	Applied  []int64  `json:"applied"`
	Cursor   int64    `json:"lastMessageNumber"`
	Pending  int      `json:"pending"`
	Errors   []string `json:"errors,omitempty"`
}

// Service accepts decoded events.
//
// Thread-safety: Submit is safe for concurrent use. Ordering guarantees
// come from the registry; the service adds none of its own.
type Service struct {
	registry *registry.Registry
	journal  Journal
	counters Counters
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithJournal enables arrival journaling.
func WithJournal(j Journal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

// WithCounters sets the rejection and journal-error counters.
func WithCounters(c Counters) Option {
	return func(s *Service) {
		s.counters = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNow overrides the wall clock used for journal record times.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service routing into reg.
func NewService(reg *registry.Registry, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry submissions are routed into.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Submit sequences ev.
//
// Stale, duplicate and early events are accepted; the Ack says what
// happened. Only events that can never be sequenced (empty entity id,
// sequence number below 1) return an error, a *registry.RejectError.
// A failed journal write is logged and counted but does not fail the
// submission: the event has already been applied.
func (s *Service) Submit(ctx context.Context, ev event.Event) (Ack, error) {
	eventID, err := ev.ID()
	if err != nil {
		return Ack{}, fmt.Errorf("submit %s: %w", ev, err)
	}

	d, err := s.registry.Dispatch(ev)
	if err != nil {
		var re *registry.RejectError
		if errors.As(err, &re) && s.counters != nil {
			s.counters.Rejected(ctx, string(re.Code))
		}
		s.logger.WarnContext(ctx, "event rejected",
			"channel", ev.EntityID,
			"seq", ev.Seq,
			"error", err,
		)
		return Ack{}, err
	}

	ack := Ack{
		EventID:  eventID,
		EntityID: ev.EntityID,
		Seq:      ev.Seq,
		Arrival:  d.Arrival,
		Outcome:  d.Result.Outcome.String(),
		Applied:  d.Result.Applied,
		Cursor:   d.Result.Cursor,
		Pending:  d.Result.Pending,
	}
	if ack.Applied == nil {
		ack.Applied = []int64{}
	}
	for _, e := range d.Result.Errs {
		ack.Errors = append(ack.Errors, e.Error())
	}

	s.journalArrival(ctx, d.Arrival, ev, ack.Outcome)
	return ack, nil
}

func (s *Service) journalArrival(ctx context.Context, arrival int64, ev event.Event, outcome string) {
	if s.journal == nil {
		return
	}
	a, err := store.NewArrival(arrival, ev, outcome, RequestID(ctx), s.now())
	if err == nil {
		err = s.journal.WriteArrival(ctx, a)
	}
	if err != nil {
		if s.counters != nil {
			s.counters.JournalError(ctx)
		}
		s.logger.ErrorContext(ctx, "journal write failed",
			"arrival", arrival,
			"channel", ev.EntityID,
			"seq", ev.Seq,
			"error", err,
		)
	}
}

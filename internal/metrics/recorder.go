package metrics

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/registry"
	"github.com/roach88/telemetryd/internal/sequencer"
)

// Instrument names.
const (
	MetricApplied       = "telemetryd.events.applied"
	MetricBuffered      = "telemetryd.events.buffered"
	MetricDiscarded     = "telemetryd.events.discarded"
	MetricEvicted       = "telemetryd.events.evicted"
	MetricMalformed     = "telemetryd.events.malformed"
	MetricRejected      = "telemetryd.events.rejected"
	MetricJournalErrors = "telemetryd.journal.errors"
	MetricEntities      = "telemetryd.entities"
	MetricPending       = "telemetryd.events.pending"
)

// Recorder counts sequencing decisions. It implements sequencer.Observer.
//
// Observer callbacks carry no context; they record against
// context.Background().
type Recorder struct {
	applied       metric.Int64Counter
	buffered      metric.Int64Counter
	discarded     metric.Int64Counter
	evicted       metric.Int64Counter
	malformed     metric.Int64Counter
	rejected      metric.Int64Counter
	journalErrors metric.Int64Counter

	entities metric.Int64ObservableGauge
	pending  metric.Int64ObservableGauge
}

var _ sequencer.Observer = (*Recorder)(nil)

// NewRecorder creates all instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	r := &Recorder{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&r.applied, MetricApplied, "Events folded into entity state", "{event}"},
		{&r.buffered, MetricBuffered, "Events held in a reorder buffer", "{event}"},
		{&r.discarded, MetricDiscarded, "Stale or duplicate events dropped on arrival", "{event}"},
		{&r.evicted, MetricEvicted, "Stale duplicates dropped from a reorder buffer", "{event}"},
		{&r.malformed, MetricMalformed, "Applied events whose payload could not be folded", "{event}"},
		{&r.rejected, MetricRejected, "Submissions rejected before sequencing", "{event}"},
		{&r.journalErrors, MetricJournalErrors, "Arrival journal write failures", "{error}"},
	}
	for _, c := range counters {
		inst, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, err
		}
		*c.dst = inst
	}

	var err error
	r.entities, err = meter.Int64ObservableGauge(MetricEntities,
		metric.WithDescription("Entities known to the registry"),
		metric.WithUnit("{entity}"),
	)
	if err != nil {
		return nil, err
	}
	r.pending, err = meter.Int64ObservableGauge(MetricPending,
		metric.WithDescription("Events waiting in reorder buffers"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// StatsSource is satisfied by *registry.Registry.
type StatsSource interface {
	Stats() registry.Stats
}

// ObserveRegistry registers a callback reporting entity and pending counts
// from src at each collection.
func (r *Recorder) ObserveRegistry(meter metric.Meter, src StatsSource) (metric.Registration, error) {
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		st := src.Stats()
		o.ObserveInt64(r.entities, int64(st.Entities))
		o.ObserveInt64(r.pending, int64(st.Pending))
		return nil
	}, r.entities, r.pending)
}

func kindAttr(ev event.Event) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", ev.Kind.String()))
}

// Applied implements sequencer.Observer.
func (r *Recorder) Applied(ev event.Event, _ entity.State) {
	r.applied.Add(context.Background(), 1, kindAttr(ev))
}

// Failed implements sequencer.Observer.
func (r *Recorder) Failed(ev event.Event, err error) {
	code := "unknown"
	var pe *entity.PayloadError
	if errors.As(err, &pe) {
		code = string(pe.Code)
	}
	r.malformed.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", ev.Kind.String()),
		attribute.String("code", code),
	))
}

// Buffered implements sequencer.Observer.
func (r *Recorder) Buffered(ev event.Event, _ int64, _ int) {
	r.buffered.Add(context.Background(), 1, kindAttr(ev))
}

// Discarded implements sequencer.Observer.
func (r *Recorder) Discarded(ev event.Event, _ int64) {
	r.discarded.Add(context.Background(), 1, kindAttr(ev))
}

// Evicted implements sequencer.Observer.
func (r *Recorder) Evicted(ev event.Event, _ int64) {
	r.evicted.Add(context.Background(), 1, kindAttr(ev))
}

// Rejected counts a submission refused before sequencing.
func (r *Recorder) Rejected(ctx context.Context, code string) {
	r.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// JournalError counts a failed arrival journal write.
func (r *Recorder) JournalError(ctx context.Context) {
	r.journalErrors.Add(ctx, 1)
}

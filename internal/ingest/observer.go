package ingest

import (
	"log/slog"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/sequencer"
)

// LogObserver logs notable sequencing decisions.
type LogObserver struct {
	logger *slog.Logger
}

var _ sequencer.Observer = (*LogObserver)(nil)

// NewLogObserver returns an observer writing to logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With("component", "sequencer")}
}

// Applied logs creation and termination at info and warn, everything else
// at debug.
func (o *LogObserver) Applied(ev event.Event, state entity.State) {
	switch ev.Kind {
	case event.KindCreated:
		o.logger.Info("entity created",
			"channel", state.ID,
			"type", state.Type,
			"mission", state.Mission,
			"speed", state.Speed,
		)
	case event.KindTerminal:
		if state.Created() {
			o.logger.Warn("entity terminated",
				"channel", state.ID,
				"reason", state.Status,
				"seq", ev.Seq,
			)
			return
		}
		fallthrough
	default:
		o.logger.Debug("event applied",
			"channel", ev.EntityID,
			"seq", ev.Seq,
			"kind", ev.Tag(),
		)
	}
}

// Failed logs a payload that could not be folded.
func (o *LogObserver) Failed(ev event.Event, err error) {
	o.logger.Error("event payload malformed",
		"channel", ev.EntityID,
		"seq", ev.Seq,
		"kind", ev.Tag(),
		"error", err,
	)
}

// Buffered logs a gap.
func (o *LogObserver) Buffered(ev event.Event, cursor int64, pending int) {
	o.logger.Warn("gap detected, event buffered",
		"channel", ev.EntityID,
		"seq", ev.Seq,
		"expected", cursor+1,
		"pending", pending,
	)
}

// Discarded logs a stale or duplicate delivery.
func (o *LogObserver) Discarded(ev event.Event, cursor int64) {
	o.logger.Info("stale event discarded",
		"channel", ev.EntityID,
		"seq", ev.Seq,
		"cursor", cursor,
	)
}

// Evicted logs a buffered duplicate dropped during drain.
func (o *LogObserver) Evicted(ev event.Event, cursor int64) {
	o.logger.Debug("buffered duplicate evicted",
		"channel", ev.EntityID,
		"seq", ev.Seq,
		"cursor", cursor,
	)
}

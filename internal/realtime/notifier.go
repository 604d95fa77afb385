package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultQueueSize = 1024

type event struct {
	channel string
	data    []byte
}

// Notifier decouples mutation handlers from delivery. Publish never blocks:
// events go onto a bounded queue drained by Run, and are dropped with a
// warning when the queue is full.
type Notifier struct {
	dispatcher *Dispatcher
	relay      Relay
	queue      chan event
	log        zerolog.Logger
	tracer     trace.Tracer
}

// NewNotifier builds a notifier. relay may be nil, in which case events are
// delivered only to connections held by this process.
func NewNotifier(dispatcher *Dispatcher, relay Relay, queueSize int, log zerolog.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Notifier{
		dispatcher: dispatcher,
		relay:      relay,
		queue:      make(chan event, queueSize),
		log:        log.With().Str("component", "notifier").Logger(),
		tracer:     otel.Tracer(tracerName),
	}
}

// Publish schedules msg for delivery on ch.
func (n *Notifier) Publish(ch Channel, msg any) {
	channel := ch.String()
	data, err := json.Marshal(msg)
	if err != nil {
		n.log.Error().Err(err).Str("channel", channel).Msg("Failed to encode notification")
		return
	}
	select {
	case n.queue <- event{channel: channel, data: data}:
	default:
		n.log.Warn().Str("channel", channel).Msg("Notification queue full, dropping event")
	}
}

// Run drains the queue until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	// deliveries should not be cut short by shutdown of the publishing side
	deliverCtx := context.WithoutCancel(ctx)

	if n.relay != nil {
		err := n.relay.Subscribe(ctx, func(channel string, data []byte) {
			n.dispatcher.BroadcastRaw(deliverCtx, channel, data)
		})
		if err != nil {
			return fmt.Errorf("subscribe to relay: %w", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-n.queue:
			n.handle(deliverCtx, ev)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, ev event) {
	if n.relay == nil {
		n.dispatcher.BroadcastRaw(ctx, ev.channel, ev.data)
		return
	}

	ctx, span := n.tracer.Start(ctx, "realtime.relay.publish",
		trace.WithAttributes(attribute.String("realtime.channel", ev.channel)))
	defer span.End()
	if err := n.relay.Publish(ctx, ev.channel, ev.data); err != nil {
		span.RecordError(err)
		n.log.Error().Err(err).Str("channel", ev.channel).Msg("Relay publish failed, delivering locally")
		n.dispatcher.BroadcastRaw(ctx, ev.channel, ev.data)
	}
}

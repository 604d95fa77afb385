package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chronic_go_backend/internal/realtime"

// DefaultSendTimeout bounds a single delivery attempt when the dispatcher is
// built without an explicit timeout.
const DefaultSendTimeout = 5 * time.Second

// Dispatcher delivers messages to every connection subscribed to a channel.
// Delivery is best effort: a connection that fails a send is unsubscribed from
// that channel and the remaining recipients are still attempted.
type Dispatcher struct {
	registry    *Registry
	sendTimeout time.Duration
	log         zerolog.Logger
	tracer      trace.Tracer
}

func NewDispatcher(registry *Registry, sendTimeout time.Duration, log zerolog.Logger) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Dispatcher{
		registry:    registry,
		sendTimeout: sendTimeout,
		log:         log.With().Str("component", "dispatcher").Logger(),
		tracer:      otel.Tracer(tracerName),
	}
}

// Broadcast encodes msg as JSON and delivers it to the current members of
// channel. The only error returned is an encoding failure; delivery failures
// are handled by deregistering the failing connection.
func (d *Dispatcher) Broadcast(ctx context.Context, channel string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		d.log.Error().Err(err).Str("channel", channel).Msg("Failed to encode broadcast payload")
		return fmt.Errorf("encode broadcast for %s: %w", channel, err)
	}
	d.BroadcastRaw(ctx, channel, data)
	return nil
}

// BroadcastRaw delivers an already encoded payload. It returns once every
// recipient has either received the message or been deregistered.
func (d *Dispatcher) BroadcastRaw(ctx context.Context, channel string, data []byte) {
	ctx, span := d.tracer.Start(ctx, "realtime.broadcast",
		trace.WithAttributes(attribute.String("realtime.channel", channel)))
	defer span.End()

	members := d.registry.Members(channel)
	span.SetAttributes(attribute.Int("realtime.recipients", len(members)))
	if len(members) == 0 {
		return
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for _, conn := range members {
		wg.Add(1)
		go func(conn Conn) {
			defer wg.Done()
			if err := d.send(ctx, conn, data); err != nil {
				failed.Add(1)
				d.registry.Unsubscribe(channel, conn)
				d.log.Debug().Err(err).Str("channel", channel).Msg("Dropped subscriber after failed send")
			}
		}(conn)
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		span.SetAttributes(attribute.Int64("realtime.failures", n))
		span.SetStatus(codes.Error, "some recipients failed")
	}
	d.log.Debug().
		Str("channel", channel).
		Int("recipients", len(members)).
		Int64("failures", failed.Load()).
		Msg("Broadcast complete")
}

func (d *Dispatcher) send(ctx context.Context, conn Conn, data []byte) (err error) {
	// a panicking Conn counts as a failed send, not a crashed broadcaster
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return conn.Send(sendCtx, data)
}

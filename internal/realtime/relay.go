package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Relay carries encoded notifications between API instances so that a
// mutation committed on one instance reaches subscribers held by another.
// Every instance, including the publisher, receives its own messages back.
type Relay interface {
	Publish(ctx context.Context, channel string, data []byte) error
	Subscribe(ctx context.Context, handler func(channel string, data []byte)) error
	Close() error
}

const (
	redisChannelPrefix = "chronic:rt:"
	natsSubject        = "chronic.rt"
	natsChannelHeader  = "Chronic-Channel"
)

// RedisRelay relays notifications over Redis Pub/Sub.
type RedisRelay struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisRelay connects to the Redis server at url and verifies it with a PING.
func NewRedisRelay(ctx context.Context, url string, log zerolog.Logger) (*RedisRelay, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisRelayFromClient(rdb, log), nil
}

// NewRedisRelayFromClient wraps an existing client. Close closes rdb.
func NewRedisRelayFromClient(rdb *redis.Client, log zerolog.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, log: log.With().Str("component", "redis_relay").Logger()}
}

func (r *RedisRelay) Publish(ctx context.Context, channel string, data []byte) error {
	return r.rdb.Publish(ctx, redisChannelPrefix+channel, data).Err()
}

// Subscribe starts a pattern subscription and returns once Redis has
// confirmed it. Messages are handed to handler until ctx is cancelled;
// none are delivered after that.
func (r *RedisRelay) Subscribe(ctx context.Context, handler func(channel string, data []byte)) error {
	pubsub := r.rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("psubscribe: %w", err)
	}

	msgs := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok || ctx.Err() != nil {
					return
				}
				channel := strings.TrimPrefix(msg.Channel, redisChannelPrefix)
				handler(channel, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (r *RedisRelay) Close() error {
	return r.rdb.Close()
}

// NATSRelay relays notifications over a single NATS subject, carrying the
// channel name in a message header.
type NATSRelay struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// NewNATSRelay connects to the NATS server at url and reconnects forever.
func NewNATSRelay(url string, log zerolog.Logger) (*NATSRelay, error) {
	l := log.With().Str("component", "nats_relay").Logger()
	nc, err := nats.Connect(url,
		nats.Name("chronic-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSRelay{nc: nc, log: l}, nil
}

func (n *NATSRelay) Publish(ctx context.Context, channel string, data []byte) error {
	msg := nats.NewMsg(natsSubject)
	msg.Header.Set(natsChannelHeader, channel)
	msg.Data = data
	return n.nc.PublishMsg(msg)
}

// Subscribe returns once the server has registered the subscription.
// Messages without a channel header are dropped.
func (n *NATSRelay) Subscribe(ctx context.Context, handler func(channel string, data []byte)) error {
	sub, err := n.nc.Subscribe(natsSubject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		channel := msg.Header.Get(natsChannelHeader)
		if channel == "" {
			n.log.Warn().Msg("Relay message without channel header")
			return
		}
		handler(channel, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", natsSubject, err)
	}
	if err := n.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (n *NATSRelay) Close() error {
	return n.nc.Drain()
}

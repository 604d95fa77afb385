package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayed struct {
	channel string
	data    string
}

// relaySink collects what a relay hands to its subscriber.
type relaySink struct {
	mu   sync.Mutex
	msgs []relayed
}

func (s *relaySink) handle(channel string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, relayed{channel: channel, data: string(data)})
}

func (s *relaySink) received() []relayed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]relayed{}, s.msgs...)
}

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func newTestNATSRelay(t *testing.T, ns *server.Server) *NATSRelay {
	t.Helper()
	relay, err := NewNATSRelay(ns.ClientURL(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = relay.Close() })
	return relay
}

func newTestRedisRelay(t *testing.T, mr *miniredis.Miniredis) *RedisRelay {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:             mr.Addr(),
		Protocol:         2,
		DisableIndentity: true,
	})
	relay := NewRedisRelayFromClient(rdb, zerolog.Nop())
	t.Cleanup(func() { _ = relay.Close() })
	return relay
}

func TestNATSRelayRoundTrip(t *testing.T) {
	ns := runNATSServer(t)
	relay := newTestNATSRelay(t, ns)
	sink := &relaySink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, relay.Subscribe(ctx, sink.handle))

	require.NoError(t, relay.Publish(ctx, "project:p1", []byte(`{"type":"task.created"}`)))

	assert.Eventually(t, func() bool { return len(sink.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []relayed{{channel: "project:p1", data: `{"type":"task.created"}`}}, sink.received())
}

func TestNATSRelayDropsMessagesWithoutChannel(t *testing.T) {
	ns := runNATSServer(t)
	relay := newTestNATSRelay(t, ns)
	sink := &relaySink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, relay.Subscribe(ctx, sink.handle))

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	// messages from one connection arrive in order, so the valid one
	// landing means the bare one has already been handled
	require.NoError(t, nc.Publish(natsSubject, []byte("bare")))
	msg := nats.NewMsg(natsSubject)
	msg.Header.Set(natsChannelHeader, "workspace:w1")
	msg.Data = []byte("tagged")
	require.NoError(t, nc.PublishMsg(msg))
	require.NoError(t, nc.Flush())

	assert.Eventually(t, func() bool { return len(sink.received()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []relayed{{channel: "workspace:w1", data: "tagged"}}, sink.received())
}

func TestNATSRelayStopsOnCancel(t *testing.T) {
	ns := runNATSServer(t)
	relay := newTestNATSRelay(t, ns)
	sink := &relaySink{}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, relay.Subscribe(ctx, sink.handle))
	require.NoError(t, relay.Publish(ctx, "project:p1", []byte("before")))
	assert.Eventually(t, func() bool { return len(sink.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, relay.Publish(context.Background(), "project:p1", []byte("after")))

	assert.Never(t, func() bool { return len(sink.received()) > 1 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestRedisRelayRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	relay := newTestRedisRelay(t, mr)
	sink := &relaySink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, relay.Subscribe(ctx, sink.handle))

	require.NoError(t, relay.Publish(ctx, "project:p1", []byte(`{"type":"task.created"}`)))

	assert.Eventually(t, func() bool { return len(sink.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []relayed{{channel: "project:p1", data: `{"type":"task.created"}`}}, sink.received())
}

func TestRedisRelayIgnoresForeignChannels(t *testing.T) {
	mr := miniredis.RunT(t)
	relay := newTestRedisRelay(t, mr)
	sink := &relaySink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, relay.Subscribe(ctx, sink.handle))

	mr.Publish("project:p1", "unprefixed")
	mr.Publish(redisChannelPrefix+"workspace:w1", "prefixed")

	assert.Eventually(t, func() bool { return len(sink.received()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []relayed{{channel: "workspace:w1", data: "prefixed"}}, sink.received())
}

func TestRedisRelayStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	relay := newTestRedisRelay(t, mr)
	sink := &relaySink{}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, relay.Subscribe(ctx, sink.handle))
	require.NoError(t, relay.Publish(ctx, "project:p1", []byte("before")))
	assert.Eventually(t, func() bool { return len(sink.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, relay.Publish(context.Background(), "project:p1", []byte("after")))

	assert.Never(t, func() bool { return len(sink.received()) > 1 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestNewRedisRelayRejectsBadURL(t *testing.T) {
	_, err := NewRedisRelay(context.Background(), "not a url", zerolog.Nop())
	assert.Error(t, err)
}

func TestNotifiersShareEventsOverNATS(t *testing.T) {
	ns := runNATSServer(t)

	regA, regB := NewRegistry(), NewRegistry()
	a := NewNotifier(newTestDispatcher(regA), newTestNATSRelay(t, ns), 8, zerolog.Nop())
	b := NewNotifier(newTestDispatcher(regB), newTestNATSRelay(t, ns), 8, zerolog.Nop())
	base := ns.NumSubscriptions()
	runNotifier(t, a)
	runNotifier(t, b)
	require.Eventually(t, func() bool { return ns.NumSubscriptions() >= base+2 }, 2*time.Second, 10*time.Millisecond)

	local, remote := newRecordingConn("local"), newRecordingConn("remote")
	regA.Subscribe("project:p1", local)
	regB.Subscribe("project:p1", remote)

	a.Publish(ProjectChannel("p1"), map[string]string{"type": "task.created"})

	want := []string{`{"type":"task.created"}`}
	assert.Eventually(t, func() bool {
		return len(local.received()) == 1 && len(remote.received()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, local.received())
	assert.Equal(t, want, remote.received())
}

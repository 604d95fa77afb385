package realtime

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackRelay delivers published messages back to its own subscribers.
type loopbackRelay struct {
	mu         sync.Mutex
	handlers   []func(string, []byte)
	published  []string
	publishErr error
}

func (l *loopbackRelay) Publish(ctx context.Context, channel string, data []byte) error {
	l.mu.Lock()
	l.published = append(l.published, channel)
	handlers := append([]func(string, []byte){}, l.handlers...)
	err := l.publishErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	for _, h := range handlers {
		h(channel, data)
	}
	return nil
}

func (l *loopbackRelay) Subscribe(ctx context.Context, handler func(string, []byte)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
	return nil
}

func (l *loopbackRelay) Close() error { return nil }

func (l *loopbackRelay) publishedChannels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.published...)
}

func runNotifier(t *testing.T, n *Notifier) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Error("notifier did not stop")
		}
	})
}

func TestNotifierDeliversLocally(t *testing.T) {
	r := NewRegistry()
	n := NewNotifier(newTestDispatcher(r), nil, 8, zerolog.Nop())
	conn := newRecordingConn("a")
	r.Subscribe("project:p1", conn)

	runNotifier(t, n)
	n.Publish(ProjectChannel("p1"), map[string]string{"type": "task.deleted", "id": "t1"})

	assert.Eventually(t, func() bool {
		return len(conn.received()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, `{"id":"t1","type":"task.deleted"}`, conn.received()[0])
}

func TestNotifierPublishNeverBlocks(t *testing.T) {
	n := NewNotifier(newTestDispatcher(NewRegistry()), nil, 1, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		// nothing drains the queue, so all but the first are dropped
		for i := 0; i < 10; i++ {
			n.Publish(WorkspaceChannel("w1"), map[string]int{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	assert.Len(t, n.queue, 1)
}

func TestNotifierDropsUnencodablePayload(t *testing.T) {
	n := NewNotifier(newTestDispatcher(NewRegistry()), nil, 4, zerolog.Nop())

	n.Publish(ProjectChannel("p1"), map[string]float64{"x": math.Inf(1)})

	assert.Empty(t, n.queue)
}

func TestNotifierUsesRelay(t *testing.T) {
	r := NewRegistry()
	relay := &loopbackRelay{}
	n := NewNotifier(newTestDispatcher(r), relay, 8, zerolog.Nop())
	conn := newRecordingConn("a")
	r.Subscribe("workspace:w1", conn)

	runNotifier(t, n)
	n.Publish(WorkspaceChannel("w1"), map[string]string{"type": "tag.created"})

	assert.Eventually(t, func() bool {
		return len(conn.received()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"workspace:w1"}, relay.publishedChannels())
}

func TestNotifierFallsBackWhenRelayFails(t *testing.T) {
	r := NewRegistry()
	relay := &loopbackRelay{publishErr: errors.New("relay down")}
	n := NewNotifier(newTestDispatcher(r), relay, 8, zerolog.Nop())
	conn := newRecordingConn("a")
	r.Subscribe("project:p1", conn)

	runNotifier(t, n)
	n.Publish(ProjectChannel("p1"), map[string]string{"type": "task.created"})

	assert.Eventually(t, func() bool {
		return len(conn.received()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotifierRunReportsRelaySubscribeError(t *testing.T) {
	n := NewNotifier(newTestDispatcher(NewRegistry()), failingRelay{}, 1, zerolog.Nop())
	err := n.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscribe to relay")
}

type failingRelay struct{}

func (failingRelay) Publish(context.Context, string, []byte) error { return nil }
func (failingRelay) Subscribe(context.Context, func(string, []byte)) error {
	return errors.New("no route to host")
}
func (failingRelay) Close() error { return nil }

package realtime

import (
	"context"
	"sort"
	"sync"
)

// Conn is a live duplex transport to one client. Implementations must be
// comparable (pointer types): the registry keys membership on interface
// equality.
type Conn interface {
	Send(ctx context.Context, data []byte) error
}

// Registry maps channel names to the set of connections subscribed to them.
type Registry struct {
	mu       sync.Mutex
	channels map[string]map[Conn]struct{}
	// reverse index so DisconnectAll doesn't scan every channel
	conns map[Conn]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[Conn]struct{}),
		conns:    make(map[Conn]map[string]struct{}),
	}
}

// Subscribe adds conn to channel. Subscribing twice is a no-op.
func (r *Registry) Subscribe(channel string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[channel]
	if !ok {
		members = make(map[Conn]struct{})
		r.channels[channel] = members
	}
	members[conn] = struct{}{}

	subs, ok := r.conns[conn]
	if !ok {
		subs = make(map[string]struct{})
		r.conns[conn] = subs
	}
	subs[channel] = struct{}{}
}

// Unsubscribe removes conn from channel. Unknown channels and connections are
// ignored.
func (r *Registry) Unsubscribe(channel string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(channel, conn)
}

// DisconnectAll removes conn from every channel it is subscribed to and
// returns those channels.
func (r *Registry) DisconnectAll(conn Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.conns[conn]
	removed := make([]string, 0, len(subs))
	for channel := range subs {
		removed = append(removed, channel)
	}
	for _, channel := range removed {
		r.removeLocked(channel, conn)
	}
	sort.Strings(removed)
	return removed
}

// Members returns a copy of the connections subscribed to channel.
func (r *Registry) Members(channel string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.channels[channel]
	out := make([]Conn, 0, len(members))
	for conn := range members {
		out = append(out, conn)
	}
	return out
}

// Channels returns the names of all channels with at least one member.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.channels))
	for channel := range r.channels {
		out = append(out, channel)
	}
	sort.Strings(out)
	return out
}

// ChannelsOf returns the channels conn is currently subscribed to.
func (r *Registry) ChannelsOf(conn Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.conns[conn]
	out := make([]string, 0, len(subs))
	for channel := range subs {
		out = append(out, channel)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) removeLocked(channel string, conn Conn) {
	if members, ok := r.channels[channel]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(r.channels, channel)
		}
	}
	if subs, ok := r.conns[conn]; ok {
		delete(subs, channel)
		if len(subs) == 0 {
			delete(r.conns, conn)
		}
	}
}

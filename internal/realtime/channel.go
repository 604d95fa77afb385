package realtime

import (
	"errors"
	"fmt"
	"strings"
)

// ChannelKind identifies what a channel's ID refers to.
type ChannelKind string

const (
	KindWorkspace ChannelKind = "workspace"
	KindProject   ChannelKind = "project"
)

var ErrInvalidChannel = errors.New("invalid channel")

// Channel is the typed form of a channel name. The registry only ever sees
// the string produced by String.
type Channel struct {
	Kind ChannelKind
	ID   string
}

func WorkspaceChannel(workspaceID string) Channel {
	return Channel{Kind: KindWorkspace, ID: workspaceID}
}

func ProjectChannel(projectID string) Channel {
	return Channel{Kind: KindProject, ID: projectID}
}

func (c Channel) String() string {
	return string(c.Kind) + ":" + c.ID
}

// ParseChannel converts a wire name such as "project:<id>" back into a Channel.
func ParseChannel(name string) (Channel, error) {
	kind, id, ok := strings.Cut(name, ":")
	if !ok || id == "" {
		return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
	}
	switch ChannelKind(kind) {
	case KindWorkspace, KindProject:
		return Channel{Kind: ChannelKind(kind), ID: id}, nil
	default:
		return Channel{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidChannel, kind)
	}
}

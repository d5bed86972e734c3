// Package event defines what the discovery and session layers report to
// the engine. Producers run on their own goroutines; the engine serializes
// delivery onto its event loop.
package event

import (
	"fmt"

	"github.com/eglochon/hubchat/pkg/identity"
)

// Kind identifies an event variant
type Kind int

const (
	// PeerFound is reported by the browser when a peer is sighted
	PeerFound Kind = iota + 1
	// PeerLost is reported by the browser when a peer leaves or goes stale
	PeerLost
	// BrowseFailed is reported when browsing stops on its own
	BrowseFailed
	// InvitationReceived is reported by the advertiser for every accepted invitation
	InvitationReceived
	// AdvertiseFailed is reported when advertising stops on its own
	AdvertiseFailed
	// StateChanged is reported by the session on every connection transition
	StateChanged
	// DataReceived carries one inbound message payload
	DataReceived
	// StreamReceived and ResourceReceived are transport capabilities the
	// message core does not use.
	StreamReceived
	ResourceReceived
)

func (k Kind) String() string {
	switch k {
	case PeerFound:
		return "peer-found"
	case PeerLost:
		return "peer-lost"
	case BrowseFailed:
		return "browse-failed"
	case InvitationReceived:
		return "invitation"
	case AdvertiseFailed:
		return "advertise-failed"
	case StateChanged:
		return "state-changed"
	case DataReceived:
		return "data"
	case StreamReceived:
		return "stream"
	case ResourceReceived:
		return "resource"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State of a session with one remote identifier
type State int

const (
	Connecting State = iota + 1
	Connected
	// NotConnected is terminal for the identifier
	NotConnected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case NotConnected:
		return "notConnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is a tagged union; which fields are set depends on Kind
type Event struct {
	Kind  Kind
	Peer  identity.RemotePeer
	State State
	Data  []byte
	Err   error
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink func(Event)

func Found(p identity.RemotePeer) Event {
	return Event{Kind: PeerFound, Peer: p}
}

func Lost(p identity.RemotePeer) Event {
	return Event{Kind: PeerLost, Peer: p}
}

func Changed(p identity.RemotePeer, s State) Event {
	return Event{Kind: StateChanged, Peer: p, State: s}
}

func Received(p identity.RemotePeer, data []byte) Event {
	return Event{Kind: DataReceived, Peer: p, Data: data}
}

func Failed(kind Kind, err error) Event {
	return Event{Kind: kind, Err: err}
}

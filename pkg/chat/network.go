package chat

import (
	"time"

	"github.com/eglochon/hubchat/pkg/comms"
	"github.com/eglochon/hubchat/pkg/discovery"
	"github.com/eglochon/hubchat/pkg/event"
	"github.com/eglochon/hubchat/pkg/identity"
)

// Session carries message bytes to connected peers
type Session interface {
	// Send submits data for reliable delivery without waiting for the peer
	Send(data []byte, peerID string) error
	Disconnect()
}

// Advertiser announces this node and accepts every invitation into the
// session it was built with. Start on a running advertiser is a no-op.
type Advertiser interface {
	Start() error
	Stop()
}

// Browser reports peers through the event sink and invites them into the
// session it was built with. Start on a running browser is a no-op.
type Browser interface {
	Start() error
	Stop()
	Invite(p identity.RemotePeer, timeout time.Duration)
}

// Network builds the components for one identity. The engine asks for a
// fresh set on every restart.
type Network interface {
	NewSession(local identity.Local, sink event.Sink) Session
	NewAdvertiser(local identity.Local, s Session, sink event.Sink) Advertiser
	NewBrowser(local identity.Local, s Session, sink event.Sink) Browser
}

// LAN is the Network of multicast discovery and TCP sessions
type LAN struct {
	Options discovery.Options
}

func (n *LAN) NewSession(local identity.Local, sink event.Sink) Session {
	return comms.NewSession(local, n.Options.Service, sink)
}

func (n *LAN) NewAdvertiser(local identity.Local, s Session, sink event.Sink) Advertiser {
	return discovery.NewAdvertiser(n.Options, local, s.(*comms.Session), sink)
}

func (n *LAN) NewBrowser(local identity.Local, s Session, sink event.Sink) Browser {
	return discovery.NewBrowser(n.Options, local, s.(*comms.Session), sink)
}

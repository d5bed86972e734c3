package comms

import (
	"net"
	"sync"

	"github.com/eglochon/hubchat/pkg/event"
	"github.com/eglochon/hubchat/pkg/identity"
)

// sendQueueSize bounds the frames waiting to be written to one peer
const sendQueueSize = 64

// peerConn is the connection state machine for one remote identifier:
// connecting → connected → notConnected. A reconnect gets a new peerConn.
type peerConn struct {
	peer     identity.RemotePeer
	outbound bool // we sent the invitation

	// guarded by Session.mu
	state event.State
	conn  net.Conn

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newPeerConn(p identity.RemotePeer, outbound bool) *peerConn {
	return &peerConn{
		peer:     p,
		outbound: outbound,
		state:    event.Connecting,
		queue:    make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// close releases the connection; safe to call more than once
func (pc *peerConn) close(conn net.Conn) {
	pc.closeOnce.Do(func() {
		close(pc.done)
	})
	if conn != nil {
		_ = conn.Close()
	}
}

// initiator returns the identifier of the side that sent the invitation
func (pc *peerConn) initiator(self string) string {
	if pc.outbound {
		return self
	}
	return pc.peer.ID
}

// Package comms carries chat messages between participants once they have
// found each other. A Session holds one connection per remote identifier and
// reports every state transition and inbound payload through an event.Sink.
//
// Nothing on the wire is encrypted: a connection opens with a hello frame in
// each direction and every later frame is one UTF-8 chat message.
package comms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/eglochon/hubchat/pkg/event"
	"github.com/eglochon/hubchat/pkg/identity"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("hubchat/comms")

var (
	ErrNotConnected = errors.New("peer not connected")
	ErrQueueFull    = errors.New("send queue full")
	ErrClosed       = errors.New("session closed")
	ErrDuplicate    = errors.New("duplicate connection")
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

type Session struct {
	self    identity.Local
	service string
	sink    event.Sink

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	peers  map[string]*peerConn // peer ID → live connection
}

// NewSession creates an empty session for self within the service namespace
func NewSession(self identity.Local, service string, sink event.Sink) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		self:    self,
		service: service,
		sink:    sink,
		ctx:     ctx,
		cancel:  cancel,
		peers:   make(map[string]*peerConn),
	}
}

// Invite dials addr and asks p to join the session. It returns at once; the
// outcome arrives as state events. A failed or timed out invitation is not
// retried.
func (s *Session) Invite(p identity.RemotePeer, addr string, timeout time.Duration) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, busy := s.peers[p.ID]; busy {
		s.mu.Unlock()
		log.Debugf("invite %s skipped: already in session", p)
		return
	}
	pc := newPeerConn(p, true)
	s.peers[p.ID] = pc
	s.mu.Unlock()

	s.sink(event.Changed(p, event.Connecting))
	go s.dial(pc, addr, timeout)
}

func (s *Session) dial(pc *peerConn, addr string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.fail(pc, fmt.Errorf("dial %s: %w", addr, err))
		return
	}
	if !s.attach(pc, conn) {
		return
	}

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)
	if err := sendHello(conn, s.service, s.self); err != nil {
		s.fail(pc, fmt.Errorf("send hello: %w", err))
		return
	}
	remote, err := recvHello(conn, s.service)
	if err != nil {
		s.fail(pc, fmt.Errorf("receive hello: %w", err))
		return
	}
	if remote.ID != pc.peer.ID {
		s.fail(pc, fmt.Errorf("invited %s but %s answered", pc.peer, remote))
		return
	}
	_ = conn.SetDeadline(time.Time{})

	s.establish(pc)
}

// attach binds a dialed connection to pc unless pc was superseded meanwhile
func (s *Session) attach(pc *peerConn, conn net.Conn) bool {
	s.mu.Lock()
	if s.closed || s.peers[pc.peer.ID] != pc {
		s.mu.Unlock()
		pc.close(conn)
		return false
	}
	pc.conn = conn
	s.mu.Unlock()
	return true
}

// Accept answers an inbound invitation on conn. Every invitation is accepted;
// when both sides invited each other, the connection opened by the smaller
// identifier is kept on both ends.
func (s *Session) Accept(conn net.Conn) (identity.RemotePeer, error) {
	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	remote, err := recvHello(conn, s.service)
	if err != nil {
		_ = conn.Close()
		return identity.RemotePeer{}, fmt.Errorf("receive hello: %w", err)
	}
	if remote.ID == s.self.ID {
		_ = conn.Close()
		return remote, errors.New("connection from self")
	}

	pc := newPeerConn(remote, false)
	pc.conn = conn

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return remote, ErrClosed
	}
	var replaced *peerConn
	var replacedConn net.Conn
	if existing, ok := s.peers[remote.ID]; ok {
		if existing.initiator(s.self.ID) < pc.initiator(s.self.ID) {
			s.mu.Unlock()
			_ = conn.Close()
			return remote, fmt.Errorf("%w with %s", ErrDuplicate, remote)
		}
		replaced, replacedConn = existing, existing.conn
	}
	s.peers[remote.ID] = pc
	s.mu.Unlock()

	if replaced != nil {
		log.Debugf("replacing connection with %s", remote)
		replaced.close(replacedConn)
	}
	s.sink(event.Changed(remote, event.Connecting))

	if err := sendHello(conn, s.service, s.self); err != nil {
		s.fail(pc, fmt.Errorf("send hello: %w", err))
		return remote, err
	}
	_ = conn.SetDeadline(time.Time{})

	s.establish(pc)
	return remote, nil
}

func (s *Session) establish(pc *peerConn) {
	s.mu.Lock()
	if s.peers[pc.peer.ID] != pc {
		conn := pc.conn
		s.mu.Unlock()
		pc.close(conn)
		return
	}
	pc.state = event.Connected
	conn := pc.conn
	s.mu.Unlock()

	log.Infof("connected to %s (%s)", pc.peer, conn.RemoteAddr())
	s.sink(event.Changed(pc.peer, event.Connected))

	go s.readLoop(pc, conn)
	go s.writeLoop(pc, conn)
}

// fail moves pc to notConnected. Superseded connections end silently.
func (s *Session) fail(pc *peerConn, err error) {
	s.mu.Lock()
	current := s.peers[pc.peer.ID] == pc
	if current {
		delete(s.peers, pc.peer.ID)
	}
	pc.state = event.NotConnected
	conn := pc.conn
	s.mu.Unlock()

	pc.close(conn)
	if current {
		log.Infof("session with %s ended: %v", pc.peer, err)
		s.sink(event.Changed(pc.peer, event.NotConnected))
	}
}

func (s *Session) readLoop(pc *peerConn, conn net.Conn) {
	for {
		data, err := readFrame(conn)
		if err != nil {
			s.fail(pc, err)
			return
		}
		s.sink(event.Received(pc.peer, data))
	}
}

func (s *Session) writeLoop(pc *peerConn, conn net.Conn) {
	for {
		select {
		case data := <-pc.queue:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := writeFrame(conn, data); err != nil {
				s.fail(pc, fmt.Errorf("write: %w", err))
				return
			}
		case <-pc.done:
			return
		}
	}
}

// State reports where the connection with peerID stands
func (s *Session) State(peerID string) event.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pc, ok := s.peers[peerID]; ok {
		return pc.state
	}
	return event.NotConnected
}

// Disconnect closes every connection. The session cannot be reused.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	peers := s.peers
	s.peers = make(map[string]*peerConn)
	conns := make(map[*peerConn]net.Conn, len(peers))
	for _, pc := range peers {
		pc.state = event.NotConnected
		conns[pc] = pc.conn
	}
	s.mu.Unlock()

	s.cancel()
	for pc, conn := range conns {
		pc.close(conn)
		s.sink(event.Changed(pc.peer, event.NotConnected))
	}
	log.Debugf("session for %s disconnected (%d peers)", s.self.Name, len(peers))
}

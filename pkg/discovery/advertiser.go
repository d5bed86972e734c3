// Package discovery lets participants on the same LAN find each other.
//
// An Advertiser multicasts this node's presence and accepts invitations on
// a TCP port. A Browser listens for those announcements, reports peers as
// found or lost, and sends invitations to them.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/eglochon/hubchat/pkg/event"
	"github.com/eglochon/hubchat/pkg/identity"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/net/ipv4"
)

var log = logging.Logger("hubchat/discovery")

// Acceptor binds an inbound invitation to a session
type Acceptor interface {
	Accept(conn net.Conn) (identity.RemotePeer, error)
}

type Advertiser struct {
	opts     Options
	self     identity.Local
	acceptor Acceptor
	sink     event.Sink

	mu      sync.Mutex
	running bool
	ln      net.Listener
	conn    *net.UDPConn
	cancel  context.CancelFunc
}

// NewAdvertiser creates a stopped advertiser for self
func NewAdvertiser(opts Options, self identity.Local, acceptor Acceptor, sink event.Sink) *Advertiser {
	return &Advertiser{
		opts:     opts,
		self:     self,
		acceptor: acceptor,
		sink:     sink,
	}
}

// Start opens the invitation listener and begins announcing. Starting a
// running advertiser does nothing.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(int(a.opts.Port))))
	if err != nil {
		return fmt.Errorf("listen for invitations: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	msg, err := announcement{
		Type:    typeAnnounce,
		Service: a.opts.Service,
		Peer:    a.self.Peer(),
		Port:    uint16(port),
	}.marshal()
	if err != nil {
		ln.Close()
		return err
	}

	conn, err := dialGroup(a.opts)
	if err != nil {
		ln.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.running = true
	a.ln, a.conn, a.cancel = ln, conn, cancel

	go a.acceptLoop(ctx, ln)
	go a.broadcast(ctx, conn, msg)

	addr := "unknown"
	if self, err := NewSelfAddress(); err == nil {
		addr = self.Addr(uint16(port))
	}
	log.Infof("advertising %s as %s on %s", a.opts.Service, a.self.Name, addr)
	return nil
}

// Stop announces departure and closes the listener
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.running = false
	a.cancel()

	port := a.ln.Addr().(*net.TCPAddr).Port
	leave, err := announcement{
		Type:    typeLeave,
		Service: a.opts.Service,
		Peer:    a.self.Peer(),
		Port:    uint16(port),
	}.marshal()
	if err == nil {
		if _, err := a.conn.Write(leave); err != nil {
			log.Debugf("leave announcement failed: %v", err)
		}
	}

	a.ln.Close()
	a.conn.Close()
	log.Infof("stopped advertising %s", a.self.Name)
}

// Running reports whether the advertiser is announcing
func (a *Advertiser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Addr returns the invitation listener address while running
func (a *Advertiser) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

// acceptLoop accepts every invitation; there is no allow-list
func (a *Advertiser) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			log.Warnf("invitation listener failed: %v", err)
			a.fail(err)
			return
		}

		go func() {
			p, err := a.acceptor.Accept(conn)
			if err != nil {
				log.Debugf("invitation from %s not accepted: %v", conn.RemoteAddr(), err)
				return
			}
			a.sink(event.Event{Kind: event.InvitationReceived, Peer: p})
		}()
	}
}

func (a *Advertiser) broadcast(ctx context.Context, conn *net.UDPConn, msg []byte) {
	ticker := a.opts.clock().Ticker(a.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := conn.Write(msg); err != nil && ctx.Err() == nil {
			log.Debugf("announce failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// fail stops an advertiser whose listener died and reports it
func (a *Advertiser) fail(err error) {
	a.Stop()
	a.sink(event.Failed(event.AdvertiseFailed, err))
}

// dialGroup opens the sending side of the multicast group
func dialGroup(opts Options) (*net.UDPConn, error) {
	group, err := net.ResolveUDPAddr("udp4", opts.MulticastAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", opts.MulticastAddr, err)
	}
	conn, err := net.DialUDP("udp4", nil, group)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", group, err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastLoopback(opts.Loopback); err != nil {
		log.Debugf("failed to set multicast loopback: %v", err)
	}
	if err := p.SetMulticastTTL(1); err != nil {
		log.Debugf("failed to set multicast TTL: %v", err)
	}
	return conn, nil
}

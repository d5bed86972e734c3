package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eglochon/hubchat/pkg/event"
	"github.com/eglochon/hubchat/pkg/identity"
	"golang.org/x/net/ipv4"
)

// Inviter opens a session with a discovered peer and reports how that
// session stands.
type Inviter interface {
	Invite(p identity.RemotePeer, addr string, timeout time.Duration)
	State(peerID string) event.State
}

type sighting struct {
	peer     identity.RemotePeer
	addr     string
	lastSeen time.Time
	// reported is when the peer was last reported found
	reported time.Time
}

type Browser struct {
	opts    Options
	self    identity.Local
	inviter Inviter
	sink    event.Sink
	clock   clock.Clock

	mu      sync.Mutex
	running bool
	conn    *net.UDPConn
	cancel  context.CancelFunc
	seen    map[string]*sighting // peer ID → last announcement
}

// NewBrowser creates a stopped browser for self
func NewBrowser(opts Options, self identity.Local, inviter Inviter, sink event.Sink) *Browser {
	return &Browser{
		opts:    opts,
		self:    self,
		inviter: inviter,
		sink:    sink,
		clock:   opts.clock(),
		seen:    make(map[string]*sighting),
	}
}

// Start joins the multicast group. Starting a running browser does nothing.
func (b *Browser) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}

	group, err := net.ResolveUDPAddr("udp4", b.opts.MulticastAddr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", b.opts.MulticastAddr, err)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", group, err)
	}
	joinAllInterfaces(conn, group)

	ctx, cancel := context.WithCancel(context.Background())
	b.running = true
	b.conn, b.cancel = conn, cancel

	go b.listen(ctx, conn)
	go b.cleanupLoop(ctx)

	log.Infof("browsing for %s on %s", b.opts.Service, group)
	return nil
}

// Stop leaves the group and forgets every sighting without reporting losses
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	b.cancel()
	b.conn.Close()
	b.seen = make(map[string]*sighting)
	log.Infof("stopped browsing for %s", b.opts.Service)
}

// Running reports whether the browser is listening
func (b *Browser) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Invite asks the session to connect to a sighted peer
func (b *Browser) Invite(p identity.RemotePeer, timeout time.Duration) {
	b.mu.Lock()
	s, ok := b.seen[p.ID]
	var addr string
	if ok {
		addr = s.addr
	}
	b.mu.Unlock()

	if !ok {
		log.Debugf("cannot invite %s: not sighted", p)
		return
	}
	log.Infof("inviting %s at %s", p, addr)
	b.inviter.Invite(p, addr, timeout)
}

func (b *Browser) listen(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, MaxAnnouncementSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("browse read failed: %v", err)
			b.Stop()
			b.sink(event.Failed(event.BrowseFailed, err))
			return
		}
		b.handle(buf[:n], src)
	}
}

// handle processes one datagram from src. A peer is reported found on its
// first announcement, and again at most once per interval while the session
// has no connection with it, so that a failed or dropped invitation is
// retried.
func (b *Browser) handle(data []byte, src *net.UDPAddr) {
	a, err := parseAnnouncement(data, b.opts.Service)
	if err != nil {
		if !errors.Is(err, errForeignService) {
			log.Debugf("invalid announcement from %s: %v", src, err)
		}
		return
	}
	if a.Peer.ID == b.self.ID {
		return
	}
	addr := net.JoinHostPort(src.IP.String(), strconv.Itoa(int(a.Port)))
	unconnected := a.Type == typeAnnounce && b.inviter.State(a.Peer.ID) == event.NotConnected

	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	now := b.clock.Now()
	s, known := b.seen[a.Peer.ID]
	rediscovered := false
	switch a.Type {
	case typeAnnounce:
		if !known {
			s = &sighting{peer: a.Peer, reported: now}
			b.seen[a.Peer.ID] = s
		} else if unconnected && now.Sub(s.reported) >= b.opts.Interval {
			s.reported = now
			rediscovered = true
		}
		s.addr = addr
		s.lastSeen = now
	case typeLeave:
		delete(b.seen, a.Peer.ID)
	}
	b.mu.Unlock()

	switch {
	case a.Type == typeAnnounce && !known:
		log.Infof("found %s at %s", a.Peer, addr)
		b.sink(event.Found(a.Peer))
	case rediscovered:
		log.Debugf("found %s again at %s, not connected", a.Peer, addr)
		b.sink(event.Found(a.Peer))
	case a.Type == typeLeave && known:
		log.Infof("%s left", a.Peer)
		b.sink(event.Lost(a.Peer))
	}
}

func (b *Browser) cleanupLoop(ctx context.Context) {
	ticker := b.clock.Ticker(b.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.purgeStale()
		}
	}
}

// purgeStale reports peers that missed three announcements as lost
func (b *Browser) purgeStale() {
	threshold := b.clock.Now().Add(-b.opts.staleAfter())

	b.mu.Lock()
	var lost []identity.RemotePeer
	for id, s := range b.seen {
		if s.lastSeen.Before(threshold) {
			delete(b.seen, id)
			lost = append(lost, s.peer)
		}
	}
	b.mu.Unlock()

	for _, p := range lost {
		log.Infof("%s went stale", p)
		b.sink(event.Lost(p))
	}
}

// joinAllInterfaces joins the group on every multicast-capable interface,
// not only the system default one.
func joinAllInterfaces(conn *net.UDPConn, group *net.UDPAddr) {
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Debugf("list interfaces: %v", err)
		return
	}
	p := ipv4.NewPacketConn(conn)
	for i := range ifaces {
		ifi := &ifaces[i]
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := p.JoinGroup(ifi, &net.UDPAddr{IP: group.IP}); err != nil {
			log.Debugf("join %s on %s: %v", group.IP, ifi.Name, err)
		}
	}
}

package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/eglochon/hubchat/pkg/event"
	"github.com/eglochon/hubchat/pkg/identity"
)

type memStore struct {
	mu   sync.Mutex
	name string
	err  error
}

func (s *memStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, nil
}

func (s *memStore) Save(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.name = name
	return nil
}

func (s *memStore) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

type sent struct {
	text   string
	peerID string
}

type fakeSession struct {
	mu           sync.Mutex
	sent         []sent
	sendErr      error
	disconnected bool
}

func (s *fakeSession) Send(data []byte, peerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return errors.New("disconnected")
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sent{string(data), peerID})
	return nil
}

func (s *fakeSession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
}

func (s *fakeSession) isDisconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

func (s *fakeSession) sends() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.sent...)
}

type fakeComponent struct {
	mu       sync.Mutex
	starts   int
	stops    int
	running  bool
	startErr error
	invites  []invite
}

type invite struct {
	peer    identity.RemotePeer
	timeout time.Duration
}

func (c *fakeComponent) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	if !c.running {
		c.starts++
		c.running = true
	}
	return nil
}

func (c *fakeComponent) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.running = false
}

func (c *fakeComponent) Invite(p identity.RemotePeer, timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invites = append(c.invites, invite{p, timeout})
}

func (c *fakeComponent) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func (c *fakeComponent) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *fakeComponent) invited() []invite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]invite(nil), c.invites...)
}

// generation is one set of components built by a restart
type generation struct {
	local      identity.Local
	sink       event.Sink
	session    *fakeSession
	advertiser *fakeComponent
	browser    *fakeComponent
}

type fakeNetwork struct {
	mu           sync.Mutex
	gens         []*generation
	advertiseErr error
	browseErr    error
}

func (n *fakeNetwork) NewSession(local identity.Local, sink event.Sink) Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	g := &generation{local: local, sink: sink, session: &fakeSession{}}
	n.gens = append(n.gens, g)
	return g.session
}

func (n *fakeNetwork) NewAdvertiser(local identity.Local, s Session, sink event.Sink) Advertiser {
	n.mu.Lock()
	defer n.mu.Unlock()
	g := n.gens[len(n.gens)-1]
	g.advertiser = &fakeComponent{startErr: n.advertiseErr}
	return g.advertiser
}

func (n *fakeNetwork) NewBrowser(local identity.Local, s Session, sink event.Sink) Browser {
	n.mu.Lock()
	defer n.mu.Unlock()
	g := n.gens[len(n.gens)-1]
	g.browser = &fakeComponent{startErr: n.browseErr}
	return g.browser
}

func (n *fakeNetwork) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.gens)
}

func (n *fakeNetwork) gen(i int) *generation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gens[i]
}

func (n *fakeNetwork) current() *generation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gens[len(n.gens)-1]
}

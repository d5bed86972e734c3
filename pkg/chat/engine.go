// Package chat is the peer-discovery-and-session engine. An Engine owns the
// local identity, the discovery components, the session and the peer
// registry, and exposes the small command and query surface a user
// interface needs.
//
// All engine state is confined to one event loop goroutine. Commands,
// queries, transport events and timers are all posted to that loop and run
// one at a time.
package chat

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eglochon/hubchat/pkg/event"
	"github.com/eglochon/hubchat/pkg/identity"
	"github.com/eglochon/hubchat/pkg/peers"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("hubchat/chat")

var ErrClosed = errors.New("engine closed")

const (
	DefaultSettleDelay       = 1200 * time.Millisecond
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultInviteTimeout     = 30 * time.Second
)

type Config struct {
	// SettleDelay separates a restart from the start of advertising and browsing
	SettleDelay       time.Duration
	HeartbeatInterval time.Duration
	InviteTimeout     time.Duration
	Clock             clock.Clock
	// OnHeartbeat, when set, receives every heartbeat snapshot that gets logged
	OnHeartbeat func(Status)
}

func DefaultConfig() Config {
	return Config{
		SettleDelay:       DefaultSettleDelay,
		HeartbeatInterval: DefaultHeartbeatInterval,
		InviteTimeout:     DefaultInviteTimeout,
		Clock:             clock.New(),
	}
}

// NameStore persists the local display name
type NameStore interface {
	identity.NameLoader
	Save(name string) error
}

// Status is a snapshot of the local node
type Status struct {
	Name         string
	ID           string
	Registered   bool
	Discoverable bool
	Advertising  bool
	Browsing     bool
	VisiblePeers int
	Connected    int
}

type Engine struct {
	cfg     Config
	clock   clock.Clock
	network Network
	store   NameStore

	inbox *mailbox
	quit  chan struct{}
	done  chan struct{}

	// owned by the event loop
	local        identity.Local
	registered   bool
	discoverable bool
	advertising  bool
	browsing     bool
	generation   uint64
	session      Session
	advertiser   Advertiser
	browser      Browser
	pending      *task
	heartbeat    *heartbeat
	reg          *peers.Registry
	subs         map[int]chan Update
	nextSub      int
}

// New loads the persisted display name (or makes one up) and starts the
// event loop. Networking stays off until Start.
func New(cfg Config, network Network, store NameStore) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	e := &Engine{
		cfg:          cfg,
		clock:        cfg.Clock,
		network:      network,
		store:        store,
		inbox:        newMailbox(),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		discoverable: true,
		reg:          peers.NewRegistry(),
		subs:         make(map[int]chan Update),
	}

	name, registered := identity.LoadName(store)
	e.registered = registered
	// assignments during construction never restart networking
	e.local.Name = identity.Sanitize(name)

	go e.loop()
	return e
}

func (e *Engine) loop() {
	defer close(e.done)
	for {
		select {
		case <-e.inbox.signal:
			for _, fn := range e.inbox.drain() {
				fn()
			}
		case <-e.quit:
			e.teardown()
			return
		}
	}
}

// do runs fn on the event loop and waits for it
func (e *Engine) do(fn func()) error {
	ran := make(chan struct{})
	e.inbox.post(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// Start brings networking up under the current display name
func (e *Engine) Start() error {
	return e.do(func() {
		log.Infof("starting as %s", e.local.Name)
		e.restart("start")
	})
}

// Stop tears networking down and ends the event loop
func (e *Engine) Stop() {
	select {
	case <-e.quit:
	default:
		close(e.quit)
	}
	<-e.done
}

func (e *Engine) teardown() {
	if e.pending != nil {
		e.pending.Cancel()
		e.pending = nil
	}
	if e.heartbeat != nil {
		e.heartbeat.Stop()
		e.heartbeat = nil
	}
	e.stopNetworking()
	e.generation++
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	log.Infof("engine stopped")
}

// stopNetworking stops and drops advertiser, browser and session
func (e *Engine) stopNetworking() {
	e.stopAdvertising()
	e.stopBrowsing()
	if e.session != nil {
		e.session.Disconnect()
	}
	e.session, e.advertiser, e.browser = nil, nil, nil
}

// restart rebuilds every component under a fresh local identity and
// schedules a single debounced start.
func (e *Engine) restart(reason string) {
	log.Infof("restarting networking: %s", reason)

	if e.pending != nil {
		e.pending.Cancel()
		e.pending = nil
	}
	e.stopNetworking()
	e.reg.Reset()

	// events still in flight from the old components are dropped
	e.generation++
	sink := e.sinkFor(e.generation)

	local, err := identity.NewLocal(e.local.Name)
	if err != nil {
		log.Errorf("cannot derive a local identity: %v", err)
		e.notify(Update{Kind: UpdateStatus})
		return
	}
	e.local = local
	e.session = e.network.NewSession(local, sink)
	e.advertiser = e.network.NewAdvertiser(local, e.session, sink)
	e.browser = e.network.NewBrowser(local, e.session, sink)

	e.pending = e.after(e.cfg.SettleDelay, e.startNetworking)

	if e.heartbeat != nil {
		e.heartbeat.Stop()
	}
	e.heartbeat = e.every(e.cfg.HeartbeatInterval, e.beat)

	e.notify(Update{Kind: UpdatePeers})
	e.notify(Update{Kind: UpdateStatus})
}

func (e *Engine) startNetworking() {
	e.pending = nil
	if e.discoverable {
		e.startAdvertising()
	}
	e.startBrowsing()
}

func (e *Engine) startAdvertising() {
	if e.advertiser == nil {
		return
	}
	if err := e.advertiser.Start(); err != nil {
		log.Warnf("advertising did not start: %v", err)
		e.stopAdvertising()
		return
	}
	e.advertising = true
	e.notify(Update{Kind: UpdateStatus})
}

func (e *Engine) stopAdvertising() {
	if e.advertiser != nil {
		e.advertiser.Stop()
	}
	if e.advertising {
		e.advertising = false
		e.notify(Update{Kind: UpdateStatus})
	}
}

func (e *Engine) startBrowsing() {
	if e.browser == nil {
		return
	}
	if err := e.browser.Start(); err != nil {
		log.Warnf("browsing did not start: %v", err)
		e.stopBrowsing()
		return
	}
	e.browsing = true
	e.notify(Update{Kind: UpdateStatus})
}

func (e *Engine) stopBrowsing() {
	if e.browser != nil {
		e.browser.Stop()
	}
	if e.browsing {
		e.browsing = false
		e.notify(Update{Kind: UpdateStatus})
	}
}

// beat logs a snapshot while nobody is connected. It changes nothing.
func (e *Engine) beat() {
	if e.reg.ConnectedCount() > 0 {
		return
	}
	st := e.status()
	log.Infow("heartbeat",
		"name", st.Name,
		"advertising", st.Advertising,
		"browsing", st.Browsing,
		"visible", st.VisiblePeers,
	)
	if e.cfg.OnHeartbeat != nil {
		e.cfg.OnHeartbeat(st)
	}
}

func (e *Engine) status() Status {
	return Status{
		Name:         e.local.Name,
		ID:           e.local.ID,
		Registered:   e.registered,
		Discoverable: e.discoverable,
		Advertising:  e.advertising,
		Browsing:     e.browsing,
		VisiblePeers: e.reg.VisibleCount(),
		Connected:    e.reg.ConnectedCount(),
	}
}

// sinkFor returns the event sink handed to components of one generation
func (e *Engine) sinkFor(gen uint64) event.Sink {
	return func(ev event.Event) {
		e.inbox.post(func() {
			if gen != e.generation {
				log.Debugf("dropping %s from a previous session", ev.Kind)
				return
			}
			e.handle(ev)
		})
	}
}

package chat

import (
	"github.com/eglochon/hubchat/pkg/identity"
	"github.com/eglochon/hubchat/pkg/peers"
)

// SetDisplayName sanitizes raw and, if the result differs from the current
// name, persists it and restarts networking under the new name.
func (e *Engine) SetDisplayName(raw string) error {
	return e.do(func() {
		e.assignName(raw)
	})
}

func (e *Engine) assignName(raw string) {
	name := identity.Sanitize(raw)
	if name != raw {
		log.Debugf("display name %q normalized to %q", raw, name)
	}
	if name == e.local.Name && e.registered {
		return
	}

	e.local.Name = name
	if err := e.store.Save(name); err != nil {
		log.Warnf("failed to persist display name: %v", err)
	} else {
		e.registered = true
	}
	e.restart("display name changed")
}

// Unregister forgets the persisted display name and restarts discovery. The
// current name stays in use until a new one is set.
func (e *Engine) Unregister() error {
	return e.do(func() {
		if err := e.store.Save(""); err != nil {
			log.Warnf("failed to clear display name: %v", err)
		}
		e.registered = false
		e.restart("profile reset")
	})
}

// SetDiscoverable starts or stops advertising. Browsing is not affected.
func (e *Engine) SetDiscoverable(on bool) error {
	return e.do(func() {
		e.discoverable = on
		if on {
			e.startAdvertising()
		} else {
			e.stopAdvertising()
		}
		e.notify(Update{Kind: UpdateStatus})
	})
}

// Restart rebuilds networking under the current name
func (e *Engine) Restart() error {
	return e.do(func() {
		e.restart("requested")
	})
}

// Send delivers text to the peer currently known as name. Delivery problems
// are logged, never returned; the only error is ErrClosed.
func (e *Engine) Send(text, name string) error {
	return e.do(func() {
		e.send(text, name)
	})
}

func (e *Engine) Status() (st Status, err error) {
	err = e.do(func() { st = e.status() })
	return st, err
}

// VisiblePeers lists discovered peers in discovery order
func (e *Engine) VisiblePeers() (out []identity.RemotePeer, err error) {
	err = e.do(func() { out = e.reg.Visible() })
	return out, err
}

func (e *Engine) ConnectedNames() (out []string, err error) {
	err = e.do(func() { out = e.reg.ConnectedNames() })
	return out, err
}

// ActivePeer returns the identifier that messages to name are routed to
func (e *Engine) ActivePeer(name string) (p identity.RemotePeer, ok bool, err error) {
	err = e.do(func() { p, ok = e.reg.Active(name) })
	return p, ok, err
}

func (e *Engine) History(name string) (out []peers.Message, err error) {
	err = e.do(func() { out = e.reg.History(name) })
	return out, err
}

func (e *Engine) Conversations() (out []peers.Conversation, err error) {
	err = e.do(func() { out = e.reg.Conversations() })
	return out, err
}

package chat

import (
	"unicode/utf8"

	"github.com/eglochon/hubchat/pkg/event"
	"github.com/eglochon/hubchat/pkg/peers"
	"github.com/google/uuid"
)

// handle applies one event from the current components to the registry
func (e *Engine) handle(ev event.Event) {
	switch ev.Kind {
	case event.PeerFound:
		log.Infof("found %s", ev.Peer)
		e.reg.Discovered(ev.Peer)
		e.notify(Update{Kind: UpdatePeers, Name: ev.Peer.Name})
		if e.browser != nil {
			e.browser.Invite(ev.Peer, e.cfg.InviteTimeout)
		}

	case event.PeerLost:
		log.Infof("lost %s", ev.Peer)
		e.reg.Lost(ev.Peer)
		e.notify(Update{Kind: UpdatePeers, Name: ev.Peer.Name})

	case event.StateChanged:
		log.Infof("%s is %s", ev.Peer, ev.State)
		switch ev.State {
		case event.Connected:
			e.reg.Connected(ev.Peer)
		case event.NotConnected:
			e.reg.Disconnected(ev.Peer)
		default:
			return
		}
		e.notify(Update{Kind: UpdatePeers, Name: ev.Peer.Name})

	case event.DataReceived:
		if !utf8.Valid(ev.Data) {
			log.Debugf("discarding %d bytes from %s: not text", len(ev.Data), ev.Peer)
			return
		}
		e.reg.Append(ev.Peer.Name, e.newMessage(string(ev.Data), ev.Peer.Name))
		e.notify(Update{Kind: UpdateMessage, Name: ev.Peer.Name})

	case event.InvitationReceived:
		log.Infof("accepted invitation from %s", ev.Peer)

	case event.AdvertiseFailed:
		log.Warnf("advertising stopped: %v", ev.Err)
		e.stopAdvertising()

	case event.BrowseFailed:
		log.Warnf("browsing stopped: %v", ev.Err)
		e.stopBrowsing()

	case event.StreamReceived, event.ResourceReceived:
		log.Debugf("ignoring %s from %s", ev.Kind, ev.Peer)

	default:
		log.Debugf("unknown event %s", ev.Kind)
	}
}

func (e *Engine) newMessage(text, author string) peers.Message {
	return peers.Message{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: e.clock.Now(),
		Author:    author,
	}
}

// send delivers text to whoever currently answers to name. Failures are
// logged and the message is dropped.
func (e *Engine) send(text, name string) {
	p, ok := e.reg.Active(name)
	if !ok {
		log.Warnf("cannot send to %q: no active peer with that name", name)
		return
	}
	if e.session == nil {
		log.Warnf("cannot send to %s: no session", p)
		return
	}
	if !utf8.ValidString(text) {
		log.Warnf("cannot send to %s: text is not valid UTF-8", p)
		return
	}
	if err := e.session.Send([]byte(text), p.ID); err != nil {
		log.Warnf("send to %s failed: %v", p, err)
		return
	}
	log.Debugf("sent %d bytes to %s", len(text), p)

	// local echo: what we sent is recorded here, not acknowledged by the peer
	e.reg.Append(name, e.newMessage(text, e.local.Name))
	e.notify(Update{Kind: UpdateMessage, Name: name})
}

package chat

// UpdateKind tells subscribers which part of the engine state changed
type UpdateKind int

const (
	UpdateStatus UpdateKind = iota + 1
	UpdatePeers
	UpdateMessage
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateStatus:
		return "status"
	case UpdatePeers:
		return "peers"
	case UpdateMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Update is a change notification; readers query the engine for details
type Update struct {
	Kind UpdateKind
	// Name is the peer concerned, if any
	Name string
}

const subscriberBuffer = 64

// Subscribe returns a channel of change notifications and a function that
// ends the subscription. Notifications are dropped when the channel is full.
// The channel is closed when the engine stops.
func (e *Engine) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)
	var id int
	if err := e.do(func() {
		id = e.nextSub
		e.nextSub++
		e.subs[id] = ch
	}); err != nil {
		close(ch)
		return ch, func() {}
	}

	cancel := func() {
		_ = e.do(func() {
			if _, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (e *Engine) notify(u Update) {
	for _, ch := range e.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

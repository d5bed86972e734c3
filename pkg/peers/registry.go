// Package peers keeps what the engine knows about other participants:
// which identifiers are visible, which identifier currently answers to a
// display name, who is connected, and the message history per name.
//
// A Registry is not safe for concurrent use; it belongs to the engine's
// event loop.
package peers

import (
	"slices"
	"sort"
	"time"

	"github.com/eglochon/hubchat/pkg/identity"
)

// Message is one chat message in a conversation
type Message struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Author    string
}

// Conversation is derived from the registry on every read
type Conversation struct {
	Name      string
	Messages  []Message
	UpdatedAt time.Time
	Connected bool
}

type Registry struct {
	visible   []identity.RemotePeer
	active    map[string]identity.RemotePeer // name → newest identifier
	connected map[string]struct{}
	history   map[string][]Message
}

func NewRegistry() *Registry {
	return &Registry{
		active:    make(map[string]identity.RemotePeer),
		connected: make(map[string]struct{}),
		history:   make(map[string][]Message),
	}
}

// Discovered records a browser sighting. Older identifiers for the same name
// leave the visible list and the new identifier becomes the active one.
func (r *Registry) Discovered(p identity.RemotePeer) {
	r.visible = slices.DeleteFunc(r.visible, func(v identity.RemotePeer) bool {
		return v.Name == p.Name && v.ID != p.ID
	})
	if !r.isVisible(p.ID) {
		r.visible = append(r.visible, p)
	}
	r.active[p.Name] = p
}

// Lost removes a sighting. The active identifier is only cleared when it is
// the lost one, so a replacement discovered earlier survives.
func (r *Registry) Lost(p identity.RemotePeer) {
	r.visible = slices.DeleteFunc(r.visible, func(v identity.RemotePeer) bool {
		return v.ID == p.ID
	})
	delete(r.connected, p.Name)
	if cur, ok := r.active[p.Name]; ok && cur.ID == p.ID {
		delete(r.active, p.Name)
	}
}

// Connected records an established session; it also counts as the newest
// sighting of the name.
func (r *Registry) Connected(p identity.RemotePeer) {
	r.connected[p.Name] = struct{}{}
	r.active[p.Name] = p
}

// Disconnected leaves the active mapping alone.
func (r *Registry) Disconnected(p identity.RemotePeer) {
	delete(r.connected, p.Name)
}

// Append adds m to the end of the history for name
func (r *Registry) Append(name string, m Message) {
	r.history[name] = append(r.history[name], m)
}

// Reset forgets visibility, connections and identifiers. History survives.
func (r *Registry) Reset() {
	r.visible = nil
	clear(r.active)
	clear(r.connected)
}

func (r *Registry) isVisible(id string) bool {
	return slices.ContainsFunc(r.visible, func(v identity.RemotePeer) bool {
		return v.ID == id
	})
}

// Active returns the identifier that currently answers to name
func (r *Registry) Active(name string) (identity.RemotePeer, bool) {
	p, ok := r.active[name]
	return p, ok
}

// Visible returns the discovered peers in discovery order
func (r *Registry) Visible() []identity.RemotePeer {
	return slices.Clone(r.visible)
}

// VisibleCount returns the number of discovered peers
func (r *Registry) VisibleCount() int {
	return len(r.visible)
}

// ConnectedNames returns the connected names, sorted
func (r *Registry) ConnectedNames() []string {
	names := make([]string, 0, len(r.connected))
	for name := range r.connected {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) IsConnected(name string) bool {
	_, ok := r.connected[name]
	return ok
}

// ConnectedCount returns the number of connected names
func (r *Registry) ConnectedCount() int {
	return len(r.connected)
}

// History returns a copy of the messages exchanged with name
func (r *Registry) History(name string) []Message {
	return slices.Clone(r.history[name])
}

// Conversations lists one conversation per name with history or a current
// sighting, sorted by name.
func (r *Registry) Conversations() []Conversation {
	names := make(map[string]struct{}, len(r.history)+len(r.active))
	for name := range r.history {
		names[name] = struct{}{}
	}
	for name := range r.active {
		names[name] = struct{}{}
	}
	for _, p := range r.visible {
		names[p.Name] = struct{}{}
	}

	convs := make([]Conversation, 0, len(names))
	for name := range names {
		msgs := r.History(name)
		c := Conversation{
			Name:      name,
			Messages:  msgs,
			Connected: r.IsConnected(name),
		}
		if len(msgs) > 0 {
			c.UpdatedAt = msgs[len(msgs)-1].CreatedAt
		}
		convs = append(convs, c)
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].Name < convs[j].Name })
	return convs
}

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/eglochon/hubchat/pkg/chat"
	"github.com/eglochon/hubchat/pkg/identity"
	"github.com/eglochon/hubchat/pkg/peers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	names        []string
	discoverable []bool
	restarts     int
	unregistered int
	sent         [][2]string
	visible      []identity.RemotePeer
	connected    []string
	history      map[string][]peers.Message
	err          error
}

func (f *fakeController) SetDisplayName(raw string) error {
	f.names = append(f.names, raw)
	return f.err
}

func (f *fakeController) SetDiscoverable(on bool) error {
	f.discoverable = append(f.discoverable, on)
	return f.err
}

func (f *fakeController) Restart() error {
	f.restarts++
	return f.err
}

func (f *fakeController) Unregister() error {
	f.unregistered++
	return f.err
}

func (f *fakeController) Send(text, name string) error {
	f.sent = append(f.sent, [2]string{name, text})
	return f.err
}

func (f *fakeController) Status() (chat.Status, error) {
	return chat.Status{Name: "Alice", ID: "abcdefghijkl", Registered: true, Browsing: true}, f.err
}

func (f *fakeController) VisiblePeers() ([]identity.RemotePeer, error) {
	return f.visible, f.err
}

func (f *fakeController) ConnectedNames() ([]string, error) {
	return f.connected, f.err
}

func (f *fakeController) History(name string) ([]peers.Message, error) {
	return f.history[name], f.err
}

func (f *fakeController) Conversations() ([]peers.Conversation, error) {
	var out []peers.Conversation
	for name, msgs := range f.history {
		out = append(out, peers.Conversation{Name: name, Messages: msgs})
	}
	return out, f.err
}

func newTestConsole() (*console, *fakeController, *bytes.Buffer) {
	f := &fakeController{history: make(map[string][]peers.Message)}
	var out bytes.Buffer
	return newConsole(f, &out), f, &out
}

func TestConsoleSend(t *testing.T) {
	c, f, out := newTestConsole()

	assert.False(t, c.exec("@Bob hello there"))
	assert.False(t, c.exec("@Bob"))
	assert.False(t, c.exec("@ hi"))
	assert.Equal(t, [][2]string{{"Bob", "hello there"}}, f.sent)
	assert.Contains(t, out.String(), "usage: @<name> <text>")
}

func TestConsoleCommands(t *testing.T) {
	c, f, out := newTestConsole()

	assert.False(t, c.exec("/name Alice 42!"))
	assert.False(t, c.exec("/hide"))
	assert.False(t, c.exec("/show"))
	assert.False(t, c.exec("/restart"))
	assert.False(t, c.exec("/logout"))
	assert.False(t, c.exec("/bogus"))
	assert.False(t, c.exec("plain text"))
	assert.True(t, c.exec("/quit"))

	assert.Equal(t, []string{"Alice 42!"}, f.names)
	assert.Equal(t, []bool{false, true}, f.discoverable)
	assert.Equal(t, 1, f.restarts)
	assert.Equal(t, 1, f.unregistered)
	assert.Contains(t, out.String(), "Alice (abcdefgh) registered")
	assert.Contains(t, out.String(), "unknown command /bogus")
}

func TestConsoleQuitsWhenEngineCloses(t *testing.T) {
	c, f, _ := newTestConsole()
	f.err = chat.ErrClosed

	assert.True(t, c.exec("@Bob hi"))
	assert.True(t, c.exec("/status"))
}

func TestConsolePeers(t *testing.T) {
	c, f, out := newTestConsole()

	c.exec("/peers")
	assert.Contains(t, out.String(), "no peers in sight")

	f.visible = []identity.RemotePeer{{ID: "X1234567890", Name: "Bob"}, {ID: "Y", Name: "Carol"}}
	f.connected = []string{"Bob"}
	out.Reset()
	c.exec("/peers")
	assert.Equal(t, "* Bob/X1234567\n  Carol/Y\n", out.String())
}

func TestConsoleFollowPrintsNewMessages(t *testing.T) {
	c, f, out := newTestConsole()
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.history["Bob"] = []peers.Message{{Text: "one", Author: "Bob", CreatedAt: at}}

	updates := make(chan chat.Update, 4)
	updates <- chat.Update{Kind: chat.UpdateMessage, Name: "Bob"}
	updates <- chat.Update{Kind: chat.UpdatePeers, Name: "Bob"}
	close(updates)
	c.follow(updates)
	assert.Equal(t, "[Bob] Bob: one\n", out.String())

	f.history["Bob"] = append(f.history["Bob"], peers.Message{Text: "two", Author: "Alice", CreatedAt: at})
	updates = make(chan chat.Update, 1)
	updates <- chat.Update{Kind: chat.UpdateMessage, Name: "Bob"}
	close(updates)
	out.Reset()
	c.follow(updates)
	assert.Equal(t, "[Bob] Alice: two\n", out.String())

	out.Reset()
	require.False(t, c.exec("/history Bob"))
	assert.Equal(t, "12:00:00 Bob: one\n12:00:00 Alice: two\n", out.String())
}

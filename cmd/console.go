package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/eglochon/hubchat/pkg/chat"
	"github.com/eglochon/hubchat/pkg/identity"
	"github.com/eglochon/hubchat/pkg/peers"
)

// controller is the part of the engine the console drives
type controller interface {
	SetDisplayName(raw string) error
	SetDiscoverable(on bool) error
	Restart() error
	Unregister() error
	Send(text, name string) error
	Status() (chat.Status, error)
	VisiblePeers() ([]identity.RemotePeer, error)
	ConnectedNames() ([]string, error)
	History(name string) ([]peers.Message, error)
	Conversations() ([]peers.Conversation, error)
}

const consoleHelp = `commands:
  @<name> <text>     send text to a peer
  /name <name>       register a display name
  /hide, /show       stop or resume advertising
  /restart           rebuild networking
  /logout            forget the registered name
  /peers             list visible peers
  /chats             list conversations
  /history <name>    show the conversation with a peer
  /status            show the local node
  /quit              leave`

type console struct {
	engine controller

	mu      sync.Mutex
	out     io.Writer
	printed map[string]int
}

func newConsole(engine controller, out io.Writer) *console {
	return &console{
		engine:  engine,
		out:     out,
		printed: make(map[string]int),
	}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *console) banner() {
	st, err := c.engine.Status()
	if err != nil {
		return
	}
	c.printf("you are %s (%s), type /help for commands", st.Name, shortID(st.ID))
}

// exec runs one console line and reports whether the console should quit
func (c *console) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, "@") {
		name, text, ok := strings.Cut(line[1:], " ")
		text = strings.TrimSpace(text)
		if !ok || name == "" || text == "" {
			c.printf("usage: @<name> <text>")
			return false
		}
		return c.check(c.engine.Send(text, name))
	}
	if !strings.HasPrefix(line, "/") {
		c.printf("unknown input, type /help for commands")
		return false
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "help":
		c.printf(consoleHelp)
	case "quit", "exit":
		return true
	case "name":
		if arg == "" {
			c.printf("usage: /name <name>")
			return false
		}
		if c.check(c.engine.SetDisplayName(arg)) {
			return true
		}
		return c.status()
	case "hide":
		return c.check(c.engine.SetDiscoverable(false))
	case "show":
		return c.check(c.engine.SetDiscoverable(true))
	case "restart":
		return c.check(c.engine.Restart())
	case "logout":
		return c.check(c.engine.Unregister())
	case "peers":
		return c.peers()
	case "chats":
		return c.conversations()
	case "history":
		if arg == "" {
			c.printf("usage: /history <name>")
			return false
		}
		return c.history(arg)
	case "status":
		return c.status()
	default:
		c.printf("unknown command /%s", cmd)
	}
	return false
}

// check prints err and reports whether the engine is gone
func (c *console) check(err error) bool {
	if err == nil {
		return false
	}
	c.printf("error: %v", err)
	return err == chat.ErrClosed
}

func (c *console) status() bool {
	st, err := c.engine.Status()
	if err != nil {
		return c.check(err)
	}
	registered := "not registered"
	if st.Registered {
		registered = "registered"
	}
	c.printf("%s (%s) %s, advertising=%t browsing=%t discoverable=%t visible=%d connected=%d",
		st.Name, shortID(st.ID), registered, st.Advertising, st.Browsing, st.Discoverable, st.VisiblePeers, st.Connected)
	return false
}

func (c *console) peers() bool {
	visible, err := c.engine.VisiblePeers()
	if err != nil {
		return c.check(err)
	}
	connected, err := c.engine.ConnectedNames()
	if err != nil {
		return c.check(err)
	}
	if len(visible) == 0 {
		c.printf("no peers in sight")
		return false
	}
	online := make(map[string]bool, len(connected))
	for _, name := range connected {
		online[name] = true
	}
	for _, p := range visible {
		mark := " "
		if online[p.Name] {
			mark = "*"
		}
		c.printf("%s %s", mark, p)
	}
	return false
}

func (c *console) conversations() bool {
	convs, err := c.engine.Conversations()
	if err != nil {
		return c.check(err)
	}
	if len(convs) == 0 {
		c.printf("no conversations")
		return false
	}
	for _, conv := range convs {
		state := "offline"
		if conv.Connected {
			state = "online"
		}
		c.printf("%s (%s) %d messages", conv.Name, state, len(conv.Messages))
	}
	return false
}

func (c *console) history(name string) bool {
	msgs, err := c.engine.History(name)
	if err != nil {
		return c.check(err)
	}
	if len(msgs) == 0 {
		c.printf("no messages with %s", name)
		return false
	}
	for _, m := range msgs {
		c.printf("%s %s: %s", m.CreatedAt.Format("15:04:05"), m.Author, m.Text)
	}
	return false
}

// follow prints messages as they arrive until updates is closed
func (c *console) follow(updates <-chan chat.Update) {
	for u := range updates {
		if u.Kind != chat.UpdateMessage || u.Name == "" {
			continue
		}
		msgs, err := c.engine.History(u.Name)
		if err != nil {
			return
		}
		c.mu.Lock()
		from := c.printed[u.Name]
		c.printed[u.Name] = len(msgs)
		c.mu.Unlock()
		for _, m := range msgs[min(from, len(msgs)):] {
			c.printf("[%s] %s: %s", u.Name, m.Author, m.Text)
		}
	}
}

func shortID(id string) string {
	return identity.RemotePeer{ID: id}.ShortID()
}

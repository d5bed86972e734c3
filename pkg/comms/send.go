package comms

import (
	"fmt"

	"github.com/eglochon/hubchat/pkg/event"
)

// Send queues data for reliable, in-order delivery to peerID. It does not
// wait for the peer: nil means the message was accepted for sending.
func (s *Session) Send(data []byte, peerID string) error {
	if len(data) > MaxFrameSize {
		return ErrMessageTooLarge
	}

	s.mu.RLock()
	pc, ok := s.peers[peerID]
	connected := ok && pc.state == event.Connected
	s.mu.RUnlock()

	if !connected {
		return fmt.Errorf("%w: %s", ErrNotConnected, peerID)
	}

	select {
	case <-pc.done:
		return fmt.Errorf("%w: %s", ErrNotConnected, peerID)
	case pc.queue <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

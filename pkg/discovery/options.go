package discovery

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Options shared by the advertiser and the browser
type Options struct {
	// Service is the namespace; announcements for other services are ignored
	Service string
	// MulticastAddr is the group announcements travel on, e.g. "224.0.0.250:40400"
	MulticastAddr string
	// Port the advertiser accepts invitations on; 0 picks a free port
	Port uint16
	// Interval between announcements; browsers forget peers after three missed ones
	Interval time.Duration
	// Loopback delivers announcements to other nodes on this host
	Loopback bool
	Clock    clock.Clock
}

func (o Options) clock() clock.Clock {
	if o.Clock == nil {
		return clock.New()
	}
	return o.Clock
}

func (o Options) staleAfter() time.Duration {
	return 3 * o.Interval
}

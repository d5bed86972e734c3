package config

import (
	"os"
	"strconv"
	"time"
)

// UDP Multicast Address to be used in discovery service
var MULTICAST_ADDR string

// The port where to listen for session invitations. The default 0 picks a
// free port, so several nodes can share one host.
var SERVICE_PORT uint16

// Discovery namespace shared by every participant
var SERVICE_TYPE string

// How often the advertiser announces presence
var ANNOUNCE_INTERVAL = 2 * time.Second

// Delay before a (re)started node begins advertising and browsing
var SETTLE_DELAY = 1200 * time.Millisecond

// Period of the diagnostic heartbeat
var HEARTBEAT_INTERVAL = 5 * time.Second

// How long an outbound invitation may take before it is abandoned
var INVITE_TIMEOUT = 30 * time.Second

// Directory holding the persisted profile
var DATA_DIR string

func Setup() {
	// Get MULTICAST_ADDR env variable
	multicastAddr, exists := os.LookupEnv("MULTICAST_ADDR")
	if exists && multicastAddr != "" {
		MULTICAST_ADDR = multicastAddr
	} else {
		MULTICAST_ADDR = "224.0.0.250:40400"
	}

	// Get SERVICE_PORT env variable
	servicePort, exists := os.LookupEnv("SERVICE_PORT")
	if exists && servicePort != "" {
		port, err := strconv.ParseUint(servicePort, 10, 16)
		if err == nil {
			SERVICE_PORT = uint16(port)
		}
	}

	SERVICE_TYPE = lookupString("SERVICE_TYPE", "hubchat")
	DATA_DIR = lookupString("DATA_DIR", "data")

	ANNOUNCE_INTERVAL = lookupDuration("ANNOUNCE_INTERVAL", ANNOUNCE_INTERVAL)
	SETTLE_DELAY = lookupDuration("SETTLE_DELAY", SETTLE_DELAY)
	HEARTBEAT_INTERVAL = lookupDuration("HEARTBEAT_INTERVAL", HEARTBEAT_INTERVAL)
	INVITE_TIMEOUT = lookupDuration("INVITE_TIMEOUT", INVITE_TIMEOUT)
}

func lookupString(key, fallback string) string {
	v, exists := os.LookupEnv(key)
	if exists && v != "" {
		return v
	}
	return fallback
}

// lookupDuration keeps the fallback for unset, unparsable or non-positive values.
func lookupDuration(key string, fallback time.Duration) time.Duration {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

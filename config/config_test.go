package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetupDefaults(t *testing.T) {
	for _, key := range []string{"MULTICAST_ADDR", "SERVICE_PORT", "SERVICE_TYPE", "DATA_DIR", "ANNOUNCE_INTERVAL", "SETTLE_DELAY"} {
		t.Setenv(key, "")
	}
	Setup()

	assert.Equal(t, "224.0.0.250:40400", MULTICAST_ADDR)
	assert.Equal(t, uint16(0), SERVICE_PORT)
	assert.Equal(t, "hubchat", SERVICE_TYPE)
	assert.Equal(t, "data", DATA_DIR)
	assert.Equal(t, 1200*time.Millisecond, SETTLE_DELAY)
}

func TestSetupFromEnvironment(t *testing.T) {
	t.Setenv("MULTICAST_ADDR", "239.1.2.3:5000")
	t.Setenv("SERVICE_PORT", "40481")
	t.Setenv("SERVICE_TYPE", "lab")
	t.Setenv("ANNOUNCE_INTERVAL", "500ms")
	t.Setenv("HEARTBEAT_INTERVAL", "-1s")
	t.Setenv("INVITE_TIMEOUT", "soon")
	before := HEARTBEAT_INTERVAL
	Setup()

	assert.Equal(t, "239.1.2.3:5000", MULTICAST_ADDR)
	assert.Equal(t, uint16(40481), SERVICE_PORT)
	assert.Equal(t, "lab", SERVICE_TYPE)
	assert.Equal(t, 500*time.Millisecond, ANNOUNCE_INTERVAL)
	assert.Equal(t, before, HEARTBEAT_INTERVAL)
	assert.Equal(t, 30*time.Second, INVITE_TIMEOUT)
}

func TestSetupIgnoresBadPort(t *testing.T) {
	SERVICE_PORT = 40480
	t.Setenv("SERVICE_PORT", "70000")
	Setup()
	assert.Equal(t, uint16(40480), SERVICE_PORT)
}

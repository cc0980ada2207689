package databus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabusSeedAndAccess(t *testing.T) {
	bus := NewDatabus()
	bus.Seed(map[string]string{"unit": "S7-200", "ftp_banner": "ready"})

	v, ok := bus.Get("unit")
	require.True(t, ok)
	assert.Equal(t, "S7-200", v)

	assert.Equal(t, "ready", bus.GetOr("ftp_banner", "fallback"))
	assert.Equal(t, "fallback", bus.GetOr("missing", "fallback"))

	bus.Set("unit", "S7-300")
	assert.Equal(t, "S7-300", bus.GetOr("unit", ""))

	assert.Equal(t, []string{"ftp_banner", "unit"}, bus.Keys())
}

func TestSessionReusedPerProtocolAndSource(t *testing.T) {
	sm := NewSessionManager()

	a := sm.GetSession("modbus", "10.0.0.1", "10.0.0.1:40001")
	b := sm.GetSession("modbus", "10.0.0.1", "10.0.0.1:40002")
	c := sm.GetSession("ftp", "10.0.0.1", "10.0.0.1:40003")
	d := sm.GetSession("modbus", "10.0.0.2", "10.0.0.2:40004")

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.NotEqual(t, a.ID, d.ID)
	assert.Equal(t, 3, sm.SessionCount())
	assert.NotEmpty(t, a.ID)
}

func TestSessionEventsReachQueue(t *testing.T) {
	sm := NewSessionManager()
	sess := sm.GetSession("telnet", "10.0.0.9", "10.0.0.9:5000")

	sess.Log("login", "user=root pass=toor")

	select {
	case ev := <-sm.Events():
		assert.Equal(t, sess.ID, ev.SessionID)
		assert.Equal(t, "telnet", ev.Protocol)
		assert.Equal(t, "login", ev.Kind)
		assert.Equal(t, "user=root pass=toor", ev.Data)
	case <-time.After(time.Second):
		t.Fatal("event never reached the queue")
	}
}

func TestDeleteSession(t *testing.T) {
	sm := NewSessionManager()
	s := sm.GetSession("http", "10.0.0.3", "10.0.0.3:1")
	require.Equal(t, 1, sm.SessionCount())

	sm.DeleteSession(s.ID)
	assert.Equal(t, 0, sm.SessionCount())
}

func TestPurgeSessionsSwapsQueue(t *testing.T) {
	sm := NewSessionManager()
	sess := sm.GetSession("http", "10.0.0.4", "10.0.0.4:1")
	sess.Log("request", "GET /")

	sm.PurgeSessions()

	assert.Equal(t, 0, sm.SessionCount())
	select {
	case <-sm.Events():
		t.Fatal("pre-purge event survived the queue swap")
	default:
	}
}

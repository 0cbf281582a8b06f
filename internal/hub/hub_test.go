package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(id string) *Client {
	return &Client{ID: id, Send: make(chan []byte, 4)}
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.Send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := New()
	a, b := newClient("a"), newClient("b")
	h.Register(a)
	h.Register(b)

	h.Broadcast([]byte("snapshot"))

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestNotifyDoctorsSkipsOtherRoles(t *testing.T) {
	h := New()
	doc, reception := newClient("doc"), newClient("reception")
	h.Register(doc)
	h.Register(reception)
	require.True(t, h.MarkDoctor("doc"))

	h.NotifyDoctors([]byte("new patient"))

	assert.Len(t, drain(doc), 1)
	assert.Empty(t, drain(reception))
	assert.Equal(t, 1, h.DoctorCount())
}

func TestMarkDoctorUnknownClient(t *testing.T) {
	h := New()
	assert.False(t, h.MarkDoctor("ghost"))
}

func TestUnregisterClosesSendAndDropsDoctor(t *testing.T) {
	h := New()
	doc := newClient("doc")
	h.Register(doc)
	h.MarkDoctor("doc")

	h.Unregister("doc")
	h.Unregister("doc") // idempotent

	_, open := <-doc.Send
	assert.False(t, open)
	assert.Equal(t, 0, h.ClientCount())
	assert.Equal(t, 0, h.DoctorCount())

	// Messages to a gone client are not delivered.
	assert.False(t, h.SendTo("doc", []byte("late")))
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	h := New()
	c := &Client{ID: "slow", Send: make(chan []byte, 1)}
	h.Register(c)

	h.Broadcast([]byte("one"))
	h.Broadcast([]byte("two")) // dropped, must not block

	assert.Len(t, drain(c), 1)
}

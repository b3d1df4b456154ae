package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestClientFilter(t *testing.T) {
	c := &Client{}

	update := NewNodeUpdateMessage("/dev2000/sigouts/0/on", 1)
	other := NewNodeUpdateMessage("/dev8000/awgs/0/enable", 0)
	status := NewMessage(MessageTypeSystemStatus, "RUNNING")

	assert.True(t, c.accepts(update))
	assert.True(t, c.accepts(other))

	c.setFilter([]string{" /DEV2000/sigouts ", ""})
	assert.True(t, c.accepts(update))
	assert.False(t, c.accepts(other))
	assert.True(t, c.accepts(status), "non node messages pass every filter")

	c.setFilter(nil)
	assert.True(t, c.accepts(other))
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	hub.Broadcast(NewNodeUpdateMessage("/dev2000/sigouts/0/on", 1))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type MessageType    `json:"type"`
		Data NodeUpdateData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageTypeNodeUpdate, msg.Type)
	assert.Equal(t, "/dev2000/sigouts/0/on", msg.Data.Path)
	assert.EqualValues(t, 1, msg.Data.Value)
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	hub.Stop()
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 },
		time.Second, 5*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

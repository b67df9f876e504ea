package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prism/pkg/dashboard"
	"prism/pkg/watcher"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() (*Server, *dashboard.Dashboard) {
	hub := watcher.NewHub()
	d := dashboard.New(dashboard.Deps{Hub: hub}, zerolog.Nop())
	w := watcher.NewWatcher(nil, nil, time.Minute, hub, zerolog.Nop())
	return NewServer(d, w, zerolog.Nop()), d
}

func TestHandleStatus(t *testing.T) {
	s, d := newTestServer()
	defer d.Close()

	req, _ := http.NewRequest("GET", "/api/status", nil)
	rr := httptest.NewRecorder()

	s.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	for _, key := range []string{"address", "isWalletProfile", "tokens", "nfts", "feed", "prices"} {
		assert.Contains(t, resp, key)
	}
}

func TestHandleSelect(t *testing.T) {
	s, d := newTestServer()
	defer d.Close()

	req, _ := http.NewRequest("GET", "/api/select?address=x", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	req, _ = http.NewRequest("POST", "/api/select?address=not-an-address", nil)
	rr = httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Enter a valid ETH or SOL address")
}

func TestHandleWS(t *testing.T) {
	s, d := newTestServer()
	defer d.Close()
	server := httptest.NewServer(s.mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.listenToHub(ctx)

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	// Read initial state
	var msg map[string]interface{}
	err = ws.ReadJSON(&msg)
	require.NoError(t, err)
	assert.Equal(t, "initial", msg["type"])
	assert.Contains(t, msg["data"], "prices")

	// wait for the hub listener before publishing
	require.Eventually(t, func() bool { return d.Hub().Len() == 1 }, time.Second, 5*time.Millisecond)
	d.Hub().Publish(watcher.Event{Type: watcher.EventAcquisitionFailed, Data: "boom"})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	err = ws.ReadJSON(&msg)
	require.NoError(t, err)
	assert.Equal(t, string(watcher.EventAcquisitionFailed), msg["type"])
	assert.Equal(t, "boom", msg["data"])
}

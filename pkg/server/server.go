// Package server re-exposes the dashboard and price state over HTTP and
// WebSocket for headless use.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"prism/pkg/dashboard"
	"prism/pkg/identity"
	"prism/pkg/models"
	"prism/pkg/watcher"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

type Server struct {
	dash    *dashboard.Dashboard
	prices  *watcher.Watcher
	log     zerolog.Logger
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	mux     *http.ServeMux
}

func NewServer(d *dashboard.Dashboard, w *watcher.Watcher, log zerolog.Logger) *Server {
	s := &Server{
		dash:    d,
		prices:  w,
		log:     log.With().Str("component", "server").Logger(),
		clients: make(map[*websocket.Conn]bool),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/select", s.handleSelect)
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) Handler() http.Handler { return s.mux }

// Status is the body of /api/status and of the initial WebSocket frame.
type Status struct {
	dashboard.State
	Prices map[string]models.PriceTick `json:"prices"`
}

func (s *Server) status() Status {
	st := Status{State: s.dash.Snapshot(), Prices: map[string]models.PriceTick{}}
	if s.prices != nil {
		st.Prices = s.prices.GetPrices()
	}
	return st
}

// Start serves on port until ctx is done.
func (s *Server) Start(ctx context.Context, port int) error {
	go s.listenToHub(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Int("port", port).Msg("API server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	address := r.URL.Query().Get("address")
	w.Header().Set("Content-Type", "application/json")
	if address != "" {
		id, err := identity.Parse(address)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": err.Error()})
			return
		}
		address = id.String()
	}
	s.dash.SetAddressParam(address)
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": map[string]string{"address": address}})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	// the initial frame goes out before the client can receive broadcasts
	s.mu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(watcher.Event{Type: "initial", Data: s.status()})
	if err == nil {
		s.clients[conn] = true
	}
	s.mu.Unlock()
	if err != nil {
		return
	}

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) listenToHub(ctx context.Context) {
	hub := s.dash.Hub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	for {
		select {
		case event, ok := <-sub:
			if !ok {
				return
			}
			s.broadcast(event)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) broadcast(event watcher.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(event); err != nil {
			s.log.Debug().Err(err).Msg("dropping websocket client")
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}

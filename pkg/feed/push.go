package feed

import (
	"context"
	"encoding/json"
	"time"

	"prism/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// PushConfig configures reconnect behaviour of the push client.
type PushConfig struct {
	// ReconnectDelay is the first wait after a lost connection.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
}

func DefaultPushConfig() PushConfig {
	return PushConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Frame is the JSON envelope exchanged on the push channel.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	eventSubscribe = "subscribe"
	eventActivity  = "activity"
)

// PushClient streams activity for one address over a WebSocket, reconnecting
// with backoff and announcing its interest again after every reconnect.
type PushClient struct {
	url    string
	config PushConfig
	log    zerolog.Logger
}

func NewPushClient(wsURL string, config *PushConfig, log zerolog.Logger) *PushClient {
	cfg := DefaultPushConfig()
	if config != nil {
		cfg = *config
	}
	return &PushClient{
		url:    wsURL,
		config: cfg,
		log:    log.With().Str("component", "push").Logger(),
	}
}

// Subscribe starts streaming activity for address. The returned channel is
// closed once ctx is done and the connection has been torn down.
func (c *PushClient) Subscribe(ctx context.Context, address string) (<-chan models.ActivityItem, error) {
	out := make(chan models.ActivityItem, 64)
	go c.run(ctx, address, out)
	return out, nil
}

func (c *PushClient) run(ctx context.Context, address string, out chan<- models.ActivityItem) {
	defer close(out)

	delay := c.config.ReconnectDelay
	for {
		connected, err := c.serve(ctx, address, out)
		if ctx.Err() != nil {
			return
		}
		if connected {
			delay = c.config.ReconnectDelay
		}
		c.log.Warn().Err(err).Str("address", address).Dur("retry_in", delay).Msg("push channel unavailable")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// serve runs one connection until it fails or ctx is done. connected reports
// whether the subscribe frame went out.
func (c *PushClient) serve(ctx context.Context, address string, out chan<- models.ActivityItem) (connected bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, &TransportError{Op: "dial", Err: err}
	}
	defer func() { _ = conn.Close() }()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	addr, _ := json.Marshal(address)
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(Frame{Event: eventSubscribe, Data: addr}); err != nil {
		return false, &TransportError{Op: "subscribe", Err: err}
	}
	c.log.Debug().Str("address", address).Msg("subscribed")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, &TransportError{Op: "read", Err: err}
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Debug().Err(err).Msg("ignoring malformed frame")
			continue
		}
		if frame.Event != eventActivity {
			continue
		}
		var item models.ActivityItem
		if err := json.Unmarshal(frame.Data, &item); err != nil {
			c.log.Debug().Err(err).Msg("ignoring malformed activity")
			continue
		}
		item.Normalize()

		select {
		case out <- item:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

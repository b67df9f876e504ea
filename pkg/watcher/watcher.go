package watcher

import (
	"context"
	"sync"
	"time"

	"prism/pkg/models"

	"github.com/rs/zerolog"
)

var (
	DefaultWatchList = []string{"ETH", "BTC", "SOL", "USDC", "USDT"}
	DefaultInterval  = 30 * time.Second
)

// maxHistory bounds the per-symbol price history kept for charts.
const maxHistory = 240

// PriceSource fetches quotes for a list of symbols.
type PriceSource interface {
	GetPrices(ctx context.Context, symbols []string) ([]models.PriceTick, error)
}

// PricesSnapshot is the payload of EventPricesUpdated.
type PricesSnapshot struct {
	Prices    map[string]models.PriceTick `json:"prices"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// Watcher keeps live quotes for a fixed watch list.
type Watcher struct {
	source   PriceSource
	symbols  []string
	interval time.Duration
	hub      *Hub
	log      zerolog.Logger

	mu         sync.RWMutex
	prices     map[string]models.PriceTick
	history    map[string][]float64
	lastUpdate time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a new Watcher instance. Zero values pick the defaults.
func NewWatcher(source PriceSource, symbols []string, interval time.Duration, hub *Hub, log zerolog.Logger) *Watcher {
	if len(symbols) == 0 {
		symbols = DefaultWatchList
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if hub == nil {
		hub = NewHub()
	}
	return &Watcher{
		source:   source,
		symbols:  append([]string(nil), symbols...),
		interval: interval,
		hub:      hub,
		log:      log.With().Str("component", "prices").Logger(),
		prices:   make(map[string]models.PriceTick),
		history:  make(map[string][]float64),
	}
}

func (w *Watcher) Hub() *Hub { return w.hub }

func (w *Watcher) Symbols() []string {
	return append([]string(nil), w.symbols...)
}

// Start refreshes once immediately and then on every interval until Stop or
// ctx is done. Starting a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.pollingLoop(ctx, w.done)
}

// Stop cancels the loop and waits for it to exit. No refresh happens after
// Stop returns. The watcher can be started again.
func (w *Watcher) Stop() {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
}

func (w *Watcher) Running() bool {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) pollingLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// refresh replaces the whole map on success and keeps it untouched on failure.
func (w *Watcher) refresh(ctx context.Context) {
	ticks, err := w.source.GetPrices(ctx, w.symbols)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn().Err(err).Msg("price refresh failed, keeping previous quotes")
		}
		return
	}

	next := make(map[string]models.PriceTick, len(ticks))
	for _, t := range ticks {
		if t.Symbol == "" {
			continue
		}
		next[t.Symbol] = t
	}

	now := time.Now()
	w.mu.Lock()
	w.prices = next
	w.lastUpdate = now
	for sym, t := range next {
		h := append(w.history[sym], t.Price)
		if len(h) > maxHistory {
			h = h[len(h)-maxHistory:]
		}
		w.history[sym] = h
	}
	w.mu.Unlock()

	w.log.Debug().Int("symbols", len(next)).Msg("prices refreshed")
	w.hub.Publish(Event{Type: EventPricesUpdated, Data: PricesSnapshot{Prices: copyPrices(next), UpdatedAt: now}})
}

func copyPrices(m map[string]models.PriceTick) map[string]models.PriceTick {
	cp := make(map[string]models.PriceTick, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// GetPrices returns the current prices.
func (w *Watcher) GetPrices() map[string]models.PriceTick {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return copyPrices(w.prices)
}

// History returns the recorded prices for symbol, oldest first.
func (w *Watcher) History(symbol string) []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]float64(nil), w.history[symbol]...)
}

func (w *Watcher) LastUpdate() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastUpdate
}

package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"prism/pkg/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) GetPrices(ctx context.Context, symbols []string) ([]models.PriceTick, error) {
	args := m.Called(symbols)
	ticks, _ := args.Get(0).([]models.PriceTick)
	return ticks, args.Error(1)
}

// countingSource answers every call with the same quotes.
type countingSource struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (c *countingSource) GetPrices(ctx context.Context, symbols []string) ([]models.PriceTick, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return nil, errors.New("boom")
	}
	return []models.PriceTick{{Symbol: "ETH", Price: float64(c.calls.Load())}}, nil
}

func TestNewWatcher_Defaults(t *testing.T) {
	w := NewWatcher(&countingSource{}, nil, 0, nil, zerolog.Nop())
	assert.Equal(t, []string{"ETH", "BTC", "SOL", "USDC", "USDT"}, w.Symbols())
	assert.Equal(t, 30*time.Second, w.interval)
	assert.NotNil(t, w.Hub())
	assert.Empty(t, w.GetPrices())
}

func TestSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	assert.NotNil(t, sub)
	assert.Equal(t, 1, hub.Len())

	hub.Publish(Event{Type: EventFeedUpdated})
	select {
	case ev := <-sub:
		assert.Equal(t, EventFeedUpdated, ev.Type)
	default:
		t.Fatal("expected an event")
	}

	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Len())
	_, open := <-sub
	assert.False(t, open)
}

func TestRefresh(t *testing.T) {
	src := new(MockPriceSource)
	hub := NewHub()
	w := NewWatcher(src, []string{"ETH", "SOL"}, time.Minute, hub, zerolog.Nop())
	sub := hub.Subscribe()

	change := 2.5
	src.On("GetPrices", []string{"ETH", "SOL"}).Return([]models.PriceTick{
		{Symbol: "ETH", Price: 3000, Change24h: &change},
		{Symbol: "SOL", Price: 150},
	}, nil).Once()

	w.refresh(context.Background())
	src.AssertExpectations(t)

	prices := w.GetPrices()
	require.Len(t, prices, 2)
	assert.Equal(t, 3000.0, prices["ETH"].Price)
	assert.Equal(t, 2.5, *prices["ETH"].Change24h)
	assert.Equal(t, []float64{150}, w.History("SOL"))
	assert.False(t, w.LastUpdate().IsZero())

	select {
	case ev := <-sub:
		assert.Equal(t, EventPricesUpdated, ev.Type)
		snap, ok := ev.Data.(PricesSnapshot)
		require.True(t, ok)
		assert.Len(t, snap.Prices, 2)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for prices event")
	}
}

func TestRefresh_FailureRetainsPreviousQuotes(t *testing.T) {
	src := new(MockPriceSource)
	hub := NewHub()
	w := NewWatcher(src, []string{"ETH"}, time.Minute, hub, zerolog.Nop())

	src.On("GetPrices", mock.Anything).Return([]models.PriceTick{{Symbol: "ETH", Price: 3000}}, nil).Once()
	src.On("GetPrices", mock.Anything).Return(nil, errors.New("upstream down")).Once()

	w.refresh(context.Background())
	sub := hub.Subscribe()
	w.refresh(context.Background())

	assert.Equal(t, 3000.0, w.GetPrices()["ETH"].Price)
	assert.Equal(t, []float64{3000}, w.History("ETH"))
	select {
	case ev := <-sub:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}

func TestRefresh_ReplacesWholesale(t *testing.T) {
	src := new(MockPriceSource)
	w := NewWatcher(src, []string{"ETH", "BTC"}, time.Minute, nil, zerolog.Nop())

	src.On("GetPrices", mock.Anything).Return([]models.PriceTick{{Symbol: "ETH", Price: 1}, {Symbol: "BTC", Price: 2}}, nil).Once()
	src.On("GetPrices", mock.Anything).Return([]models.PriceTick{{Symbol: "BTC", Price: 3}}, nil).Once()

	w.refresh(context.Background())
	w.refresh(context.Background())

	prices := w.GetPrices()
	assert.Len(t, prices, 1)
	assert.Equal(t, 3.0, prices["BTC"].Price)
}

func TestStart_RefreshesImmediately(t *testing.T) {
	src := &countingSource{}
	w := NewWatcher(src, []string{"ETH"}, time.Hour, nil, zerolog.Nop())

	w.Start(context.Background())
	w.Start(context.Background()) // no second loop
	defer w.Stop()

	require.Eventually(t, func() bool { return len(w.GetPrices()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.True(t, w.Running())
}

func TestStop_NoRefreshAfterReturn(t *testing.T) {
	src := &countingSource{}
	w := NewWatcher(src, []string{"ETH"}, 5*time.Millisecond, nil, zerolog.Nop())

	w.Start(context.Background())
	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, time.Millisecond)
	w.Stop()
	assert.False(t, w.Running())

	after := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, src.calls.Load())

	// restartable
	w.Start(context.Background())
	require.Eventually(t, func() bool { return src.calls.Load() > after }, time.Second, time.Millisecond)
	w.Stop()
}

func TestPollingLoop_ContextCancel(t *testing.T) {
	src := &countingSource{}
	src.fail.Store(true)
	w := NewWatcher(src, []string{"ETH"}, 5*time.Millisecond, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Empty(t, w.GetPrices())

	cancel()
	w.Stop()
}

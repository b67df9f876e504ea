// Package dashboard ties the resolver, the acquisition engine and the feed
// reconciler into one session whose display state the TUI and the headless
// server render.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"prism/pkg/acquire"
	"prism/pkg/api"
	"prism/pkg/chain"
	"prism/pkg/feed"
	"prism/pkg/identity"
	"prism/pkg/models"
	"prism/pkg/store"
	"prism/pkg/wallet"
	"prism/pkg/watcher"

	"github.com/rs/zerolog"
)

// Acquirer loads a profile for an address.
type Acquirer interface {
	Acquire(ctx context.Context, address string, isWalletSource bool) (*acquire.Result, error)
}

// FeedAttacher starts a live feed session for an identity.
type FeedAttacher interface {
	Attach(ctx context.Context, id identity.Identity, onChange func([]models.ActivityItem)) *feed.Session
}

// InsightsSource serves the optional comparison and recommendation panels.
type InsightsSource interface {
	GetComparison(ctx context.Context, address string) (*models.Comparison, error)
	GetRecommendations(ctx context.Context, address string) (*models.Recommendations, error)
}

// BalanceFunc reads the native ETH balance of an address.
type BalanceFunc func(ctx context.Context, address string) (chain.Balance, error)

// Deps are the collaborators of a Dashboard. Insights, Balance and Wallet are
// optional.
type Deps struct {
	Engine   Acquirer
	Feeds    FeedAttacher
	Insights InsightsSource
	Balance  BalanceFunc
	Store    store.KV
	Wallet   wallet.Adapter
	Hub      *watcher.Hub
}

// State is the display state of the dashboard.
type State struct {
	Address         string                  `json:"address"`
	Source          identity.Source         `json:"source,omitempty"`
	IsWalletProfile bool                    `json:"isWalletProfile"`
	Loading         bool                    `json:"loading"`
	Error           string                  `json:"error,omitempty"`
	Onboarded       bool                    `json:"onboarded,omitempty"`
	Profile         *models.Profile         `json:"profile,omitempty"`
	Summary         *models.Analysis        `json:"summary,omitempty"`
	Tokens          []models.Position       `json:"tokens"`
	NFTs            []models.NFT            `json:"nfts"`
	Feed            []models.ActivityItem   `json:"feed"`
	Comparison      *models.Comparison      `json:"comparison,omitempty"`
	Recommendations *models.Recommendations `json:"recommendations,omitempty"`
	EthBalance      *float64                `json:"ethBalance,omitempty"`
	Wallet          wallet.State            `json:"wallet"`
}

// Loaded reports whether a profile is on display.
func (s State) Loaded() bool { return s.Profile != nil }

func (s State) clone() State {
	out := s
	out.Tokens = append([]models.Position{}, s.Tokens...)
	out.NFTs = append([]models.NFT{}, s.NFTs...)
	out.Feed = append([]models.ActivityItem{}, s.Feed...)
	if s.EthBalance != nil {
		v := *s.EthBalance
		out.EthBalance = &v
	}
	return out
}

// Dashboard serialises identity changes. Every acquisition gets a generation
// number; results and feed updates from an older generation are dropped.
type Dashboard struct {
	deps Deps
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	urlAddress  string
	walletState wallet.State
	state       State
	gen         uint64
	inFlight    string
	session     *feed.Session
}

func New(deps Deps, log zerolog.Logger) *Dashboard {
	if deps.Hub == nil {
		deps.Hub = watcher.NewHub()
	}
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dashboard{
		deps:   deps,
		log:    log.With().Str("component", "dashboard").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (d *Dashboard) Hub() *watcher.Hub { return d.deps.Hub }

// Start follows wallet events and resolves the initial selection. urlAddress
// plays the role of the address query parameter and may be empty.
func (d *Dashboard) Start(urlAddress string) {
	d.mu.Lock()
	d.urlAddress = urlAddress
	d.mu.Unlock()

	if d.deps.Wallet != nil {
		d.HandleWallet(d.deps.Wallet.State())
		d.wg.Add(1)
		go d.followWallet(d.deps.Wallet.Events())
	}
	d.Reevaluate()
}

func (d *Dashboard) followWallet(events <-chan wallet.State) {
	defer d.wg.Done()
	for {
		select {
		case st := <-events:
			d.HandleWallet(st)
			d.Reevaluate()
		case <-d.ctx.Done():
			return
		}
	}
}

// Close stops the feed session and waits for background work.
func (d *Dashboard) Close() {
	d.cancel()
	d.mu.Lock()
	sess := d.session
	d.session = nil
	d.gen++
	d.mu.Unlock()
	if sess != nil {
		sess.Close()
	}
	d.wg.Wait()
}

// Snapshot returns a copy of the display state.
func (d *Dashboard) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.clone()
}

// SetAddressParam changes the address parameter and resolves again.
func (d *Dashboard) SetAddressParam(address string) {
	d.mu.Lock()
	d.urlAddress = address
	d.mu.Unlock()
	d.Reevaluate()
}

// Search validates address and loads it directly, leaving the address
// parameter alone so a later wallet connect still takes over. Invalid input is
// reported without touching the network or the current profile.
func (d *Dashboard) Search(address string) error {
	id, err := identity.Parse(address)
	if err != nil {
		return err
	}
	d.mu.Lock()
	busy := d.inFlight == id.String()
	d.mu.Unlock()
	if busy {
		return nil
	}
	d.load(identity.Selection{Address: id.String(), Source: identity.SourceSearch})
	return nil
}

// ConnectWallet asks the wallet adapter to connect. The resulting state change
// arrives through the adapter's events.
func (d *Dashboard) ConnectWallet(ctx context.Context) error {
	if d.deps.Wallet == nil {
		return wallet.ErrNoKeypair
	}
	_, err := d.deps.Wallet.Connect(ctx)
	return err
}

func (d *Dashboard) DisconnectWallet() {
	if d.deps.Wallet != nil {
		d.deps.Wallet.Disconnect()
	}
}

// HandleWallet records a wallet transition. Disconnecting while a
// wallet-derived profile is shown erases the persisted wallet and clears the
// display. The persisted search is left alone.
func (d *Dashboard) HandleWallet(st wallet.State) {
	d.mu.Lock()
	prev := d.walletState
	d.walletState = st
	d.state.Wallet = st

	var sess *feed.Session
	if prev.Connected && !st.Connected && d.state.IsWalletProfile {
		if err := d.deps.Store.Delete(store.WalletKey); err != nil {
			d.log.Warn().Err(err).Msg("failed to erase persisted wallet")
		}
		sess = d.clearLocked()
	}
	d.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	d.deps.Hub.Publish(watcher.Event{Type: watcher.EventWalletStateChanged, Data: st})
}

// clearLocked resets every derived field and invalidates in-flight work. The
// returned session must be closed after unlocking.
func (d *Dashboard) clearLocked() *feed.Session {
	sess := d.session
	d.session = nil
	d.gen++
	d.inFlight = ""
	d.state = State{Wallet: d.walletState}
	d.log.Info().Msg("wallet profile cleared")
	d.deps.Hub.Publish(watcher.Event{Type: watcher.EventProfileCleared})
	return sess
}

// Reevaluate runs the resolver over the current inputs and starts an
// acquisition when the pick differs from what is shown or loading.
func (d *Dashboard) Reevaluate() {
	persisted, err := store.LoadSelection(d.deps.Store)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to read persisted selection")
	}

	d.mu.Lock()
	sel, ok := identity.Resolve(identity.Sources{
		URLAddress:      d.urlAddress,
		ConnectedWallet: d.walletState.Address,
		WalletConnected: d.walletState.Connected,
		PersistedWallet: persisted.Wallet,
		PersistedSearch: persisted.Search,
	})
	if !ok {
		d.mu.Unlock()
		return
	}
	if sel.Address == d.inFlight || (sel.Address == d.state.Address && d.state.Loaded()) {
		d.state.Source = sel.Source
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	d.load(sel)
}

// Reload acquires the current address again, for a manual retry.
func (d *Dashboard) Reload() {
	d.mu.Lock()
	sel := identity.Selection{Address: d.state.Address, Source: d.state.Source}
	busy := d.inFlight != ""
	d.mu.Unlock()
	if sel.Address == "" || busy {
		return
	}
	d.load(sel)
}

func (d *Dashboard) load(sel identity.Selection) {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	prev := d.session
	d.session = nil
	d.inFlight = sel.Address
	d.state = State{
		Address:         sel.Address,
		Source:          sel.Source,
		IsWalletProfile: sel.IsWalletSource(),
		Loading:         true,
		Wallet:          d.walletState,
	}
	d.mu.Unlock()

	// the old identity's feed stops before anything for the new one starts
	if prev != nil {
		prev.Close()
	}

	d.log.Info().Str("address", sel.Address).Str("source", string(sel.Source)).Msg("loading profile")
	d.deps.Hub.Publish(watcher.Event{Type: watcher.EventProfileLoading, Data: sel})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.acquire(gen, sel)
	}()
}

func (d *Dashboard) current(gen uint64) bool { return d.gen == gen }

func (d *Dashboard) acquire(gen uint64, sel identity.Selection) {
	res, err := d.deps.Engine.Acquire(d.ctx, sel.Address, sel.IsWalletSource())

	d.mu.Lock()
	if !d.current(gen) {
		d.mu.Unlock()
		d.log.Debug().Str("address", sel.Address).Msg("discarding stale acquisition")
		return
	}
	d.inFlight = ""
	if err != nil {
		d.state.Loading = false
		d.state.Error = errorMessage(err)
		msg := d.state.Error
		d.mu.Unlock()
		d.log.Warn().Err(err).Str("address", sel.Address).Msg("acquisition failed")
		d.deps.Hub.Publish(watcher.Event{Type: watcher.EventAcquisitionFailed, Data: msg})
		return
	}
	d.state.Loading = false
	d.state.Error = ""
	d.state.Address = res.Identity.String()
	d.state.IsWalletProfile = res.IsWalletProfile
	d.state.Onboarded = res.Onboarded
	d.state.Profile = res.Profile
	d.state.Summary = res.Summary
	d.state.Tokens = res.Tokens
	d.state.NFTs = res.NFTs
	d.mu.Unlock()

	d.deps.Hub.Publish(watcher.Event{Type: watcher.EventProfileLoaded, Data: d.Snapshot()})

	if d.deps.Feeds != nil {
		sess := d.deps.Feeds.Attach(d.ctx, res.Identity, func(items []models.ActivityItem) {
			d.onFeed(gen, items)
		})
		d.mu.Lock()
		if !d.current(gen) {
			d.mu.Unlock()
			sess.Close()
			return
		}
		d.session = sess
		d.mu.Unlock()
	}

	d.loadInsights(gen, res.Identity)
}

func (d *Dashboard) onFeed(gen uint64, items []models.ActivityItem) {
	d.mu.Lock()
	if !d.current(gen) {
		d.mu.Unlock()
		return
	}
	d.state.Feed = items
	d.mu.Unlock()
	d.deps.Hub.Publish(watcher.Event{Type: watcher.EventFeedUpdated, Data: items})
}

// loadInsights fetches the auxiliary panels. Failures are logged and leave the
// panels empty.
func (d *Dashboard) loadInsights(gen uint64, id identity.Identity) {
	addr := id.String()
	if src := d.deps.Insights; src != nil {
		comparison, err := src.GetComparison(d.ctx, addr)
		if err != nil {
			d.log.Warn().Err(err).Msg("comparison unavailable")
		}
		recs, err := src.GetRecommendations(d.ctx, addr)
		if err != nil {
			d.log.Warn().Err(err).Msg("recommendations unavailable")
		}
		d.mu.Lock()
		if !d.current(gen) {
			d.mu.Unlock()
			return
		}
		d.state.Comparison = comparison
		d.state.Recommendations = recs
		d.mu.Unlock()
		d.deps.Hub.Publish(watcher.Event{Type: watcher.EventInsightsUpdated, Data: addr})
	}

	if d.deps.Balance == nil || id.Kind() != identity.ETH {
		return
	}
	bal, err := d.deps.Balance(d.ctx, addr)
	if err != nil {
		if !errors.Is(err, chain.ErrNoRPC) {
			d.log.Warn().Err(&api.AuxiliaryFetchError{Resource: "balance", Err: err}).Msg("balance unavailable")
		}
		return
	}
	ether := bal.Float64()
	d.mu.Lock()
	if !d.current(gen) {
		d.mu.Unlock()
		return
	}
	d.state.EthBalance = &ether
	d.mu.Unlock()
	d.deps.Hub.Publish(watcher.Event{Type: watcher.EventBalanceUpdated, Data: ether})
}

func errorMessage(err error) string {
	var acqErr *acquire.AcquisitionError
	if errors.As(err, &acqErr) {
		return acqErr.Message
	}
	return err.Error()
}

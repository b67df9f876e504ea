// Package acquire turns an address into a complete, display-ready profile,
// triggering server-side generation when the backend does not have one yet.
package acquire

import (
	"context"
	"errors"

	"prism/pkg/api"
	"prism/pkg/identity"
	"prism/pkg/models"
	"prism/pkg/store"

	"github.com/rs/zerolog"
)

const (
	DefaultHoldingsLimit = 12
	DefaultTopTokens     = 10
)

// Backend is the subset of the REST API the engine needs.
type Backend interface {
	GetProfile(ctx context.Context, address string) (*models.Profile, error)
	Onboard(ctx context.Context, address string) (api.OnboardResult, error)
	GetNFTs(ctx context.Context, address string, limit int) ([]models.NFT, error)
}

// Result is everything the dashboard renders for one address.
type Result struct {
	Identity        identity.Identity
	Profile         *models.Profile
	Summary         *models.Analysis
	Tokens          []models.Position
	NFTs            []models.NFT
	IsWalletProfile bool
	Onboarded       bool
}

// Engine runs acquisitions. It does not coalesce concurrent calls for the
// same address; callers keep at most one in flight.
type Engine struct {
	backend       Backend
	store         store.KV
	log           zerolog.Logger
	HoldingsLimit int
	TopTokens     int
}

func NewEngine(backend Backend, kv store.KV, log zerolog.Logger) *Engine {
	return &Engine{
		backend:       backend,
		store:         kv,
		log:           log.With().Str("component", "acquire").Logger(),
		HoldingsLimit: DefaultHoldingsLimit,
		TopTokens:     DefaultTopTokens,
	}
}

// Acquire loads the profile for address, generating it first when the
// backend has none or has one without bio data. Invalid addresses fail with
// identity.ErrInvalidIdentity before any request is made.
func (e *Engine) Acquire(ctx context.Context, address string, isWalletSource bool) (*Result, error) {
	id, err := identity.Parse(address)
	if err != nil {
		return nil, err
	}
	addr := id.String()
	log := e.log.With().Str("address", addr).Logger()

	profile, err := e.backend.GetProfile(ctx, addr)
	if err != nil {
		log.Warn().Err(err).Msg("profile fetch failed")
		return nil, &AcquisitionError{Address: addr, Message: serverMessage(err, msgLoadFailed), Err: err}
	}

	onboarded := false
	if !profile.Complete() {
		log.Info().Bool("absent", profile == nil).Msg("profile incomplete, onboarding")
		res, err := e.backend.Onboard(ctx, addr)
		if err != nil {
			log.Warn().Err(err).Msg("onboarding request failed")
			return nil, &AcquisitionError{Address: addr, Message: serverMessage(err, msgOnboardFailed), Err: err}
		}
		if !res.Success {
			msg := res.Message
			if msg == "" {
				msg = msgOnboardFailed
			}
			log.Warn().Str("message", res.Message).Msg("onboarding rejected")
			return nil, &AcquisitionError{Address: addr, Message: msg, Err: errors.New("onboarding unsuccessful")}
		}
		onboarded = true

		profile, err = e.backend.GetProfile(ctx, addr)
		if err != nil {
			log.Warn().Err(err).Msg("profile re-fetch failed")
			return nil, &AcquisitionError{Address: addr, Message: serverMessage(err, msgLoadFailed), Err: err}
		}
		if profile == nil {
			return nil, &AcquisitionError{Address: addr, Message: msgLoadFailed, Err: errors.New("profile still absent after onboarding")}
		}
	}

	nfts, err := e.backend.GetNFTs(ctx, addr, e.HoldingsLimit)
	if err != nil {
		log.Warn().Err(err).Msg("holdings unavailable")
		nfts = []models.NFT{}
	}

	positions := profile.Positions()
	top := e.TopTokens
	if top <= 0 || top > len(positions) {
		top = len(positions)
	}
	tokens := make([]models.Position, top)
	copy(tokens, positions[:top])

	result := &Result{
		Identity:        id,
		Profile:         profile,
		Summary:         profile.Summary(),
		Tokens:          tokens,
		NFTs:            nfts,
		IsWalletProfile: isWalletSource,
		Onboarded:       onboarded,
	}

	key := store.SearchKey
	if isWalletSource {
		key = store.WalletKey
	}
	if err := e.store.Set(key, addr); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to persist selection")
	}

	log.Info().Bool("wallet", isWalletSource).Bool("onboarded", onboarded).Int("tokens", len(tokens)).
		Int("nfts", len(nfts)).Msg("profile loaded")
	return result, nil
}

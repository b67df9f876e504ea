// Package wallet connects a local Solana keypair as the user's wallet.
package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
)

var (
	ErrNoKeypair      = errors.New("no wallet keypair configured")
	ErrInvalidKeypair = errors.New("invalid keypair file")
)

// State is the connection status of a wallet.
type State struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
}

// Adapter is a wallet that can be connected and disconnected, announcing
// every transition on Events.
type Adapter interface {
	Connect(ctx context.Context) (State, error)
	Disconnect() State
	State() State
	Events() <-chan State
}

// KeyfileWallet reads a solana-cli keypair file: a JSON array of 64 bytes,
// the ed25519 seed followed by the public key.
type KeyfileWallet struct {
	path   string
	log    zerolog.Logger
	mu     sync.Mutex
	state  State
	events chan State
}

func NewKeyfileWallet(path string, log zerolog.Logger) *KeyfileWallet {
	return &KeyfileWallet{
		path:   path,
		log:    log.With().Str("component", "wallet").Logger(),
		events: make(chan State, 16),
	}
}

// Connect loads and verifies the keypair and publishes the connected state.
func (w *KeyfileWallet) Connect(ctx context.Context) (State, error) {
	if w.path == "" {
		return w.State(), ErrNoKeypair
	}
	if err := ctx.Err(); err != nil {
		return w.State(), err
	}
	addr, err := LoadKeypairAddress(w.path)
	if err != nil {
		return w.State(), err
	}

	w.mu.Lock()
	w.state = State{Connected: true, Address: addr}
	st := w.state
	w.mu.Unlock()

	w.log.Info().Str("address", addr).Msg("wallet connected")
	w.emit(st)
	return st, nil
}

func (w *KeyfileWallet) Disconnect() State {
	w.mu.Lock()
	was := w.state.Connected
	w.state = State{}
	w.mu.Unlock()

	if was {
		w.log.Info().Msg("wallet disconnected")
		w.emit(State{})
	}
	return State{}
}

func (w *KeyfileWallet) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *KeyfileWallet) Events() <-chan State { return w.events }

func (w *KeyfileWallet) emit(st State) {
	select {
	case w.events <- st:
	default:
		w.log.Warn().Msg("wallet event dropped, consumer is behind")
	}
}

// LoadKeypairAddress returns the base58 public key of the keypair at path
// after checking that the stored public key matches the seed.
func LoadKeypairAddress(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read keypair: %w", err)
	}
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeypair, ed25519.PrivateKeySize, len(raw))
	}
	key := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return "", fmt.Errorf("%w: byte %d out of range", ErrInvalidKeypair, i)
		}
		key[i] = byte(v)
	}

	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	pub := derived.Public().(ed25519.PublicKey)
	if !bytes.Equal(pub, key[ed25519.SeedSize:]) {
		return "", fmt.Errorf("%w: public key does not match seed", ErrInvalidKeypair)
	}
	return base58.Encode(pub), nil
}

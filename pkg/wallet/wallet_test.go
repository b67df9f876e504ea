package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"prism/pkg/identity"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeypair(t *testing.T, key []byte) string {
	t.Helper()
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestLoadKeypairAddress(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	addr, err := LoadKeypairAddress(writeKeypair(t, priv))
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(pub), addr)
	assert.Equal(t, identity.SOL, identity.Classify(addr))
	assert.True(t, identity.IsSolanaPubkey(addr))
}

func TestLoadKeypairAddress_Invalid(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tampered := append([]byte(nil), priv...)
	tampered[40] ^= 0xff
	_, err = LoadKeypairAddress(writeKeypair(t, tampered))
	assert.ErrorIs(t, err, ErrInvalidKeypair)

	_, err = LoadKeypairAddress(writeKeypair(t, priv[:32]))
	assert.ErrorIs(t, err, ErrInvalidKeypair)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`"not an array"`), 0600))
	_, err = LoadKeypairAddress(bad)
	assert.ErrorIs(t, err, ErrInvalidKeypair)

	_, err = LoadKeypairAddress(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestKeyfileWallet_ConnectDisconnect(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	w := NewKeyfileWallet(writeKeypair(t, priv), zerolog.Nop())

	st, err := w.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, base58.Encode(pub), st.Address)
	assert.Equal(t, st, w.State())
	assert.Equal(t, st, <-w.Events())

	w.Disconnect()
	assert.False(t, w.State().Connected)
	assert.Equal(t, State{}, <-w.Events())

	// disconnecting twice announces nothing
	w.Disconnect()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestKeyfileWallet_NoPath(t *testing.T) {
	w := NewKeyfileWallet("", zerolog.Nop())
	_, err := w.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoKeypair)
	assert.False(t, w.State().Connected)
}

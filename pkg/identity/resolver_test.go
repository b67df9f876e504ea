package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_Priority(t *testing.T) {
	full := Sources{
		URLAddress:      "url",
		ConnectedWallet: "wallet",
		WalletConnected: true,
		PersistedWallet: "persisted-wallet",
		PersistedSearch: "persisted-search",
	}

	tests := []struct {
		name       string
		mutate     func(*Sources)
		wantAddr   string
		wantSource Source
		wantWallet bool
	}{
		{"url wins", func(s *Sources) {}, "url", SourceURL, false},
		{"connected wallet next", func(s *Sources) { s.URLAddress = "" }, "wallet", SourceConnectedWallet, true},
		{"disconnected wallet ignored", func(s *Sources) {
			s.URLAddress = ""
			s.WalletConnected = false
		}, "persisted-wallet", SourcePersistedWallet, true},
		{"persisted search last", func(s *Sources) {
			s.URLAddress = ""
			s.WalletConnected = false
			s.PersistedWallet = ""
		}, "persisted-search", SourcePersistedSearch, false},
		{"connected flag without address falls through", func(s *Sources) {
			s.URLAddress = ""
			s.ConnectedWallet = ""
		}, "persisted-wallet", SourcePersistedWallet, true},
		{"blank url ignored", func(s *Sources) { s.URLAddress = "   " }, "wallet", SourceConnectedWallet, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := full
			tt.mutate(&src)
			sel, ok := Resolve(src)
			assert.True(t, ok)
			assert.Equal(t, tt.wantAddr, sel.Address)
			assert.Equal(t, tt.wantSource, sel.Source)
			assert.Equal(t, tt.wantWallet, sel.IsWalletSource())
		})
	}
}

func TestResolve_NoDefault(t *testing.T) {
	sel, ok := Resolve(Sources{})
	assert.False(t, ok)
	assert.Equal(t, SourceNone, sel.Source)

	_, ok = Resolve(Sources{ConnectedWallet: "wallet"})
	assert.False(t, ok, "a wallet address without a live connection is not a source")
}

package identity

import "strings"

// Source names where a selected address came from.
type Source string

const (
	SourceNone            Source = ""
	SourceURL             Source = "url"
	SourceConnectedWallet Source = "connected_wallet"
	SourcePersistedWallet Source = "persisted_wallet"
	SourcePersistedSearch Source = "persisted_search"
	// SourceSearch is a manual search. It is loaded directly, not resolved.
	SourceSearch Source = "search"
)

// Sources is everything the resolver looks at, in no particular order.
type Sources struct {
	URLAddress      string
	ConnectedWallet string
	WalletConnected bool
	PersistedWallet string
	PersistedSearch string
}

// Selection is the resolver's pick.
type Selection struct {
	Address string
	Source  Source
}

// IsWalletSource reports whether the selection came from a wallet, live or persisted.
func (s Selection) IsWalletSource() bool {
	return s.Source == SourceConnectedWallet || s.Source == SourcePersistedWallet
}

// Resolve picks the address to display. The URL parameter wins, then the
// connected wallet (only while connected), then the persisted wallet, then the
// persisted search. There is no default address.
//
// Resolve does not validate; the acquisition engine rejects invalid picks.
func Resolve(src Sources) (Selection, bool) {
	if v := strings.TrimSpace(src.URLAddress); v != "" {
		return Selection{Address: v, Source: SourceURL}, true
	}
	if src.WalletConnected {
		if v := strings.TrimSpace(src.ConnectedWallet); v != "" {
			return Selection{Address: v, Source: SourceConnectedWallet}, true
		}
	}
	if v := strings.TrimSpace(src.PersistedWallet); v != "" {
		return Selection{Address: v, Source: SourcePersistedWallet}, true
	}
	if v := strings.TrimSpace(src.PersistedSearch); v != "" {
		return Selection{Address: v, Source: SourcePersistedSearch}, true
	}
	return Selection{}, false
}

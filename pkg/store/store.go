// Package store persists the last selected addresses across runs.
package store

import (
	"sync"
)

// Keys of the persisted selection.
const (
	WalletKey = "prism_connected_wallet"
	SearchKey = "prism_last_search"
)

// KV is a small durable string map. Writes are last-writer-wins.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Selection is the persisted pair of wallet and search addresses.
type Selection struct {
	Wallet string
	Search string
}

// LoadSelection reads both keys. Missing keys come back empty.
func LoadSelection(kv KV) (Selection, error) {
	var sel Selection
	wallet, _, err := kv.Get(WalletKey)
	if err != nil {
		return sel, err
	}
	search, _, err := kv.Get(SearchKey)
	if err != nil {
		return sel, err
	}
	sel.Wallet = wallet
	sel.Search = search
	return sel, nil
}

// MemoryStore is an in-process KV.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Package feed keeps the activity feed for one address current by merging a
// WebSocket push source with periodic polling.
package feed

import "prism/pkg/models"

// DefaultCapacity is the number of items a feed keeps.
const DefaultCapacity = 20

// Buffer holds activity newest first, bounded, with no two items sharing a
// dedup key. It is not safe for concurrent use.
type Buffer struct {
	items    []models.ActivityItem
	capacity int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{items: []models.ActivityItem{}, capacity: capacity}
}

// stableKey is the id or hash of an item. Items without either only have a
// positional key, which never matches an item from another delivery.
func stableKey(item models.ActivityItem) (string, bool) {
	if item.ID != "" {
		return item.ID, true
	}
	if item.Hash != "" {
		return item.Hash, true
	}
	return "", false
}

// Push prepends item, dropping an older entry with the same key and anything
// past capacity.
func (b *Buffer) Push(item models.ActivityItem) {
	key, stable := stableKey(item)
	next := make([]models.ActivityItem, 0, b.capacity)
	next = append(next, item)
	for _, existing := range b.items {
		if len(next) == b.capacity {
			break
		}
		if stable {
			if k, ok := stableKey(existing); ok && k == key {
				continue
			}
		}
		next = append(next, existing)
	}
	b.items = next
}

// Replace swaps the contents for items (newest first), keeping the first
// occurrence of each key and at most capacity entries.
func (b *Buffer) Replace(items []models.ActivityItem) {
	seen := make(map[string]struct{}, len(items))
	next := make([]models.ActivityItem, 0, b.capacity)
	for i, item := range items {
		if len(next) == b.capacity {
			break
		}
		key := item.DedupKey(i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		next = append(next, item)
	}
	b.items = next
}

// Items returns a copy of the buffer contents.
func (b *Buffer) Items() []models.ActivityItem {
	out := make([]models.ActivityItem, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Buffer) Len() int { return len(b.items) }

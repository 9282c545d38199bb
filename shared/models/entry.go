package models

import (
	"fmt"
	"strings"
	"unicode"
)

// Canonical loot-entry format: "Slot: item". The same format is used for the
// loot and bonusloot ledgers so that slot-prefix removal works uniformly.

// NormalizeSlot trims a slot name and capitalizes it ("ring1" -> "Ring1",
// "HEAD" -> "Head"). Slot validation and entry building both go through this.
func NormalizeSlot(slot string) string {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return slot
	}
	runes := []rune(strings.ToLower(slot))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// NormalizeItem trims and lowercases an item name. Also used for search
// comparisons so stored entries and search terms normalize identically.
func NormalizeItem(item string) string {
	return strings.ToLower(strings.TrimSpace(item))
}

// CanonicalLootEntry builds the canonical ledger entry for a slot/item pair.
func CanonicalLootEntry(slot, item string) string {
	return fmt.Sprintf("%s: %s", NormalizeSlot(slot), NormalizeItem(item))
}

// WithSource appends the provenance annotation to a canonical entry.
func WithSource(entry, source string) string {
	return fmt.Sprintf("%s (obtained from %s)", entry, source)
}

// SlotPrefix returns the exact prefix that selects every ledger entry
// belonging to a slot, delimiter included.
func SlotPrefix(slot string) string {
	return NormalizeSlot(slot) + ": "
}

// HasSlotPrefix reports whether a ledger entry belongs to the given slot.
// The delimiter is part of the match, so "Head" never matches "Headgear: ..."
// entries.
func HasSlotPrefix(entry, slot string) bool {
	return strings.HasPrefix(entry, SlotPrefix(slot))
}

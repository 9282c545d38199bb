// bot/commands/format.go
package commands

import (
	"fmt"
	"strings"

	"github.com/ezloot/LOOT-SERVICES/bot/gateway"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
)

// formatSubject renders a resolved subject for replies: display name plus
// mention, so the person is both readable and pingable.
func formatSubject(s gateway.Subject) string {
	return fmt.Sprintf("%s (%s)", s.DisplayName(), mention(s.SubjectID()))
}

// formatGearLines renders a gear map in configured slot order. Locked slots
// get the red marker and a struck-through item.
func formatGearLines(gear map[string]models.GearSlot, slots []string) []string {
	lines := make([]string, 0, len(slots))
	for _, slot := range slots {
		gs := gear[slot]
		item := "Not set"
		if gs.Item != nil {
			item = *gs.Item
		}
		if gs.Looted {
			lines = append(lines, fmt.Sprintf("🔴 **%s**: ~~%s~~", slot, item))
		} else {
			lines = append(lines, fmt.Sprintf("🟢 **%s**: %s", slot, item))
		}
	}
	return lines
}

// formatLootReport renders a user's two ledgers the way showloot presents them.
func formatLootReport(display string, record *models.UserRecord) string {
	lines := []string{fmt.Sprintf("**%s's Loot:**", display)}
	if len(record.Loot) > 0 {
		lines = append(lines, "**Regular Loot:**")
		for _, entry := range record.Loot {
			lines = append(lines, fmt.Sprintf("- %s", entry))
		}
	} else {
		lines = append(lines, "No regular loot assigned.")
	}
	lines = append(lines, "")
	if len(record.BonusLoot) > 0 {
		lines = append(lines, "**Bonus Loot:**")
		for _, entry := range record.BonusLoot {
			lines = append(lines, fmt.Sprintf("- %s", entry))
		}
	} else {
		lines = append(lines, "No bonus loot assigned.")
	}
	return strings.Join(lines, "\n")
}

// formatGearMatch renders one search hit with its lock marker.
func formatGearMatch(m models.GearMatch) string {
	if m.Looted {
		return fmt.Sprintf("🔴 %s: ~~%s~~", m.Slot, m.Item)
	}
	return fmt.Sprintf("🟢 %s: %s", m.Slot, m.Item)
}

// entryItem strips the slot prefix and provenance suffix from a canonical
// ledger entry, leaving just the item name.
func entryItem(entry, slot string) string {
	item := strings.TrimPrefix(entry, models.SlotPrefix(slot))
	if idx := strings.Index(item, " (obtained from "); idx >= 0 {
		item = item[:idx]
	}
	return item
}

// slotList renders the configured slots for "valid slots" replies.
func slotList(slots []string) string {
	return strings.Join(slots, ", ")
}

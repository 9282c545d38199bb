// bot/commands/admin.go
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ezloot/LOOT-SERVICES/bot/gateway"
	"github.com/ezloot/LOOT-SERVICES/bot/resolver"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
	sharedservice "github.com/ezloot/LOOT-SERVICES/shared/service"
)

// resolveRef resolves a required user reference, replying on failure. A nil
// subject with a nil error means the "could not resolve" reply went out.
func (r *Router) resolveRef(ctx context.Context, inv *Invocation, ref string) (gateway.Subject, error) {
	subject, err := r.resolver.Resolve(ctx, ref, inv.Event.GuildID)
	if err != nil {
		if errors.Is(err, resolver.ErrUnresolved) {
			return nil, inv.Reply(ctx, fmt.Sprintf("Could not resolve user '%s'.", ref))
		}
		return nil, err
	}
	return subject, nil
}

// cmdListUsers lists every registered user.
func (r *Router) cmdListUsers(ctx context.Context, inv *Invocation) error {
	records, err := r.loot.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return inv.Reply(ctx, "No users registered yet.")
	}

	lines := []string{"**Registered Users:**"}
	for _, record := range records {
		lines = append(lines, fmt.Sprintf("- %s [%s]", record.Username, record.ID))
	}
	return inv.Reply(ctx, strings.Join(lines, "\n"))
}

// cmdFindItem searches declared gear items by substring and shows lock status.
func (r *Router) cmdFindItem(ctx context.Context, inv *Invocation) error {
	term := inv.Rest(0)
	if term == "" {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sfinditem <item>`", r.prefix))
	}

	matches, err := r.loot.FindByItemSubstring(ctx, term)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return inv.Reply(ctx, fmt.Sprintf("No users found with item containing **%s**.", term))
	}

	// Group per user, preserving result order.
	var order []string
	perUser := make(map[string][]string)
	names := make(map[string]string)
	for _, m := range matches {
		if _, seen := perUser[m.UserID]; !seen {
			order = append(order, m.UserID)
			names[m.UserID] = m.Username
		}
		perUser[m.UserID] = append(perUser[m.UserID], formatGearMatch(m))
	}

	lines := []string{"Matches found:"}
	for _, id := range order {
		lines = append(lines, fmt.Sprintf("%s - %s", names[id], strings.Join(perUser[id], ", ")))
	}
	return inv.Reply(ctx, strings.Join(lines, "\n"))
}

// cmdFindBonusLoot searches the bonus ledgers by substring.
func (r *Router) cmdFindBonusLoot(ctx context.Context, inv *Invocation) error {
	term := inv.Rest(0)
	if term == "" {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sfindbonusloot <item>`", r.prefix))
	}

	matches, err := r.loot.FindByBonusLootSubstring(ctx, term)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return inv.Reply(ctx, fmt.Sprintf("No users found with bonus loot containing **%s**.", term))
	}

	var order []string
	perUser := make(map[string][]string)
	names := make(map[string]string)
	for _, m := range matches {
		if _, seen := perUser[m.UserID]; !seen {
			order = append(order, m.UserID)
			names[m.UserID] = m.Username
		}
		perUser[m.UserID] = append(perUser[m.UserID], m.Entry)
	}

	lines := []string{"Matches found:"}
	for _, id := range order {
		lines = append(lines, fmt.Sprintf("%s - %s", names[id], strings.Join(perUser[id], ", ")))
	}
	return inv.Reply(ctx, strings.Join(lines, "\n"))
}

// cmdAssignLoot awards a user's declared item for a slot, locking the slot.
func (r *Router) cmdAssignLoot(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sassignloot <user> <slot> [source]`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}
	slot := models.NormalizeSlot(inv.Args[1])
	source := inv.Rest(2)

	entry, err := r.loot.AssignLoot(ctx, subject.SubjectID(), slot, source)
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot. Valid slots: %s", slot, slotList(r.slots)))
	case errors.Is(err, sharedservice.ErrItemNotSet):
		return inv.Reply(ctx, fmt.Sprintf("%s does not have an item set for **%s**.", formatSubject(subject), slot))
	case errors.Is(err, sharedservice.ErrAlreadyAwarded):
		return inv.Reply(ctx, fmt.Sprintf("%s's **%s** item has already been awarded.", formatSubject(subject), slot))
	case err != nil:
		return err
	}

	inv.logUse(ctx, "assignloot", fmt.Sprintf("Assigned loot for %s (%s)", formatSubject(subject), entry))
	return inv.Reply(ctx, fmt.Sprintf("Loot assigned to %s for **%s**: **%s**.", formatSubject(subject), slot, entryItem(entry, slot)))
}

// cmdAssignBonusLoot records an off-list drop for a user.
func (r *Router) cmdAssignBonusLoot(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 3 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sassignbonusloot <user> <slot> <loot>`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}
	slot := models.NormalizeSlot(inv.Args[1])
	item := inv.Rest(2)

	entry, err := r.loot.AssignBonusLoot(ctx, subject.SubjectID(), slot, item, "")
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot. Valid slots: %s", slot, slotList(r.slots)))
	case err != nil:
		return err
	}

	inv.logUse(ctx, "assignbonusloot", fmt.Sprintf("Assigned bonus loot for %s (%s)", formatSubject(subject), entry))
	return inv.Reply(ctx, fmt.Sprintf("Bonus loot assigned to %s for **%s**: **%s**.", formatSubject(subject), slot, item))
}

// cmdAddPity increments a user's pity counter by one.
func (r *Router) cmdAddPity(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 1 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%saddpity <user>`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}

	pity, err := r.loot.AddPity(ctx, subject.SubjectID())
	if errors.Is(err, sharedservice.ErrUserNotFound) {
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	}
	if err != nil {
		return err
	}

	inv.logUse(ctx, "addpity", fmt.Sprintf("Incremented pity for %s to %d", formatSubject(subject), pity))
	return inv.Reply(ctx, fmt.Sprintf("Pity level for %s has been incremented to %d.", formatSubject(subject), pity))
}

// cmdSetPity overwrites a user's pity counter.
func (r *Router) cmdSetPity(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%ssetpity <user> <pity_level>`", r.prefix))
	}
	pity, perr := strconv.ParseInt(inv.Args[1], 10, 64)
	if perr != nil || pity < 0 {
		return inv.Reply(ctx, "Pity level must be a non-negative number.")
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}

	err = r.loot.SetPity(ctx, subject.SubjectID(), pity)
	if errors.Is(err, sharedservice.ErrUserNotFound) {
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	}
	if err != nil {
		return err
	}

	inv.logUse(ctx, "setpity", fmt.Sprintf("Set pity for %s to %d", formatSubject(subject), pity))
	return inv.Reply(ctx, fmt.Sprintf("Pity level for %s has been set to %d.", formatSubject(subject), pity))
}

// cmdEditGear overwrites another user's declared item for a slot, declaring
// it if the slot was still empty. Locked slots stay locked.
func (r *Router) cmdEditGear(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 3 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%seditgear <user> <slot> <new_item>`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}
	slot := models.NormalizeSlot(inv.Args[1])
	item := inv.Rest(2)

	err = r.loot.EditItem(ctx, subject.SubjectID(), slot, item)
	if errors.Is(err, sharedservice.ErrSlotEmpty) {
		err = r.loot.SetItem(ctx, subject.SubjectID(), slot, item)
	}
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot. Valid slots: %s", slot, slotList(r.slots)))
	case errors.Is(err, sharedservice.ErrSlotLocked):
		return inv.Reply(ctx, fmt.Sprintf("%s's **%s** slot is locked. Unlock it first.", formatSubject(subject), slot))
	case err != nil:
		return err
	}

	inv.logUse(ctx, "editgear", fmt.Sprintf("Edited gear for %s (%s) to %s", formatSubject(subject), slot, item))
	return inv.Reply(ctx, fmt.Sprintf("Gear for %s in slot **%s** has been updated to **%s**.", formatSubject(subject), slot, item))
}

// cmdUnlock clears the lock on a user's gear slot.
func (r *Router) cmdUnlock(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sunlock <user> <slot>`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}
	slot := models.NormalizeSlot(inv.Args[1])

	err = r.loot.UnlockSlot(ctx, subject.SubjectID(), slot)
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot. Valid slots: %s", slot, slotList(r.slots)))
	case err != nil:
		return err
	}

	inv.logUse(ctx, "unlock", fmt.Sprintf("Unlocked %s's %s slot", formatSubject(subject), slot))
	return inv.Reply(ctx, fmt.Sprintf("%s's **%s** slot has been unlocked.", formatSubject(subject), slot))
}

// cmdRemoveGear resets a user's gear slot to empty and unlocked.
func (r *Router) cmdRemoveGear(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sremovegear <user> <slot>`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}
	slot := models.NormalizeSlot(inv.Args[1])

	err = r.loot.ResetGear(ctx, subject.SubjectID(), slot)
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot.", slot))
	case err != nil:
		return err
	}

	inv.logUse(ctx, "removegear", fmt.Sprintf("Removed gear for %s (%s)", formatSubject(subject), slot))
	return inv.Reply(ctx, fmt.Sprintf("Gear for slot **%s** has been reset for %s.", slot, formatSubject(subject)))
}

// cmdRemoveLoot deletes every loot-ledger entry for a slot from a user's record.
func (r *Router) cmdRemoveLoot(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sremoveloot <user> <slot>`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}
	slot := models.NormalizeSlot(inv.Args[1])

	removed, err := r.loot.RemoveLootForSlot(ctx, subject.SubjectID(), slot)
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot.", slot))
	case err != nil:
		return err
	}
	if removed == 0 {
		return inv.Reply(ctx, fmt.Sprintf("No loot entry found for slot **%s** in %s's record.", slot, formatSubject(subject)))
	}

	inv.logUse(ctx, "removeloot", fmt.Sprintf("Removed loot for %s (%s)", formatSubject(subject), slot))
	return inv.Reply(ctx, fmt.Sprintf("Loot entry for slot **%s** has been removed from %s's record.", slot, formatSubject(subject)))
}

// cmdRemoveBonusLoot deletes every bonus-ledger entry for a slot from a user's record.
func (r *Router) cmdRemoveBonusLoot(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sremovebonusloot <user> <slot>`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}
	slot := models.NormalizeSlot(inv.Args[1])

	removed, err := r.loot.RemoveBonusLootForSlot(ctx, subject.SubjectID(), slot)
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", formatSubject(subject)))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot.", slot))
	case err != nil:
		return err
	}
	if removed == 0 {
		return inv.Reply(ctx, fmt.Sprintf("No bonus loot entry found for slot **%s** in %s's record.", slot, formatSubject(subject)))
	}

	inv.logUse(ctx, "removebonusloot", fmt.Sprintf("Removed bonus loot for %s (%s)", formatSubject(subject), slot))
	return inv.Reply(ctx, fmt.Sprintf("Bonus loot entry for slot **%s** has been removed from %s's record.", slot, formatSubject(subject)))
}

// cmdRemoveUser deletes a user's record. Admins are protected on both sides:
// the guild admin flag here, the configured admin set in the loot-service.
func (r *Router) cmdRemoveUser(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 1 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sremoveuser <user>`", r.prefix))
	}
	subject, err := r.resolveRef(ctx, inv, inv.Args[0])
	if subject == nil || err != nil {
		return err
	}
	if member, isMember := subject.(*gateway.Member); isMember && member.IsAdmin {
		return inv.Reply(ctx, "Cannot remove an administrator from the database.")
	}

	err = r.loot.RemoveUser(ctx, subject.SubjectID())
	switch {
	case errors.Is(err, sharedservice.ErrProtectedAdmin):
		return inv.Reply(ctx, "Cannot remove an administrator from the database.")
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered in the database.", formatSubject(subject)))
	case err != nil:
		return err
	}

	inv.logUse(ctx, "removeuser", fmt.Sprintf("Removed user %s [%s] from the database", formatSubject(subject), subject.SubjectID()))
	return inv.Reply(ctx, fmt.Sprintf("User %s has been removed from the database.", formatSubject(subject)))
}

// cmdGuildTotal renders the full per-user award report plus the aggregate counts.
func (r *Router) cmdGuildTotal(ctx context.Context, inv *Invocation) error {
	records, err := r.loot.ListUsers(ctx)
	if err != nil {
		return err
	}

	lines := []string{"**Guild Loot Report:**"}
	for _, record := range records {
		if len(record.Loot) == 0 && len(record.BonusLoot) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s [%s]:**", record.Username, record.ID))
		if len(record.Loot) > 0 {
			lines = append(lines, "  **Regular Loot:**")
			for _, entry := range record.Loot {
				lines = append(lines, fmt.Sprintf("  - %s", entry))
			}
		}
		if len(record.BonusLoot) > 0 {
			lines = append(lines, "  **Bonus Loot:**")
			for _, entry := range record.BonusLoot {
				lines = append(lines, fmt.Sprintf("  - %s", entry))
			}
		}
		lines = append(lines, "")
	}
	if len(lines) == 1 {
		return inv.Reply(ctx, "No loot has been assigned yet.")
	}

	totals, err := r.loot.GuildTotals(ctx)
	if err != nil {
		return err
	}
	lines = append(lines, fmt.Sprintf("Total: %d loot and %d bonus loot across %d users.",
		totals.LootCount, totals.BonusLootCount, totals.Users))
	return inv.Reply(ctx, strings.Join(lines, "\n"))
}

// cmdReloadAdmins asks the loot-service to re-read the admin set and refreshes
// the local cache.
func (r *Router) cmdReloadAdmins(ctx context.Context, inv *Invocation) error {
	ids, err := r.loot.ReloadAdmins(ctx)
	if err != nil {
		return err
	}
	r.setAdmins(ids)
	return inv.Reply(ctx, fmt.Sprintf("Admin list reloaded: %d admins.", len(ids)))
}

// cmdAdminHelp lists the admin commands.
func (r *Router) cmdAdminHelp(ctx context.Context, inv *Invocation) error {
	p := r.prefix
	help := "**Admin Commands:**\n" +
		fmt.Sprintf("`%slistusers` - List all registered users.\n", p) +
		fmt.Sprintf("`%sfinditem <item>` - Find users with a specified item in their gear (substring matching) and display lock status.\n", p) +
		fmt.Sprintf("`%sfindbonusloot <item>` - Find users with bonus loot entries containing a specified string.\n", p) +
		fmt.Sprintf("`%sassignloot <user> <slot> [source]` - Assign loot to a user for a specific gear slot (locks the slot).\n", p) +
		fmt.Sprintf("`%sassignbonusloot <user> <slot> <loot>` - Assign bonus loot to a user.\n", p) +
		fmt.Sprintf("`%saddpity <user>` - Increment the pity level for a user by 1.\n", p) +
		fmt.Sprintf("`%ssetpity <user> <pity_level>` - Set the pity level for a user to a specified amount.\n", p) +
		fmt.Sprintf("`%seditgear <user> <slot> <new_item>` - Edit a user's gear slot.\n", p) +
		fmt.Sprintf("`%sunlock <user> <slot>` - Unlock a gear slot for a user.\n", p) +
		fmt.Sprintf("`%sremovegear <user> <slot>` - Reset a gear slot for a user.\n", p) +
		fmt.Sprintf("`%sremoveloot <user> <slot>` - Remove the loot entry for a specified slot from a user's record.\n", p) +
		fmt.Sprintf("`%sremovebonusloot <user> <slot>` - Remove the bonus loot entry for a specified slot from a user's record.\n", p) +
		fmt.Sprintf("`%sremoveuser <user>` - Remove a user from the database (non-admin users only).\n", p) +
		fmt.Sprintf("`%sguildtotal` - Show the loot assigned across all users.\n", p) +
		fmt.Sprintf("`%sreloadadmins` - Reload the admin ID list from configuration.\n", p) +
		fmt.Sprintf("`%sadmincommands` - Show this help message.\n", p)
	return inv.Reply(ctx, help)
}

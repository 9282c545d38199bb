// bot/commands/user.go
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ezloot/LOOT-SERVICES/bot/resolver"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
	sharedservice "github.com/ezloot/LOOT-SERVICES/shared/service"
)

// cmdRegister registers the invoking user. Works in public channels so people
// can self-serve; everything else happens over DM.
func (r *Router) cmdRegister(ctx context.Context, inv *Invocation) error {
	e := inv.Event
	err := r.loot.Register(ctx, e.AuthorID, e.AuthorUsername)
	if errors.Is(err, sharedservice.ErrAlreadyRegistered) {
		return inv.Reply(ctx, fmt.Sprintf("%s, you are already registered.", mention(e.AuthorID)))
	}
	if err != nil {
		return err
	}

	inv.logUse(ctx, "register", fmt.Sprintf("Registered %s [%s]", e.AuthorUsername, e.AuthorID))
	return inv.Reply(ctx, fmt.Sprintf(
		"%s, you have been registered! Please DM for further commands.\n"+
			"DM Commands:\n"+
			"• `%sset <slot> <item>`\n"+
			"• `%sedit <slot> <new_item>`\n"+
			"• `%sshowgear`\n"+
			"• `%sshowloot`\n"+
			"• `%scommands`",
		mention(e.AuthorID), r.prefix, r.prefix, r.prefix, r.prefix, r.prefix))
}

// cmdSet declares an item for one of the caller's gear slots.
func (r *Router) cmdSet(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sset <slot> <item>`", r.prefix))
	}
	slot := models.NormalizeSlot(inv.Args[0])
	item := inv.Rest(1)

	err := r.loot.SetItem(ctx, inv.Event.AuthorID, slot, item)
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("Please register first using %sregister in the public channel.", r.prefix))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot. Valid: %s", slot, slotList(r.slots)))
	case errors.Is(err, sharedservice.ErrSlotLocked):
		return inv.Reply(ctx, fmt.Sprintf("Your **%s** slot is locked as loot has been assigned.", slot))
	case errors.Is(err, sharedservice.ErrSlotAlreadySet):
		return inv.Reply(ctx, fmt.Sprintf("You already have an item for **%s**. Use %sedit %s <new_item>.", slot, r.prefix, slot))
	case err != nil:
		return err
	}

	inv.logUse(ctx, "set", fmt.Sprintf("Set %s to %s", slot, item))
	return inv.Reply(ctx, fmt.Sprintf("Your **%s** has been set to **%s**.", slot, item))
}

// cmdEdit replaces the declared item for one of the caller's gear slots.
func (r *Router) cmdEdit(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return inv.Reply(ctx, fmt.Sprintf("Usage: `%sedit <slot> <new_item>`", r.prefix))
	}
	slot := models.NormalizeSlot(inv.Args[0])
	item := inv.Rest(1)

	err := r.loot.EditItem(ctx, inv.Event.AuthorID, slot, item)
	switch {
	case errors.Is(err, sharedservice.ErrUserNotFound):
		return inv.Reply(ctx, fmt.Sprintf("Please register first using %sregister in the public channel.", r.prefix))
	case errors.Is(err, sharedservice.ErrUnknownSlot):
		return inv.Reply(ctx, fmt.Sprintf("`%s` is not a valid gear slot.", slot))
	case errors.Is(err, sharedservice.ErrSlotLocked):
		return inv.Reply(ctx, fmt.Sprintf("You cannot change **%s** because loot has been assigned.", slot))
	case errors.Is(err, sharedservice.ErrSlotEmpty):
		return inv.Reply(ctx, fmt.Sprintf("You do not have an item for **%s** yet. Use %sset %s <item>.", slot, r.prefix, slot))
	case err != nil:
		return err
	}

	inv.logUse(ctx, "edit", fmt.Sprintf("Updated %s to %s", slot, item))
	return inv.Reply(ctx, fmt.Sprintf("Your **%s** has been updated to **%s**.", slot, item))
}

// targetOrSelf picks the command's subject: admins may pass a reference to
// act on someone else, everyone else acts on themselves. The bool result is
// false when a "could not resolve" reply has already been sent.
func (r *Router) targetOrSelf(ctx context.Context, inv *Invocation, ref string) (id, display string, ok bool, err error) {
	e := inv.Event
	if ref == "" || !r.isAdmin(e) {
		return e.AuthorID, e.AuthorDisplay(), true, nil
	}
	subject, rerr := r.resolver.Resolve(ctx, ref, e.GuildID)
	if rerr != nil {
		if errors.Is(rerr, resolver.ErrUnresolved) {
			return "", "", false, inv.Reply(ctx, fmt.Sprintf("Could not resolve user '%s'.", ref))
		}
		return "", "", false, rerr
	}
	return subject.SubjectID(), subject.DisplayName(), true, nil
}

// cmdShowGear displays a gear board: the caller's own, or anyone's for admins.
func (r *Router) cmdShowGear(ctx context.Context, inv *Invocation) error {
	id, display, ok, err := r.targetOrSelf(ctx, inv, inv.Rest(0))
	if !ok || err != nil {
		return err
	}

	record, err := r.loot.GetUser(ctx, id)
	if errors.Is(err, sharedservice.ErrUserNotFound) {
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", display))
	}
	if err != nil {
		return err
	}

	lines := formatGearLines(record.Gear, r.slots)
	return inv.Reply(ctx, fmt.Sprintf("**%s's Gear:**\n%s", display, strings.Join(lines, "\n")))
}

// cmdShowLoot displays both ledgers: the caller's own, or anyone's for admins.
func (r *Router) cmdShowLoot(ctx context.Context, inv *Invocation) error {
	id, display, ok, err := r.targetOrSelf(ctx, inv, inv.Rest(0))
	if !ok || err != nil {
		return err
	}

	record, err := r.loot.GetUser(ctx, id)
	if errors.Is(err, sharedservice.ErrUserNotFound) {
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", display))
	}
	if err != nil {
		return err
	}
	return inv.Reply(ctx, formatLootReport(display, record))
}

// cmdPity shows a pity counter: the caller's own, or anyone's for admins.
func (r *Router) cmdPity(ctx context.Context, inv *Invocation) error {
	id, display, ok, err := r.targetOrSelf(ctx, inv, inv.Rest(0))
	if !ok || err != nil {
		return err
	}

	record, err := r.loot.GetUser(ctx, id)
	if errors.Is(err, sharedservice.ErrUserNotFound) {
		return inv.Reply(ctx, fmt.Sprintf("%s is not registered.", display))
	}
	if err != nil {
		return err
	}

	if id == inv.Event.AuthorID {
		return inv.Reply(ctx, fmt.Sprintf("Your pity level is %d.", record.Pity))
	}
	return inv.Reply(ctx, fmt.Sprintf("%s's pity level is %d.", display, record.Pity))
}

// cmdUserHelp lists the user commands.
func (r *Router) cmdUserHelp(ctx context.Context, inv *Invocation) error {
	p := r.prefix
	help := "**User Commands (DM only):**\n" +
		fmt.Sprintf("`%sregister` - Register yourself and then DM for further commands.\n", p) +
		fmt.Sprintf("`%sset <slot> <item>` - Record an item for a gear slot.\n", p) +
		fmt.Sprintf("`%sedit <slot> <new_item>` - Edit the recorded item for a gear slot.\n", p) +
		fmt.Sprintf("`%sshowgear` - Display your gear.\n", p) +
		fmt.Sprintf("`%sshowloot` - Show your loot.\n", p) +
		fmt.Sprintf("`%spity` - Show your current pity level.\n", p)
	return inv.Reply(ctx, help)
}

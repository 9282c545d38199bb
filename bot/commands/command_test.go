package commands_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ezloot/LOOT-SERVICES/bot/commands"
	"github.com/ezloot/LOOT-SERVICES/bot/gateway"
	"github.com/ezloot/LOOT-SERVICES/bot/resolver"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
	sharedservice "github.com/ezloot/LOOT-SERVICES/shared/service"
)

// fakeLoot is a scriptable LootAPI: tests set only the funcs they exercise.
type fakeLoot struct {
	register       func(id, username string) error
	getUser        func(id string) (*models.UserRecord, error)
	listUsers      func() ([]models.UserRecord, error)
	setItem        func(id, slot, item string) error
	assignLoot     func(id, slot, source string) (string, error)
	removeUser     func(id string) error
	removeLoot     func(id, slot string) (int, error)
	adminIDs       []string
	reloadedAdmins []string
}

func (f *fakeLoot) Register(_ context.Context, id, username string) error {
	if f.register != nil {
		return f.register(id, username)
	}
	return nil
}

func (f *fakeLoot) GetUser(_ context.Context, id string) (*models.UserRecord, error) {
	if f.getUser != nil {
		return f.getUser(id)
	}
	return nil, sharedservice.ErrUserNotFound
}

func (f *fakeLoot) ListUsers(_ context.Context) ([]models.UserRecord, error) {
	if f.listUsers != nil {
		return f.listUsers()
	}
	return nil, nil
}

func (f *fakeLoot) SetItem(_ context.Context, id, slot, item string) error {
	if f.setItem != nil {
		return f.setItem(id, slot, item)
	}
	return nil
}

func (f *fakeLoot) EditItem(_ context.Context, id, slot, item string) error { return nil }

func (f *fakeLoot) AssignLoot(_ context.Context, id, slot, source string) (string, error) {
	if f.assignLoot != nil {
		return f.assignLoot(id, slot, source)
	}
	return "", nil
}

func (f *fakeLoot) AssignBonusLoot(_ context.Context, id, slot, item, source string) (string, error) {
	return models.CanonicalLootEntry(slot, item), nil
}

func (f *fakeLoot) UnlockSlot(_ context.Context, id, slot string) error { return nil }
func (f *fakeLoot) ResetGear(_ context.Context, id, slot string) error  { return nil }

func (f *fakeLoot) RemoveLootForSlot(_ context.Context, id, slot string) (int, error) {
	if f.removeLoot != nil {
		return f.removeLoot(id, slot)
	}
	return 0, nil
}

func (f *fakeLoot) RemoveBonusLootForSlot(_ context.Context, id, slot string) (int, error) {
	return 0, nil
}

func (f *fakeLoot) AddPity(_ context.Context, id string) (int64, error) { return 1, nil }
func (f *fakeLoot) SetPity(_ context.Context, id string, v int64) error { return nil }

func (f *fakeLoot) RemoveUser(_ context.Context, id string) error {
	if f.removeUser != nil {
		return f.removeUser(id)
	}
	return nil
}

func (f *fakeLoot) FindByItemSubstring(_ context.Context, term string) ([]models.GearMatch, error) {
	return nil, nil
}

func (f *fakeLoot) FindByBonusLootSubstring(_ context.Context, term string) ([]models.BonusLootMatch, error) {
	return nil, nil
}

func (f *fakeLoot) GuildTotals(_ context.Context) (*models.GuildTotals, error) {
	return &models.GuildTotals{}, nil
}

func (f *fakeLoot) AdminIDs(_ context.Context) ([]string, error) { return f.adminIDs, nil }

func (f *fakeLoot) ReloadAdmins(_ context.Context) ([]string, error) {
	return f.reloadedAdmins, nil
}

// fakeSender collects outbound messages.
type fakeSender struct {
	sent []string
}

func (f *fakeSender) SendMessage(_ context.Context, channelID, content string) error {
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeSender) last(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no reply was sent")
	}
	return f.sent[len(f.sent)-1]
}

// fakeResolver resolves from a fixed subject table.
type fakeResolver struct {
	subjects map[string]gateway.Subject
}

func (f *fakeResolver) Resolve(_ context.Context, ref, guildID string) (gateway.Subject, error) {
	if s, ok := f.subjects[ref]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("reference %q: %w", ref, resolver.ErrUnresolved)
}

// fakeLog records interaction-log calls.
type fakeLog struct {
	entries []string
}

func (f *fakeLog) Record(_ context.Context, actor, command, details string) error {
	f.entries = append(f.entries, fmt.Sprintf("%s|%s|%s", actor, command, details))
	return nil
}

const prefix = "!ezloot "

var slots = []string{"Head", "Chest", "Ring1"}

func newTestRouter(loot *fakeLoot) (*commands.Router, *fakeSender, *fakeLog) {
	sender := &fakeSender{}
	ilog := &fakeLog{}
	res := &fakeResolver{subjects: map[string]gateway.Subject{
		"bob": &gateway.Member{ID: "200", Username: "bob"},
	}}
	r := commands.NewRouter(prefix, slots, loot, sender, res, ilog)
	r.LoadAdmins(context.Background())
	return r, sender, ilog
}

func dmEvent(authorID, content string) *commands.MessageEvent {
	return &commands.MessageEvent{
		ChannelID:      "dm-1",
		AuthorID:       authorID,
		AuthorUsername: "alice",
		Content:        content,
	}
}

func guildEvent(authorID, content string, isAdmin bool) *commands.MessageEvent {
	return &commands.MessageEvent{
		GuildID:        "g1",
		ChannelID:      "chan-1",
		AuthorID:       authorID,
		AuthorUsername: "alice",
		AuthorIsAdmin:  isAdmin,
		Content:        content,
	}
}

func TestRegisterReplies(t *testing.T) {
	loot := &fakeLoot{}
	r, sender, ilog := newTestRouter(loot)

	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot register", false))
	if got := sender.last(t); !strings.Contains(got, "you have been registered") {
		t.Errorf("reply = %q, want registration confirmation", got)
	}
	if len(ilog.entries) != 1 || !strings.Contains(ilog.entries[0], "|register|") {
		t.Errorf("interaction log = %v, want a register entry", ilog.entries)
	}

	loot.register = func(id, username string) error {
		return fmt.Errorf("user %s: %w", id, sharedservice.ErrAlreadyRegistered)
	}
	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot register", false))
	if got := sender.last(t); !strings.Contains(got, "already registered") {
		t.Errorf("reply = %q, want already-registered notice", got)
	}
}

func TestUserCommandsAreDMOnly(t *testing.T) {
	r, sender, _ := newTestRouter(&fakeLoot{})

	// Guild channel, no admin rights: refused.
	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot set head winwood", false))
	if got := sender.last(t); !strings.Contains(got, "direct messages") {
		t.Errorf("reply = %q, want DM-only notice", got)
	}

	// Same command in a DM goes through.
	sender.sent = nil
	r.HandleMessage(context.Background(), dmEvent("100", "!ezloot set head winwood"))
	if got := sender.last(t); strings.Contains(got, "direct messages") {
		t.Errorf("DM invocation still refused: %q", got)
	}

	// Admins bypass the restriction in guild channels.
	sender.sent = nil
	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot set head winwood", true))
	if got := sender.last(t); strings.Contains(got, "direct messages") {
		t.Errorf("admin invocation refused: %q", got)
	}
}

func TestAdminCommandsSilentlyIgnoredForNonAdmins(t *testing.T) {
	r, sender, _ := newTestRouter(&fakeLoot{})

	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot assignloot bob head", false))
	if len(sender.sent) != 0 {
		t.Errorf("non-admin got a reply to an admin command: %v", sender.sent)
	}
}

func TestConfiguredAdminIDAuthorizes(t *testing.T) {
	loot := &fakeLoot{adminIDs: []string{"100"}}
	loot.assignLoot = func(id, slot, source string) (string, error) {
		return "Head: winwood", nil
	}
	r, sender, _ := newTestRouter(loot)

	// No guild admin flag, but the ID is in the configured set.
	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot assignloot bob head", false))
	if got := sender.last(t); !strings.Contains(got, "Loot assigned to bob") || !strings.Contains(got, "**winwood**") {
		t.Errorf("reply = %q, want loot-assigned confirmation", got)
	}
}

func TestSetItemErrorReplies(t *testing.T) {
	loot := &fakeLoot{}
	r, sender, _ := newTestRouter(loot)
	ctx := context.Background()

	loot.setItem = func(id, slot, item string) error {
		return fmt.Errorf("slot %s: %w", slot, sharedservice.ErrSlotLocked)
	}
	r.HandleMessage(ctx, dmEvent("100", "!ezloot set head winwood"))
	if got := sender.last(t); !strings.Contains(got, "**Head** slot is locked") {
		t.Errorf("reply = %q, want locked-slot notice with normalized slot", got)
	}

	loot.setItem = func(id, slot, item string) error {
		return fmt.Errorf("slot %s: %w", slot, sharedservice.ErrUnknownSlot)
	}
	r.HandleMessage(ctx, dmEvent("100", "!ezloot set tail winwood"))
	if got := sender.last(t); !strings.Contains(got, "not a valid gear slot") || !strings.Contains(got, "Head, Chest, Ring1") {
		t.Errorf("reply = %q, want invalid-slot notice listing slots", got)
	}

	loot.setItem = func(id, slot, item string) error {
		return fmt.Errorf("user %s: %w", id, sharedservice.ErrUserNotFound)
	}
	r.HandleMessage(ctx, dmEvent("100", "!ezloot set head winwood"))
	if got := sender.last(t); !strings.Contains(got, "register first") {
		t.Errorf("reply = %q, want register-first notice", got)
	}
}

func TestAssignLootLogsInteraction(t *testing.T) {
	loot := &fakeLoot{adminIDs: []string{"100"}}
	loot.assignLoot = func(id, slot, source string) (string, error) {
		if id != "200" || slot != "Head" || source != "WB" {
			t.Errorf("AssignLoot(%s, %s, %s), want (200, Head, WB)", id, slot, source)
		}
		return "Head: winwood (obtained from WB)", nil
	}
	r, sender, ilog := newTestRouter(loot)

	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot assignloot bob head WB", false))
	if got := sender.last(t); !strings.Contains(got, "**winwood**") {
		t.Errorf("reply = %q, want the bare item name", got)
	}
	if len(ilog.entries) != 1 || !strings.Contains(ilog.entries[0], "|assignloot|") {
		t.Errorf("interaction log = %v, want an assignloot entry", ilog.entries)
	}
}

func TestRemoveUserProtectsAdmins(t *testing.T) {
	loot := &fakeLoot{adminIDs: []string{"100"}}
	loot.removeUser = func(id string) error {
		return fmt.Errorf("user %s: %w", id, sharedservice.ErrProtectedAdmin)
	}
	r, sender, _ := newTestRouter(loot)

	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot removeuser bob", false))
	if got := sender.last(t); !strings.Contains(got, "Cannot remove an administrator") {
		t.Errorf("reply = %q, want protected-admin notice", got)
	}
}

func TestUnresolvedReferenceReply(t *testing.T) {
	loot := &fakeLoot{adminIDs: []string{"100"}}
	r, sender, _ := newTestRouter(loot)

	r.HandleMessage(context.Background(), guildEvent("100", "!ezloot addpity nobody", false))
	if got := sender.last(t); !strings.Contains(got, "Could not resolve user 'nobody'") {
		t.Errorf("reply = %q, want unresolved notice", got)
	}
}

func TestNonCommandMessagesIgnored(t *testing.T) {
	r, sender, _ := newTestRouter(&fakeLoot{})
	ctx := context.Background()

	r.HandleMessage(ctx, guildEvent("100", "hello there", false))
	r.HandleMessage(ctx, guildEvent("100", "!ezloot notacommand", false))
	r.HandleMessage(ctx, guildEvent("100", "!ezloot", false))
	if len(sender.sent) != 0 {
		t.Errorf("unexpected replies: %v", sender.sent)
	}
}

func TestShowGearRendersLockMarkers(t *testing.T) {
	winwood := "winwood"
	loot := &fakeLoot{}
	loot.getUser = func(id string) (*models.UserRecord, error) {
		return &models.UserRecord{
			ID:       id,
			Username: "alice",
			Gear: map[string]models.GearSlot{
				"Head":  {Item: &winwood, Looted: true},
				"Chest": {Item: nil, Looted: false},
			},
		}, nil
	}
	r, sender, _ := newTestRouter(loot)

	r.HandleMessage(context.Background(), dmEvent("100", "!ezloot showgear"))
	got := sender.last(t)
	if !strings.Contains(got, "🔴 **Head**: ~~winwood~~") {
		t.Errorf("reply = %q, want locked Head with strikethrough", got)
	}
	if !strings.Contains(got, "🟢 **Chest**: Not set") {
		t.Errorf("reply = %q, want unlocked empty Chest", got)
	}
}

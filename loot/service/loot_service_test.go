package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ezloot/LOOT-SERVICES/loot/service"
	"github.com/ezloot/LOOT-SERVICES/loot/store"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
)

// fakeUserStore is an in-memory UserStore with the same semantics the MongoDB
// store relies on: unique IDs, $addToSet-style ledger appends, exact $pull.
type fakeUserStore struct {
	records map[string]*models.UserRecord
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{records: make(map[string]*models.UserRecord)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, record *models.UserRecord) error {
	if _, ok := f.records[record.ID]; ok {
		return fmt.Errorf("user %s: %w", record.ID, store.ErrUserExists)
	}
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *fakeUserStore) get(id string) (*models.UserRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrUserNotFound)
	}
	return record, nil
}

func (f *fakeUserStore) GetUser(_ context.Context, id string) (*models.UserRecord, error) {
	record, err := f.get(id)
	if err != nil {
		return nil, err
	}
	clone := *record
	clone.Gear = make(map[string]models.GearSlot, len(record.Gear))
	for k, v := range record.Gear {
		clone.Gear[k] = v
	}
	clone.Loot = append([]string(nil), record.Loot...)
	clone.BonusLoot = append([]string(nil), record.BonusLoot...)
	return &clone, nil
}

func (f *fakeUserStore) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	var out []models.UserRecord
	for id := range f.records {
		record, err := f.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	return out, nil
}

func (f *fakeUserStore) SetGearSlot(_ context.Context, id, slot string, gs models.GearSlot) error {
	record, err := f.get(id)
	if err != nil {
		return err
	}
	record.Gear[slot] = gs
	return nil
}

func (f *fakeUserStore) SetGearLooted(_ context.Context, id, slot string, looted bool) error {
	record, err := f.get(id)
	if err != nil {
		return err
	}
	gs := record.Gear[slot]
	gs.Looted = looted
	record.Gear[slot] = gs
	return nil
}

func (f *fakeUserStore) AppendLoot(_ context.Context, id, entry string) error {
	record, err := f.get(id)
	if err != nil {
		return err
	}
	record.Loot = addToSet(record.Loot, entry)
	return nil
}

func (f *fakeUserStore) AppendBonusLoot(_ context.Context, id, entry string) error {
	record, err := f.get(id)
	if err != nil {
		return err
	}
	record.BonusLoot = addToSet(record.BonusLoot, entry)
	return nil
}

func (f *fakeUserStore) PullLoot(_ context.Context, id string, entries []string) error {
	record, err := f.get(id)
	if err != nil {
		return err
	}
	record.Loot = pull(record.Loot, entries)
	return nil
}

func (f *fakeUserStore) PullBonusLoot(_ context.Context, id string, entries []string) error {
	record, err := f.get(id)
	if err != nil {
		return err
	}
	record.BonusLoot = pull(record.BonusLoot, entries)
	return nil
}

func (f *fakeUserStore) IncrementPity(_ context.Context, id string) (int64, error) {
	record, err := f.get(id)
	if err != nil {
		return 0, err
	}
	record.Pity++
	return record.Pity, nil
}

func (f *fakeUserStore) SetPity(_ context.Context, id string, value int64) error {
	record, err := f.get(id)
	if err != nil {
		return err
	}
	record.Pity = value
	return nil
}

func (f *fakeUserStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := f.records[id]; !ok {
		return fmt.Errorf("user %s: %w", id, store.ErrUserNotFound)
	}
	delete(f.records, id)
	return nil
}

func (f *fakeUserStore) AggregateLedgerCounts(_ context.Context) (int64, int64, int64, error) {
	var users, lootCount, bonusLootCount int64
	for _, record := range f.records {
		users++
		lootCount += int64(len(record.Loot))
		bonusLootCount += int64(len(record.BonusLoot))
	}
	return users, lootCount, bonusLootCount, nil
}

func (f *fakeUserStore) AggregateLootEntryCounts(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, record := range f.records {
		for _, entry := range record.Loot {
			counts[entry]++
		}
	}
	return counts, nil
}

func addToSet(ledger []string, entry string) []string {
	for _, e := range ledger {
		if e == entry {
			return ledger
		}
	}
	return append(ledger, entry)
}

func pull(ledger, entries []string) []string {
	drop := make(map[string]bool, len(entries))
	for _, e := range entries {
		drop[e] = true
	}
	var out []string
	for _, e := range ledger {
		if !drop[e] {
			out = append(out, e)
		}
	}
	return out
}

// fakeAdminStore serves a fixed, swappable admin ID set.
type fakeAdminStore struct {
	ids []string
}

func (f *fakeAdminStore) GetAdminIDs(_ context.Context) ([]string, error) {
	return f.ids, nil
}

var testSlots = []string{"Head", "Chest", "Ring1", "Ring2"}

func newTestService(t *testing.T) (*service.LootService, *fakeUserStore, *fakeAdminStore) {
	t.Helper()
	users := newFakeUserStore()
	admins := &fakeAdminStore{}
	ls, err := service.NewLootService(context.Background(), users, admins, testSlots)
	if err != nil {
		t.Fatalf("NewLootService: %v", err)
	}
	return ls, users, admins
}

func mustRegister(t *testing.T, ls *service.LootService, id, username string) {
	t.Helper()
	if err := ls.Register(context.Background(), id, username); err != nil {
		t.Fatalf("Register(%s): %v", id, err)
	}
}

func TestRegisterCreatesEmptyRecord(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()

	mustRegister(t, ls, "100", "alice")

	record, err := ls.GetUser(ctx, "100")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if record.Username != "alice" {
		t.Errorf("Username = %q, want %q", record.Username, "alice")
	}
	if len(record.Gear) != len(testSlots) {
		t.Errorf("got %d gear slots, want %d", len(record.Gear), len(testSlots))
	}
	for slot, gs := range record.Gear {
		if gs.Item != nil || gs.Looted {
			t.Errorf("slot %s not empty and unlocked: %+v", slot, gs)
		}
	}
	if len(record.Loot) != 0 || len(record.BonusLoot) != 0 || record.Pity != 0 {
		t.Errorf("ledgers/pity not empty: %+v", record)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()

	mustRegister(t, ls, "100", "alice")
	err := ls.Register(ctx, "100", "alice2")
	if !errors.Is(err, service.ErrAlreadyRegistered) {
		t.Fatalf("duplicate Register error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestSetItemLifecycle(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	// Slot names normalize, item names lowercase.
	if err := ls.SetItem(ctx, "100", "head", "  Winwood Crown "); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	record, _ := ls.GetUser(ctx, "100")
	if got := record.Gear["Head"].Item; got == nil || *got != "winwood crown" {
		t.Fatalf("Head item = %v, want %q", got, "winwood crown")
	}

	// Setting a set slot fails; editing it succeeds.
	if err := ls.SetItem(ctx, "100", "Head", "other"); !errors.Is(err, service.ErrSlotAlreadySet) {
		t.Errorf("SetItem on set slot = %v, want ErrSlotAlreadySet", err)
	}
	if err := ls.EditItem(ctx, "100", "Head", "Ember Crown"); err != nil {
		t.Fatalf("EditItem: %v", err)
	}
	record, _ = ls.GetUser(ctx, "100")
	if got := *record.Gear["Head"].Item; got != "ember crown" {
		t.Errorf("Head item after edit = %q, want %q", got, "ember crown")
	}

	// Editing an empty slot fails.
	if err := ls.EditItem(ctx, "100", "Chest", "plate"); !errors.Is(err, service.ErrSlotEmpty) {
		t.Errorf("EditItem on empty slot = %v, want ErrSlotEmpty", err)
	}
}

func TestSetItemUnknownSlot(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	if err := ls.SetItem(ctx, "100", "Tail", "thing"); !errors.Is(err, service.ErrUnknownSlot) {
		t.Errorf("SetItem unknown slot = %v, want ErrUnknownSlot", err)
	}
}

func TestSetItemUserNotFound(t *testing.T) {
	ls, _, _ := newTestService(t)
	if err := ls.SetItem(context.Background(), "999", "Head", "thing"); !errors.Is(err, service.ErrUserNotFound) {
		t.Errorf("SetItem unregistered user = %v, want ErrUserNotFound", err)
	}
}

func TestAssignLootLocksAndAppends(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	if err := ls.SetItem(ctx, "100", "Head", "winwood"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	entry, err := ls.AssignLoot(ctx, "100", "head", "")
	if err != nil {
		t.Fatalf("AssignLoot: %v", err)
	}
	if entry != "Head: winwood" {
		t.Errorf("entry = %q, want %q", entry, "Head: winwood")
	}

	record, _ := ls.GetUser(ctx, "100")
	if !record.Gear["Head"].Looted {
		t.Error("slot not locked after award")
	}
	if len(record.Loot) != 1 || record.Loot[0] != "Head: winwood" {
		t.Errorf("loot ledger = %v, want [Head: winwood]", record.Loot)
	}

	// Locked slot rejects everything but unlock/reset.
	if _, err := ls.AssignLoot(ctx, "100", "Head", ""); !errors.Is(err, service.ErrAlreadyAwarded) {
		t.Errorf("second AssignLoot = %v, want ErrAlreadyAwarded", err)
	}
	if err := ls.SetItem(ctx, "100", "Head", "other"); !errors.Is(err, service.ErrSlotLocked) {
		t.Errorf("SetItem on locked slot = %v, want ErrSlotLocked", err)
	}
	if err := ls.EditItem(ctx, "100", "Head", "other"); !errors.Is(err, service.ErrSlotLocked) {
		t.Errorf("EditItem on locked slot = %v, want ErrSlotLocked", err)
	}
}

func TestAssignLootWithSource(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	if err := ls.SetItem(ctx, "100", "Chest", "plate"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	entry, err := ls.AssignLoot(ctx, "100", "Chest", "world boss")
	if err != nil {
		t.Fatalf("AssignLoot: %v", err)
	}
	want := "Chest: plate (obtained from world boss)"
	if entry != want {
		t.Errorf("entry = %q, want %q", entry, want)
	}
}

func TestAssignLootItemNotSet(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	if _, err := ls.AssignLoot(ctx, "100", "Head", ""); !errors.Is(err, service.ErrItemNotSet) {
		t.Errorf("AssignLoot empty slot = %v, want ErrItemNotSet", err)
	}
}

func TestUnlockLeavesLedgerUntouched(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	ls.SetItem(ctx, "100", "Head", "winwood")
	if _, err := ls.AssignLoot(ctx, "100", "Head", ""); err != nil {
		t.Fatalf("AssignLoot: %v", err)
	}
	if err := ls.UnlockSlot(ctx, "100", "Head"); err != nil {
		t.Fatalf("UnlockSlot: %v", err)
	}

	record, _ := ls.GetUser(ctx, "100")
	gs := record.Gear["Head"]
	if gs.Looted {
		t.Error("slot still locked after unlock")
	}
	if gs.Item == nil || *gs.Item != "winwood" {
		t.Errorf("declared item lost on unlock: %v", gs.Item)
	}
	if len(record.Loot) != 1 {
		t.Errorf("ledger changed by unlock: %v", record.Loot)
	}

	// Re-awarding the identical entry is absorbed by set semantics; only a
	// differing provenance suffix produces a second entry.
	if _, err := ls.AssignLoot(ctx, "100", "Head", ""); err != nil {
		t.Fatalf("re-award: %v", err)
	}
	record, _ = ls.GetUser(ctx, "100")
	if len(record.Loot) != 1 {
		t.Errorf("identical re-award duplicated ledger: %v", record.Loot)
	}

	ls.UnlockSlot(ctx, "100", "Head")
	if _, err := ls.AssignLoot(ctx, "100", "Head", "raid"); err != nil {
		t.Fatalf("re-award with source: %v", err)
	}
	record, _ = ls.GetUser(ctx, "100")
	if len(record.Loot) != 2 {
		t.Errorf("sourced re-award not appended: %v", record.Loot)
	}
}

func TestResetGearClearsSlot(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	ls.SetItem(ctx, "100", "Head", "winwood")
	ls.AssignLoot(ctx, "100", "Head", "")
	if err := ls.ResetGear(ctx, "100", "Head"); err != nil {
		t.Fatalf("ResetGear: %v", err)
	}

	record, _ := ls.GetUser(ctx, "100")
	gs := record.Gear["Head"]
	if gs.Item != nil || gs.Looted {
		t.Errorf("slot not cleared by reset: %+v", gs)
	}
	if len(record.Loot) != 1 {
		t.Errorf("reset touched the ledger: %v", record.Loot)
	}
}

func TestRemoveLootForSlot(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	ls.SetItem(ctx, "100", "Ring1", "band of embers")
	ls.AssignLoot(ctx, "100", "Ring1", "")
	ls.SetItem(ctx, "100", "Ring2", "band of frost")
	ls.AssignLoot(ctx, "100", "Ring2", "")

	removed, err := ls.RemoveLootForSlot(ctx, "100", "ring1")
	if err != nil {
		t.Fatalf("RemoveLootForSlot: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	record, _ := ls.GetUser(ctx, "100")
	if len(record.Loot) != 1 || record.Loot[0] != "Ring2: band of frost" {
		t.Errorf("loot ledger = %v, want only the Ring2 entry", record.Loot)
	}

	// Zero removals is a success, not an error.
	removed, err = ls.RemoveLootForSlot(ctx, "100", "Head")
	if err != nil || removed != 0 {
		t.Errorf("RemoveLootForSlot empty slot = (%d, %v), want (0, nil)", removed, err)
	}
}

func TestBonusLootRoundTrip(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	entry, err := ls.AssignBonusLoot(ctx, "100", "head", "Spare Crown", "chest run")
	if err != nil {
		t.Fatalf("AssignBonusLoot: %v", err)
	}
	want := "Head: spare crown (obtained from chest run)"
	if entry != want {
		t.Errorf("entry = %q, want %q", entry, want)
	}

	// Bonus awards never touch the gear slot.
	record, _ := ls.GetUser(ctx, "100")
	if gs := record.Gear["Head"]; gs.Item != nil || gs.Looted {
		t.Errorf("bonus award touched gear slot: %+v", gs)
	}

	removed, err := ls.RemoveBonusLootForSlot(ctx, "100", "Head")
	if err != nil || removed != 1 {
		t.Fatalf("RemoveBonusLootForSlot = (%d, %v), want (1, nil)", removed, err)
	}
	record, _ = ls.GetUser(ctx, "100")
	if len(record.BonusLoot) != 0 {
		t.Errorf("bonus ledger not emptied: %v", record.BonusLoot)
	}
}

func TestPityCounters(t *testing.T) {
	ls, _, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, ls, "100", "alice")

	for want := int64(1); want <= 3; want++ {
		pity, err := ls.AddPity(ctx, "100")
		if err != nil {
			t.Fatalf("AddPity: %v", err)
		}
		if pity != want {
			t.Errorf("pity = %d, want %d", pity, want)
		}
	}

	if err := ls.SetPity(ctx, "100", 10); err != nil {
		t.Fatalf("SetPity: %v", err)
	}
	record, _ := ls.GetUser(ctx, "100")
	if record.Pity != 10 {
		t.Errorf("pity = %d, want 10", record.Pity)
	}
}

func TestRemoveUserProtectsAdmins(t *testing.T) {
	users := newFakeUserStore()
	admins := &fakeAdminStore{ids: []string{"42"}}
	ls, err := service.NewLootService(context.Background(), users, admins, testSlots)
	if err != nil {
		t.Fatalf("NewLootService: %v", err)
	}
	ctx := context.Background()
	mustRegister(t, ls, "42", "boss")
	mustRegister(t, ls, "100", "alice")

	if err := ls.RemoveUser(ctx, "42"); !errors.Is(err, service.ErrProtectedAdmin) {
		t.Errorf("RemoveUser admin = %v, want ErrProtectedAdmin", err)
	}
	if err := ls.RemoveUser(ctx, "100"); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if _, err := ls.GetUser(ctx, "100"); !errors.Is(err, service.ErrUserNotFound) {
		t.Errorf("removed user still present: %v", err)
	}
	if err := ls.RemoveUser(ctx, "999"); !errors.Is(err, service.ErrUserNotFound) {
		t.Errorf("RemoveUser unknown = %v, want ErrUserNotFound", err)
	}
}

func TestReloadAdmins(t *testing.T) {
	ls, _, admins := newTestService(t)
	ctx := context.Background()

	if ls.IsAdmin("42") {
		t.Fatal("unexpected admin before reload")
	}
	admins.ids = []string{"42"}
	ids, err := ls.ReloadAdmins(ctx)
	if err != nil {
		t.Fatalf("ReloadAdmins: %v", err)
	}
	if len(ids) != 1 || ids[0] != "42" {
		t.Errorf("reloaded ids = %v, want [42]", ids)
	}
	if !ls.IsAdmin("42") {
		t.Error("admin not recognized after reload")
	}
}

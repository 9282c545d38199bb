// loot/service/loot_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ezloot/LOOT-SERVICES/loot/store"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
)

// Sentinel errors for the gear/loot state machine. The API handler maps each
// of these to an HTTP status plus a machine-readable code.
var (
	ErrUserNotFound      = errors.New("user is not registered")
	ErrAlreadyRegistered = errors.New("user is already registered")
	ErrUnknownSlot       = errors.New("unknown gear slot")
	ErrSlotLocked        = errors.New("gear slot is locked")
	ErrSlotAlreadySet    = errors.New("gear slot already has an item")
	ErrSlotEmpty         = errors.New("gear slot is empty")
	ErrItemNotSet        = errors.New("no item declared for slot")
	ErrAlreadyAwarded    = errors.New("slot was already awarded")
	ErrProtectedAdmin    = errors.New("cannot remove a protected admin")
)

// UserStore is the persistence surface the loot service needs. *store.UserStore
// satisfies it; tests use an in-memory fake.
type UserStore interface {
	CreateUser(ctx context.Context, record *models.UserRecord) error
	GetUser(ctx context.Context, id string) (*models.UserRecord, error)
	ListUsers(ctx context.Context) ([]models.UserRecord, error)
	SetGearSlot(ctx context.Context, id, slot string, gs models.GearSlot) error
	SetGearLooted(ctx context.Context, id, slot string, looted bool) error
	AppendLoot(ctx context.Context, id, entry string) error
	AppendBonusLoot(ctx context.Context, id, entry string) error
	PullLoot(ctx context.Context, id string, entries []string) error
	PullBonusLoot(ctx context.Context, id string, entries []string) error
	IncrementPity(ctx context.Context, id string) (int64, error)
	SetPity(ctx context.Context, id string, value int64) error
	DeleteUser(ctx context.Context, id string) error
	AggregateLedgerCounts(ctx context.Context) (users, lootCount, bonusLootCount int64, err error)
	AggregateLootEntryCounts(ctx context.Context) (map[string]int64, error)
}

// AdminStore is the config surface for the admin ID set.
type AdminStore interface {
	GetAdminIDs(ctx context.Context) ([]string, error)
}

// LootService implements the gear/loot state machine on top of the stores.
//
// Slot lifecycle per user: Empty -> Set (item declared) -> Locked (awarded).
// Unlock clears only the lock; Reset clears the whole slot. The loot and
// bonus-loot ledgers are append-only except for explicit per-slot removal.
type LootService struct {
	users    UserStore
	admins   AdminStore
	slots    []string // configured slot set, normalized, in display order
	slotSet  map[string]struct{}
	adminMux sync.RWMutex // protects adminIDs
	adminIDs map[string]struct{}
}

// NewLootService creates a LootService for the configured slot set and loads
// the admin ID set once. Slot names are normalized so lookups and stored
// field paths always agree.
func NewLootService(ctx context.Context, users UserStore, admins AdminStore, slots []string) (*LootService, error) {
	normalized := make([]string, 0, len(slots))
	slotSet := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		n := models.NormalizeSlot(s)
		if _, dup := slotSet[n]; dup || n == "" {
			continue
		}
		normalized = append(normalized, n)
		slotSet[n] = struct{}{}
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("no valid gear slots configured")
	}

	ls := &LootService{
		users:    users,
		admins:   admins,
		slots:    normalized,
		slotSet:  slotSet,
		adminIDs: make(map[string]struct{}),
	}
	if _, err := ls.ReloadAdmins(ctx); err != nil {
		return nil, fmt.Errorf("failed to load admin IDs: %w", err)
	}
	return ls, nil
}

// Slots returns the configured slot set in display order.
func (ls *LootService) Slots() []string {
	return ls.slots
}

// validateSlot normalizes a slot name and checks it against the configured set.
func (ls *LootService) validateSlot(slot string) (string, error) {
	n := models.NormalizeSlot(slot)
	if _, ok := ls.slotSet[n]; !ok {
		return "", fmt.Errorf("slot %q: %w", slot, ErrUnknownSlot)
	}
	return n, nil
}

// Register creates a fresh loot record for a user. Registration is atomic:
// the unique _id index decides the winner between concurrent registrations.
func (ls *LootService) Register(ctx context.Context, id, username string) error {
	record := models.NewUserRecord(id, username, ls.slots)
	if err := ls.users.CreateUser(ctx, record); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return fmt.Errorf("user %s: %w", id, ErrAlreadyRegistered)
		}
		return err
	}
	log.Printf("INFO: Registered user %s (%s)", id, username)
	return nil
}

// GetUser fetches a user's full record.
func (ls *LootService) GetUser(ctx context.Context, id string) (*models.UserRecord, error) {
	record, err := ls.users.GetUser(ctx, id)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return record, nil
}

// ListUsers fetches every registered record.
func (ls *LootService) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	return ls.users.ListUsers(ctx)
}

// SetItem declares the wanted item for a slot. Only valid when the slot is
// unlocked and empty.
func (ls *LootService) SetItem(ctx context.Context, id, slot, item string) error {
	slot, err := ls.validateSlot(slot)
	if err != nil {
		return err
	}
	record, err := ls.users.GetUser(ctx, id)
	if err != nil {
		return mapUserErr(err)
	}
	gs := record.Gear[slot]
	if gs.Looted {
		return fmt.Errorf("slot %s: %w", slot, ErrSlotLocked)
	}
	if gs.Item != nil {
		return fmt.Errorf("slot %s: %w", slot, ErrSlotAlreadySet)
	}
	normalized := models.NormalizeItem(item)
	return mapUserErr(ls.users.SetGearSlot(ctx, id, slot, models.GearSlot{Item: &normalized, Looted: false}))
}

// EditItem replaces the declared item on a slot. Only valid when the slot is
// unlocked and already set.
func (ls *LootService) EditItem(ctx context.Context, id, slot, item string) error {
	slot, err := ls.validateSlot(slot)
	if err != nil {
		return err
	}
	record, err := ls.users.GetUser(ctx, id)
	if err != nil {
		return mapUserErr(err)
	}
	gs := record.Gear[slot]
	if gs.Looted {
		return fmt.Errorf("slot %s: %w", slot, ErrSlotLocked)
	}
	if gs.Item == nil {
		return fmt.Errorf("slot %s: %w", slot, ErrSlotEmpty)
	}
	normalized := models.NormalizeItem(item)
	return mapUserErr(ls.users.SetGearSlot(ctx, id, slot, models.GearSlot{Item: &normalized, Looted: false}))
}

// AssignLoot awards the declared item for a slot: the slot is locked first,
// then the canonical entry is appended to the loot ledger. The ordering means
// a crash between the two writes leaves a locked slot with no ledger entry,
// never a double award.
func (ls *LootService) AssignLoot(ctx context.Context, id, slot, source string) (string, error) {
	slot, err := ls.validateSlot(slot)
	if err != nil {
		return "", err
	}
	record, err := ls.users.GetUser(ctx, id)
	if err != nil {
		return "", mapUserErr(err)
	}
	gs := record.Gear[slot]
	if gs.Item == nil {
		return "", fmt.Errorf("slot %s: %w", slot, ErrItemNotSet)
	}
	if gs.Looted {
		return "", fmt.Errorf("slot %s: %w", slot, ErrAlreadyAwarded)
	}

	if err := ls.users.SetGearLooted(ctx, id, slot, true); err != nil {
		return "", mapUserErr(err)
	}

	entry := models.CanonicalLootEntry(slot, *gs.Item)
	if source != "" {
		entry = models.WithSource(entry, source)
	}
	if err := ls.users.AppendLoot(ctx, id, entry); err != nil {
		return "", mapUserErr(err)
	}
	log.Printf("INFO: Awarded %q to user %s", entry, id)
	return entry, nil
}

// AssignBonusLoot records an off-list drop in the bonus ledger. Bonus awards
// never touch gear slots or locks, and the slot only needs to be a valid name.
func (ls *LootService) AssignBonusLoot(ctx context.Context, id, slot, item, source string) (string, error) {
	slot, err := ls.validateSlot(slot)
	if err != nil {
		return "", err
	}
	entry := models.CanonicalLootEntry(slot, item)
	if source != "" {
		entry = models.WithSource(entry, source)
	}
	if err := ls.users.AppendBonusLoot(ctx, id, entry); err != nil {
		return "", mapUserErr(err)
	}
	log.Printf("INFO: Recorded bonus loot %q for user %s", entry, id)
	return entry, nil
}

// UnlockSlot clears a slot's lock, making the declared item awardable again.
// The loot ledger is deliberately left untouched.
func (ls *LootService) UnlockSlot(ctx context.Context, id, slot string) error {
	slot, err := ls.validateSlot(slot)
	if err != nil {
		return err
	}
	return mapUserErr(ls.users.SetGearLooted(ctx, id, slot, false))
}

// ResetGear clears a slot back to empty and unlocked.
func (ls *LootService) ResetGear(ctx context.Context, id, slot string) error {
	slot, err := ls.validateSlot(slot)
	if err != nil {
		return err
	}
	return mapUserErr(ls.users.SetGearSlot(ctx, id, slot, models.GearSlot{Item: nil, Looted: false}))
}

// RemoveLootForSlot deletes every loot-ledger entry belonging to a slot and
// returns how many were removed. Zero removals is a success.
func (ls *LootService) RemoveLootForSlot(ctx context.Context, id, slot string) (int, error) {
	slot, err := ls.validateSlot(slot)
	if err != nil {
		return 0, err
	}
	record, err := ls.users.GetUser(ctx, id)
	if err != nil {
		return 0, mapUserErr(err)
	}
	entries := entriesForSlot(record.Loot, slot)
	if len(entries) == 0 {
		return 0, nil
	}
	if err := ls.users.PullLoot(ctx, id, entries); err != nil {
		return 0, mapUserErr(err)
	}
	return len(entries), nil
}

// RemoveBonusLootForSlot deletes every bonus-ledger entry belonging to a slot.
func (ls *LootService) RemoveBonusLootForSlot(ctx context.Context, id, slot string) (int, error) {
	slot, err := ls.validateSlot(slot)
	if err != nil {
		return 0, err
	}
	record, err := ls.users.GetUser(ctx, id)
	if err != nil {
		return 0, mapUserErr(err)
	}
	entries := entriesForSlot(record.BonusLoot, slot)
	if len(entries) == 0 {
		return 0, nil
	}
	if err := ls.users.PullBonusLoot(ctx, id, entries); err != nil {
		return 0, mapUserErr(err)
	}
	return len(entries), nil
}

// AddPity increments a user's pity counter and returns the new value.
func (ls *LootService) AddPity(ctx context.Context, id string) (int64, error) {
	pity, err := ls.users.IncrementPity(ctx, id)
	if err != nil {
		return 0, mapUserErr(err)
	}
	return pity, nil
}

// SetPity overwrites a user's pity counter.
func (ls *LootService) SetPity(ctx context.Context, id string, value int64) error {
	return mapUserErr(ls.users.SetPity(ctx, id, value))
}

// RemoveUser deletes a user's record entirely. Records belonging to the
// configured admin set are protected and cannot be removed.
func (ls *LootService) RemoveUser(ctx context.Context, id string) error {
	if ls.IsAdmin(id) {
		return fmt.Errorf("user %s: %w", id, ErrProtectedAdmin)
	}
	if err := ls.users.DeleteUser(ctx, id); err != nil {
		return mapUserErr(err)
	}
	log.Printf("INFO: Removed user %s", id)
	return nil
}

// AdminIDs returns the currently loaded admin ID set.
func (ls *LootService) AdminIDs() []string {
	ls.adminMux.RLock()
	defer ls.adminMux.RUnlock()
	ids := make([]string, 0, len(ls.adminIDs))
	for id := range ls.adminIDs {
		ids = append(ids, id)
	}
	return ids
}

// IsAdmin reports whether an ID is in the loaded admin set.
func (ls *LootService) IsAdmin(id string) bool {
	ls.adminMux.RLock()
	defer ls.adminMux.RUnlock()
	_, ok := ls.adminIDs[id]
	return ok
}

// ReloadAdmins re-reads the admin ID set from the config store and swaps it in.
func (ls *LootService) ReloadAdmins(ctx context.Context) ([]string, error) {
	ids, err := ls.admins.GetAdminIDs(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	ls.adminMux.Lock()
	ls.adminIDs = set
	ls.adminMux.Unlock()
	log.Printf("INFO: Loaded %d admin IDs", len(ids))
	return ids, nil
}

// entriesForSlot selects the ledger entries belonging to a slot. The match
// includes the ": " delimiter, so "Head" never selects "Headgear: ..." entries.
func entriesForSlot(ledger []string, slot string) []string {
	var entries []string
	for _, entry := range ledger {
		if models.HasSlotPrefix(entry, slot) {
			entries = append(entries, entry)
		}
	}
	return entries
}

// mapUserErr translates store-level not-found errors into the service's
// sentinel, passing everything else through.
func mapUserErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrUserNotFound) {
		return fmt.Errorf("%w: %w", ErrUserNotFound, err)
	}
	return err
}

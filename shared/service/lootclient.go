// shared/service/lootclient.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ezloot/LOOT-SERVICES/shared/api"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
)

// Machine-readable error codes carried in the "details" field of loot-service
// error responses. The handler writes them, this client translates them back.
const (
	CodeUserNotFound      = "user_not_found"
	CodeAlreadyRegistered = "already_registered"
	CodeUnknownSlot       = "unknown_slot"
	CodeSlotLocked        = "slot_locked"
	CodeSlotAlreadySet    = "slot_already_set"
	CodeSlotEmpty         = "slot_empty"
	CodeItemNotSet        = "item_not_set"
	CodeAlreadyAwarded    = "already_awarded"
	CodeProtectedAdmin    = "protected_admin"
)

// Sentinel errors surfaced by LootClient. Use errors.Is for checking.
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

// LootClient provides methods for the bot-service to interact with the
// Loot Service's RESTful API.
type LootClient struct {
	apiClient *api.Client
}

// NewLootClient creates a new client for the Loot Service.
// baseURL should be the base URL of the loot-service (e.g., "http://loot-service:8081").
func NewLootClient(baseURL string) *LootClient {
	return &LootClient{
		apiClient: api.NewClient(baseURL, api.NewDefaultHTTPClient()),
	}
}

// RegisterUserRequest is the expected JSON body for registering a user.
type RegisterUserRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ItemRequest is the expected JSON body for declaring or editing a slot item.
type ItemRequest struct {
	Item string `json:"item"`
}

// AwardRequest is the expected JSON body for awarding a declared item.
// Source is optional provenance ("" means no annotation).
type AwardRequest struct {
	Source string `json:"source,omitempty"`
}

// BonusLootRequest is the expected JSON body for recording bonus loot.
type BonusLootRequest struct {
	Slot   string `json:"slot"`
	Item   string `json:"item"`
	Source string `json:"source,omitempty"`
}

// EntryResponse carries the canonical ledger entry an award produced.
type EntryResponse struct {
	Entry string `json:"entry"`
}

// RemovedResponse carries the number of ledger entries a removal deleted.
type RemovedResponse struct {
	Removed int `json:"removed"`
}

// PityResponse carries a user's pity counter after a pity operation.
type PityResponse struct {
	Pity int64 `json:"pity"`
}

// SetPityRequest is the expected JSON body for overwriting a pity counter.
type SetPityRequest struct {
	Pity int64 `json:"pity"`
}

// AdminIDsResponse carries the configured admin ID set.
type AdminIDsResponse struct {
	IDs []string `json:"ids"`
}

// Register creates a loot record for a new user.
// Returns ErrAlreadyRegistered if the ID is already present.
func (lc *LootClient) Register(ctx context.Context, id, username string) error {
	payload := RegisterUserRequest{ID: id, Username: username}
	err := lc.apiClient.Post(ctx, "/users", payload, nil)
	return translateLootError(err, "register user")
}

// GetUser fetches a user's full loot record.
func (lc *LootClient) GetUser(ctx context.Context, id string) (*models.UserRecord, error) {
	var record models.UserRecord
	if err := lc.apiClient.Get(ctx, fmt.Sprintf("/users/%s", id), &record); err != nil {
		return nil, translateLootError(err, "get user")
	}
	return &record, nil
}

// ListUsers fetches every registered user record.
func (lc *LootClient) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	var records []models.UserRecord
	if err := lc.apiClient.Get(ctx, "/users", &records); err != nil {
		return nil, translateLootError(err, "list users")
	}
	return records, nil
}

// SetItem declares the wanted item for an empty, unlocked slot.
func (lc *LootClient) SetItem(ctx context.Context, id, slot, item string) error {
	err := lc.apiClient.Post(ctx, fmt.Sprintf("/users/%s/gear/%s", id, url.PathEscape(slot)), ItemRequest{Item: item}, nil)
	return translateLootError(err, "set item")
}

// EditItem replaces the declared item on a set, unlocked slot.
func (lc *LootClient) EditItem(ctx context.Context, id, slot, item string) error {
	err := lc.apiClient.Put(ctx, fmt.Sprintf("/users/%s/gear/%s", id, url.PathEscape(slot)), ItemRequest{Item: item}, nil)
	return translateLootError(err, "edit item")
}

// AssignLoot awards the declared item for a slot, locking the slot and
// appending the canonical entry to the loot ledger.
func (lc *LootClient) AssignLoot(ctx context.Context, id, slot, source string) (string, error) {
	var resp EntryResponse
	err := lc.apiClient.Post(ctx, fmt.Sprintf("/users/%s/gear/%s/award", id, url.PathEscape(slot)), AwardRequest{Source: source}, &resp)
	if err != nil {
		return "", translateLootError(err, "assign loot")
	}
	return resp.Entry, nil
}

// AssignBonusLoot records an off-list drop in the bonus ledger. Bonus awards
// never touch gear slots or locks.
func (lc *LootClient) AssignBonusLoot(ctx context.Context, id, slot, item, source string) (string, error) {
	var resp EntryResponse
	err := lc.apiClient.Post(ctx, fmt.Sprintf("/users/%s/bonusloot", id), BonusLootRequest{Slot: slot, Item: item, Source: source}, &resp)
	if err != nil {
		return "", translateLootError(err, "assign bonus loot")
	}
	return resp.Entry, nil
}

// UnlockSlot clears a slot's lock so the item can be declared again.
// The loot ledger is left untouched.
func (lc *LootClient) UnlockSlot(ctx context.Context, id, slot string) error {
	err := lc.apiClient.Post(ctx, fmt.Sprintf("/users/%s/gear/%s/unlock", id, url.PathEscape(slot)), nil, nil)
	return translateLootError(err, "unlock slot")
}

// ResetGear clears a slot back to empty and unlocked.
func (lc *LootClient) ResetGear(ctx context.Context, id, slot string) error {
	err := lc.apiClient.Delete(ctx, fmt.Sprintf("/users/%s/gear/%s", id, url.PathEscape(slot)), nil)
	return translateLootError(err, "reset gear")
}

// RemoveLootForSlot deletes every loot-ledger entry recorded for a slot and
// reports how many were removed (possibly zero).
func (lc *LootClient) RemoveLootForSlot(ctx context.Context, id, slot string) (int, error) {
	var resp RemovedResponse
	err := lc.apiClient.Delete(ctx, fmt.Sprintf("/users/%s/loot/%s", id, url.PathEscape(slot)), &resp)
	if err != nil {
		return 0, translateLootError(err, "remove loot")
	}
	return resp.Removed, nil
}

// RemoveBonusLootForSlot deletes every bonus-ledger entry recorded for a slot.
func (lc *LootClient) RemoveBonusLootForSlot(ctx context.Context, id, slot string) (int, error) {
	var resp RemovedResponse
	err := lc.apiClient.Delete(ctx, fmt.Sprintf("/users/%s/bonusloot/%s", id, url.PathEscape(slot)), &resp)
	if err != nil {
		return 0, translateLootError(err, "remove bonus loot")
	}
	return resp.Removed, nil
}

// AddPity increments a user's pity counter and returns the new value.
func (lc *LootClient) AddPity(ctx context.Context, id string) (int64, error) {
	var resp PityResponse
	err := lc.apiClient.Post(ctx, fmt.Sprintf("/users/%s/pity/increment", id), nil, &resp)
	if err != nil {
		return 0, translateLootError(err, "add pity")
	}
	return resp.Pity, nil
}

// SetPity overwrites a user's pity counter.
func (lc *LootClient) SetPity(ctx context.Context, id string, value int64) error {
	err := lc.apiClient.Put(ctx, fmt.Sprintf("/users/%s/pity", id), SetPityRequest{Pity: value}, nil)
	return translateLootError(err, "set pity")
}

// RemoveUser deletes a user's record entirely.
// Returns ErrProtectedAdmin if the ID is in the configured admin set.
func (lc *LootClient) RemoveUser(ctx context.Context, id string) error {
	err := lc.apiClient.Delete(ctx, fmt.Sprintf("/users/%s", id), nil)
	return translateLootError(err, "remove user")
}

// FindByItemSubstring searches every declared gear item for a term.
func (lc *LootClient) FindByItemSubstring(ctx context.Context, term string) ([]models.GearMatch, error) {
	var matches []models.GearMatch
	path := fmt.Sprintf("/search/gear?item=%s", url.QueryEscape(term))
	if err := lc.apiClient.Get(ctx, path, &matches); err != nil {
		return nil, translateLootError(err, "find by item")
	}
	return matches, nil
}

// FindByBonusLootSubstring searches every bonus-ledger entry for a term.
func (lc *LootClient) FindByBonusLootSubstring(ctx context.Context, term string) ([]models.BonusLootMatch, error) {
	var matches []models.BonusLootMatch
	path := fmt.Sprintf("/search/bonusloot?item=%s", url.QueryEscape(term))
	if err := lc.apiClient.Get(ctx, path, &matches); err != nil {
		return nil, translateLootError(err, "find by bonus loot")
	}
	return matches, nil
}

// GuildTotals fetches the aggregate award report across all users.
func (lc *LootClient) GuildTotals(ctx context.Context) (*models.GuildTotals, error) {
	var totals models.GuildTotals
	if err := lc.apiClient.Get(ctx, "/reports/guild-totals", &totals); err != nil {
		return nil, translateLootError(err, "guild totals")
	}
	return &totals, nil
}

// AdminIDs fetches the currently loaded admin ID set.
func (lc *LootClient) AdminIDs(ctx context.Context) ([]string, error) {
	var resp AdminIDsResponse
	if err := lc.apiClient.Get(ctx, "/config/admins", &resp); err != nil {
		return nil, translateLootError(err, "admin ids")
	}
	return resp.IDs, nil
}

// ReloadAdmins asks the loot-service to re-read the admin ID set from its
// config store and returns the refreshed set.
func (lc *LootClient) ReloadAdmins(ctx context.Context) ([]string, error) {
	var resp AdminIDsResponse
	if err := lc.apiClient.Post(ctx, "/config/admins/reload", nil, &resp); err != nil {
		return nil, translateLootError(err, "reload admins")
	}
	return resp.IDs, nil
}

// translateLootError maps the machine-readable code in a loot-service error
// response to this package's sentinel errors, falling back to the generic
// HTTP sentinels when no code is present.
func translateLootError(err error, op string) error {
	if err == nil {
		return nil
	}

	switch api.GetHTTPErrorDetails(err) {
	case CodeUserNotFound:
		return fmt.Errorf("%s: %w: %w", op, ErrUserNotFound, err)
	case CodeAlreadyRegistered:
		return fmt.Errorf("%s: %w: %w", op, ErrAlreadyRegistered, err)
	case CodeUnknownSlot:
		return fmt.Errorf("%s: %w: %w", op, ErrUnknownSlot, err)
	case CodeSlotLocked:
		return fmt.Errorf("%s: %w: %w", op, ErrSlotLocked, err)
	case CodeSlotAlreadySet:
		return fmt.Errorf("%s: %w: %w", op, ErrSlotAlreadySet, err)
	case CodeSlotEmpty:
		return fmt.Errorf("%s: %w: %w", op, ErrSlotEmpty, err)
	case CodeItemNotSet:
		return fmt.Errorf("%s: %w: %w", op, ErrItemNotSet, err)
	case CodeAlreadyAwarded:
		return fmt.Errorf("%s: %w: %w", op, ErrAlreadyAwarded, err)
	case CodeProtectedAdmin:
		return fmt.Errorf("%s: %w: %w", op, ErrProtectedAdmin, err)
	}

	// Older loot-service builds may omit the code on 404s.
	if errors.Is(err, api.ErrNotFound) {
		return fmt.Errorf("%s: %w: %w", op, ErrUserNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

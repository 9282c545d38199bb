// loot/service/report_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ezloot/LOOT-SERVICES/shared/models"
)

// ReportService answers the cross-user read queries: gear/bonus-loot searches
// and the guild totals report. Searches are full scans over the records; they
// are admin-triggered and the guild roster is small.
type ReportService struct {
	users UserStore
	loot  *LootService
}

// NewReportService creates a ReportService sharing the loot service's store
// and configured slot order.
func NewReportService(users UserStore, loot *LootService) *ReportService {
	return &ReportService{
		users: users,
		loot:  loot,
	}
}

// FindByItemSubstring returns every declared gear item whose normalized name
// contains the term. Matching is case-insensitive substring on the normalized
// form, so search terms and stored items compare identically.
func (rs *ReportService) FindByItemSubstring(ctx context.Context, term string) ([]models.GearMatch, error) {
	needle := models.NormalizeItem(term)
	if needle == "" {
		return nil, fmt.Errorf("search term is empty")
	}

	records, err := rs.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records for gear search: %w", err)
	}

	var matches []models.GearMatch
	for _, record := range records {
		for _, slot := range rs.loot.Slots() {
			gs, ok := record.Gear[slot]
			if !ok || gs.Item == nil {
				continue
			}
			if strings.Contains(models.NormalizeItem(*gs.Item), needle) {
				matches = append(matches, models.GearMatch{
					UserID:   record.ID,
					Username: record.Username,
					Slot:     slot,
					Item:     *gs.Item,
					Looted:   gs.Looted,
				})
			}
		}
	}
	return matches, nil
}

// FindByBonusLootSubstring returns every bonus-ledger entry containing the term.
func (rs *ReportService) FindByBonusLootSubstring(ctx context.Context, term string) ([]models.BonusLootMatch, error) {
	needle := models.NormalizeItem(term)
	if needle == "" {
		return nil, fmt.Errorf("search term is empty")
	}

	records, err := rs.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records for bonus loot search: %w", err)
	}

	var matches []models.BonusLootMatch
	for _, record := range records {
		for _, entry := range record.BonusLoot {
			if strings.Contains(strings.ToLower(entry), needle) {
				matches = append(matches, models.BonusLootMatch{
					UserID:   record.ID,
					Username: record.Username,
					Entry:    entry,
				})
			}
		}
	}
	return matches, nil
}

// GuildTotals builds the aggregate award report: counts via aggregation plus
// the per-entry breakdown of the loot ledgers.
func (rs *ReportService) GuildTotals(ctx context.Context) (*models.GuildTotals, error) {
	users, lootCount, bonusLootCount, err := rs.users.AggregateLedgerCounts(ctx)
	if err != nil {
		return nil, err
	}
	items, err := rs.users.AggregateLootEntryCounts(ctx)
	if err != nil {
		return nil, err
	}
	return &models.GuildTotals{
		Users:          users,
		LootCount:      lootCount,
		BonusLootCount: bonusLootCount,
		Items:          items,
	}, nil
}

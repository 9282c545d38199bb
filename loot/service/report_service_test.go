package service_test

import (
	"context"
	"testing"

	"github.com/ezloot/LOOT-SERVICES/loot/service"
)

func newTestReportService(t *testing.T) (*service.ReportService, *service.LootService) {
	t.Helper()
	ls, users, _ := newTestService(t)
	return service.NewReportService(users, ls), ls
}

func TestFindByItemSubstring(t *testing.T) {
	rs, ls := newTestReportService(t)
	ctx := context.Background()

	mustRegister(t, ls, "100", "alice")
	mustRegister(t, ls, "200", "bob")
	ls.SetItem(ctx, "100", "Head", "Winwood Crown")
	ls.SetItem(ctx, "200", "Chest", "winwood plate")
	ls.AssignLoot(ctx, "200", "Chest", "")
	ls.SetItem(ctx, "200", "Head", "iron helm")

	// Case-insensitive substring, locked state carried through.
	matches, err := rs.FindByItemSubstring(ctx, "WINWOOD")
	if err != nil {
		t.Fatalf("FindByItemSubstring: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(matches), matches)
	}
	for _, m := range matches {
		switch m.UserID {
		case "100":
			if m.Slot != "Head" || m.Looted {
				t.Errorf("alice match = %+v", m)
			}
		case "200":
			if m.Slot != "Chest" || !m.Looted {
				t.Errorf("bob match = %+v", m)
			}
		default:
			t.Errorf("unexpected match %+v", m)
		}
	}

	matches, err = rs.FindByItemSubstring(ctx, "no such item")
	if err != nil {
		t.Fatalf("FindByItemSubstring: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches, want 0", len(matches))
	}
}

func TestFindByBonusLootSubstring(t *testing.T) {
	rs, ls := newTestReportService(t)
	ctx := context.Background()

	mustRegister(t, ls, "100", "alice")
	ls.AssignBonusLoot(ctx, "100", "Head", "Spare Crown", "")
	ls.AssignBonusLoot(ctx, "100", "Chest", "old plate", "")

	matches, err := rs.FindByBonusLootSubstring(ctx, "crown")
	if err != nil {
		t.Fatalf("FindByBonusLootSubstring: %v", err)
	}
	if len(matches) != 1 || matches[0].Entry != "Head: spare crown" {
		t.Errorf("matches = %+v, want the crown entry", matches)
	}
}

func TestGuildTotals(t *testing.T) {
	rs, ls := newTestReportService(t)
	ctx := context.Background()

	mustRegister(t, ls, "100", "alice")
	mustRegister(t, ls, "200", "bob")
	ls.SetItem(ctx, "100", "Head", "winwood")
	ls.AssignLoot(ctx, "100", "Head", "")
	ls.SetItem(ctx, "200", "Head", "winwood")
	ls.AssignLoot(ctx, "200", "Head", "")
	ls.AssignBonusLoot(ctx, "100", "Chest", "old plate", "")

	totals, err := rs.GuildTotals(ctx)
	if err != nil {
		t.Fatalf("GuildTotals: %v", err)
	}
	if totals.Users != 2 {
		t.Errorf("Users = %d, want 2", totals.Users)
	}
	if totals.LootCount != 2 {
		t.Errorf("LootCount = %d, want 2", totals.LootCount)
	}
	if totals.BonusLootCount != 1 {
		t.Errorf("BonusLootCount = %d, want 1", totals.BonusLootCount)
	}
	if totals.Items["Head: winwood"] != 2 {
		t.Errorf("Items = %v, want Head: winwood held by 2", totals.Items)
	}
}

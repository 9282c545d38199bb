package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ezloot/LOOT-SERVICES/bot/gateway"
	"github.com/ezloot/LOOT-SERVICES/bot/resolver"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
)

type fakeGateway struct {
	members map[string][]gateway.Member // guildID -> members
	users   map[string]gateway.GlobalUser
}

func (f *fakeGateway) GetGuildMember(_ context.Context, guildID, userID string) (*gateway.Member, error) {
	for _, m := range f.members[guildID] {
		if m.ID == userID {
			m := m
			return &m, nil
		}
	}
	return nil, fmt.Errorf("member %s: %w", userID, gateway.ErrMemberNotFound)
}

func (f *fakeGateway) ListGuildMembers(_ context.Context, guildID string) ([]gateway.Member, error) {
	return f.members[guildID], nil
}

func (f *fakeGateway) GetUser(_ context.Context, userID string) (*gateway.GlobalUser, error) {
	if u, ok := f.users[userID]; ok {
		return &u, nil
	}
	return nil, fmt.Errorf("user %s: %w", userID, gateway.ErrUserNotFound)
}

type fakeRegistry struct {
	records []models.UserRecord
}

func (f *fakeRegistry) ListUsers(_ context.Context) ([]models.UserRecord, error) {
	return f.records, nil
}

func newTestResolver() *resolver.Resolver {
	gw := &fakeGateway{
		members: map[string][]gateway.Member{
			"g1": {
				{ID: "100", Username: "alice", Nick: "Healer"},
				{ID: "200", Username: "bob"},
			},
		},
		users: map[string]gateway.GlobalUser{
			"100": {ID: "100", Username: "alice"},
			"200": {ID: "200", Username: "bob"},
			"300": {ID: "300", Username: "carol"},
		},
	}
	reg := &fakeRegistry{
		records: []models.UserRecord{
			{ID: "100", Username: "alice"},
			{ID: "300", Username: "carol"},
		},
	}
	return resolver.New(gw, reg)
}

func TestResolveMentionInGuild(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	for _, ref := range []string{"<@100>", "<@!100>", "100"} {
		subject, err := r.Resolve(ctx, ref, "g1")
		if err != nil {
			t.Fatalf("Resolve(%q): %v", ref, err)
		}
		if subject.SubjectID() != "100" {
			t.Errorf("Resolve(%q) ID = %s, want 100", ref, subject.SubjectID())
		}
		// A guild resolution should carry the nickname.
		if subject.DisplayName() != "Healer" {
			t.Errorf("Resolve(%q) DisplayName = %s, want Healer", ref, subject.DisplayName())
		}
	}
}

func TestResolveNameScan(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	// Username match, case-insensitive.
	subject, err := r.Resolve(ctx, "ALICE", "g1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if subject.SubjectID() != "100" {
		t.Errorf("ID = %s, want 100", subject.SubjectID())
	}

	// Nick match.
	subject, err = r.Resolve(ctx, "healer", "g1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if subject.SubjectID() != "100" {
		t.Errorf("ID = %s, want 100", subject.SubjectID())
	}
}

func TestResolveRegistryFallback(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	// carol is registered but not a guild member; the fallback lands on the
	// global account.
	subject, err := r.Resolve(ctx, "carol", "g1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if subject.SubjectID() != "300" {
		t.Errorf("ID = %s, want 300", subject.SubjectID())
	}
	if _, isMember := subject.(*gateway.Member); isMember {
		t.Error("expected a global user, got a guild member")
	}
}

func TestResolveUnresolved(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	_, err := r.Resolve(ctx, "nobody", "g1")
	if !errors.Is(err, resolver.ErrUnresolved) {
		t.Errorf("Resolve unknown name = %v, want ErrUnresolved", err)
	}
}

func TestResolveDM(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	// Bare numeric ID resolves globally.
	subject, err := r.Resolve(ctx, "300", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if subject.SubjectID() != "300" {
		t.Errorf("ID = %s, want 300", subject.SubjectID())
	}

	// Names never resolve in DMs.
	if _, err := r.Resolve(ctx, "alice", ""); !errors.Is(err, resolver.ErrUnresolved) {
		t.Errorf("DM name resolve = %v, want ErrUnresolved", err)
	}
	// Unknown IDs don't either.
	if _, err := r.Resolve(ctx, "999", ""); !errors.Is(err, resolver.ErrUnresolved) {
		t.Errorf("DM unknown ID = %v, want ErrUnresolved", err)
	}
}

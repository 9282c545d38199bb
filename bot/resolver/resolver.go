// bot/resolver/resolver.go
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ezloot/LOOT-SERVICES/bot/gateway"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
)

// ErrUnresolved means no resolution step produced a subject for the reference.
var ErrUnresolved = errors.New("could not resolve user reference")

// GatewayClient is the slice of the chat gateway the resolver needs.
type GatewayClient interface {
	GetGuildMember(ctx context.Context, guildID, userID string) (*gateway.Member, error)
	ListGuildMembers(ctx context.Context, guildID string) ([]gateway.Member, error)
	GetUser(ctx context.Context, userID string) (*gateway.GlobalUser, error)
}

// Registry lists the registered loot records, used as the last-resort
// username source for people who changed their guild nick.
type Registry interface {
	ListUsers(ctx context.Context) ([]models.UserRecord, error)
}

// Resolver turns a free-form user reference (mention, ID, username, nick)
// into a concrete subject.
type Resolver struct {
	gw       GatewayClient
	registry Registry
}

// New creates a Resolver over a gateway client and the loot registry.
func New(gw GatewayClient, registry Registry) *Resolver {
	return &Resolver{gw: gw, registry: registry}
}

// Resolve resolves a reference within a guild, trying in order:
//  1. mention or bare-ID parse, looked up as a guild member
//  2. linear member scan on username and nick (case-insensitive exact)
//  3. registered username match, then member lookup, then global lookup
//
// An empty guildID means DM context, where only step 1 applies and the
// lookup is global.
func (r *Resolver) Resolve(ctx context.Context, ref, guildID string) (gateway.Subject, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty reference: %w", ErrUnresolved)
	}

	if guildID == "" {
		return r.resolveDM(ctx, ref)
	}

	// Step 1: explicit mention or raw ID.
	if id, ok := parseUserRef(ref); ok {
		member, err := r.gw.GetGuildMember(ctx, guildID, id)
		if err == nil {
			return member, nil
		}
		if !errors.Is(err, gateway.ErrMemberNotFound) {
			return nil, err
		}
	}

	// Step 2: scan the member list for an exact name match.
	members, err := r.gw.ListGuildMembers(ctx, guildID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(ref)
	for i := range members {
		m := &members[i]
		if strings.ToLower(m.Username) == needle || (m.Nick != "" && strings.ToLower(m.Nick) == needle) {
			return m, nil
		}
	}

	// Step 3: fall back to the registered username. The record gives us the
	// ID; prefer the guild member view of it, else the global account.
	records, err := r.registry.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if strings.ToLower(record.Username) != needle {
			continue
		}
		member, err := r.gw.GetGuildMember(ctx, guildID, record.ID)
		if err == nil {
			return member, nil
		}
		if !errors.Is(err, gateway.ErrMemberNotFound) {
			return nil, err
		}
		user, err := r.gw.GetUser(ctx, record.ID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gateway.ErrUserNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("reference %q: %w", ref, ErrUnresolved)
}

// resolveDM resolves a reference outside any guild: only an explicit ID is
// accepted, looked up globally. Name scans need a guild roster.
func (r *Resolver) resolveDM(ctx context.Context, ref string) (gateway.Subject, error) {
	id, ok := parseUserRef(ref)
	if !ok {
		return nil, fmt.Errorf("reference %q: %w", ref, ErrUnresolved)
	}
	user, err := r.gw.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrUserNotFound) {
			return nil, fmt.Errorf("reference %q: %w", ref, ErrUnresolved)
		}
		return nil, err
	}
	return user, nil
}

// parseUserRef extracts a numeric user ID from a mention ("<@123>", "<@!123>")
// or a bare digit string.
func parseUserRef(ref string) (string, bool) {
	if strings.HasPrefix(ref, "<@") && strings.HasSuffix(ref, ">") {
		ref = strings.TrimSuffix(strings.TrimPrefix(ref, "<@"), ">")
		ref = strings.TrimPrefix(ref, "!")
	}
	if ref == "" {
		return "", false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return ref, true
}

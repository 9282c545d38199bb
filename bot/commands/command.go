// bot/commands/command.go
package commands

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ezloot/LOOT-SERVICES/bot/gateway"
	"github.com/ezloot/LOOT-SERVICES/shared/models"
)

// LootAPI is the slice of the loot-service client the commands use.
type LootAPI interface {
	Register(ctx context.Context, id, username string) error
	GetUser(ctx context.Context, id string) (*models.UserRecord, error)
	ListUsers(ctx context.Context) ([]models.UserRecord, error)
	SetItem(ctx context.Context, id, slot, item string) error
	EditItem(ctx context.Context, id, slot, item string) error
	AssignLoot(ctx context.Context, id, slot, source string) (string, error)
	AssignBonusLoot(ctx context.Context, id, slot, item, source string) (string, error)
	UnlockSlot(ctx context.Context, id, slot string) error
	ResetGear(ctx context.Context, id, slot string) error
	RemoveLootForSlot(ctx context.Context, id, slot string) (int, error)
	RemoveBonusLootForSlot(ctx context.Context, id, slot string) (int, error)
	AddPity(ctx context.Context, id string) (int64, error)
	SetPity(ctx context.Context, id string, value int64) error
	RemoveUser(ctx context.Context, id string) error
	FindByItemSubstring(ctx context.Context, term string) ([]models.GearMatch, error)
	FindByBonusLootSubstring(ctx context.Context, term string) ([]models.BonusLootMatch, error)
	GuildTotals(ctx context.Context) (*models.GuildTotals, error)
	AdminIDs(ctx context.Context) ([]string, error)
	ReloadAdmins(ctx context.Context) ([]string, error)
}

// Sender posts replies back through the chat gateway.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// Resolver turns free-form user references into subjects.
type Resolver interface {
	Resolve(ctx context.Context, ref, guildID string) (gateway.Subject, error)
}

// InteractionLog records state-changing commands for the report channel.
type InteractionLog interface {
	Record(ctx context.Context, actor, command, details string) error
}

// MessageEvent is a parsed chat message delivered by the gateway webhook.
// An empty GuildID means the message arrived in a DM.
type MessageEvent struct {
	GuildID        string `json:"guild_id,omitempty"`
	ChannelID      string `json:"channel_id"`
	AuthorID       string `json:"author_id"`
	AuthorUsername string `json:"author_username"`
	AuthorNick     string `json:"author_nick,omitempty"`
	AuthorIsAdmin  bool   `json:"author_is_admin,omitempty"`
	Content        string `json:"content"`
}

// IsDM reports whether the message arrived outside any guild.
func (e *MessageEvent) IsDM() bool { return e.GuildID == "" }

// AuthorDisplay is the author's guild nickname, or the username outside guilds.
func (e *MessageEvent) AuthorDisplay() string {
	if e.AuthorNick != "" {
		return e.AuthorNick
	}
	return e.AuthorUsername
}

// Invocation is one command execution: the triggering event plus the
// whitespace-split arguments after the command name.
type Invocation struct {
	Event *MessageEvent
	Args  []string
	r     *Router
}

// Reply sends a message to the invoking channel, splitting it to fit the
// platform's message limit.
func (inv *Invocation) Reply(ctx context.Context, content string) error {
	for _, chunk := range gateway.SplitMessage(content, gateway.MessageLimit) {
		if err := inv.r.sender.SendMessage(ctx, inv.Event.ChannelID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// Rest joins the arguments from index i on, for multi-word trailing values
// like item names.
func (inv *Invocation) Rest(i int) string {
	if i >= len(inv.Args) {
		return ""
	}
	return strings.Join(inv.Args[i:], " ")
}

// logUse records a state-changing command in the interaction log. Logging
// failures never fail the command.
func (inv *Invocation) logUse(ctx context.Context, command, details string) {
	actor := fmt.Sprintf("%s [%s]", inv.Event.AuthorDisplay(), inv.Event.AuthorID)
	if err := inv.r.ilog.Record(ctx, actor, command, details); err != nil {
		log.Printf("WARN: Failed to record interaction log for %s: %v", command, err)
	}
}

type handlerFunc func(ctx context.Context, inv *Invocation) error

type handlerSpec struct {
	fn        handlerFunc
	adminOnly bool
	// dmOnly commands must run in a DM unless the caller is an admin.
	dmOnly bool
}

// Router parses incoming messages, enforces authorization and dispatches to
// the command handlers.
type Router struct {
	prefix   string
	slots    []string
	loot     LootAPI
	sender   Sender
	resolver Resolver
	ilog     InteractionLog

	adminMux sync.RWMutex // protects adminIDs
	adminIDs map[string]struct{}

	handlers map[string]handlerSpec
}

// NewRouter creates a Router for the given command prefix and slot set.
// LoadAdmins should be called once before serving traffic.
func NewRouter(prefix string, slots []string, loot LootAPI, sender Sender, res Resolver, ilog InteractionLog) *Router {
	r := &Router{
		prefix:   prefix,
		slots:    normalizeSlots(slots),
		loot:     loot,
		sender:   sender,
		resolver: res,
		ilog:     ilog,
		adminIDs: make(map[string]struct{}),
	}
	r.handlers = map[string]handlerSpec{
		// User commands.
		"register": {fn: r.cmdRegister},
		"set":      {fn: r.cmdSet, dmOnly: true},
		"edit":     {fn: r.cmdEdit, dmOnly: true},
		"showgear": {fn: r.cmdShowGear, dmOnly: true},
		"showloot": {fn: r.cmdShowLoot, dmOnly: true},
		"pity":     {fn: r.cmdPity, dmOnly: true},
		"commands": {fn: r.cmdUserHelp, dmOnly: true},

		// Admin commands.
		"listusers":       {fn: r.cmdListUsers, adminOnly: true},
		"finditem":        {fn: r.cmdFindItem, adminOnly: true},
		"findbonusloot":   {fn: r.cmdFindBonusLoot, adminOnly: true},
		"assignloot":      {fn: r.cmdAssignLoot, adminOnly: true},
		"assignbonusloot": {fn: r.cmdAssignBonusLoot, adminOnly: true},
		"addpity":         {fn: r.cmdAddPity, adminOnly: true},
		"setpity":         {fn: r.cmdSetPity, adminOnly: true},
		"editgear":        {fn: r.cmdEditGear, adminOnly: true},
		"unlock":          {fn: r.cmdUnlock, adminOnly: true},
		"removegear":      {fn: r.cmdRemoveGear, adminOnly: true},
		"removeloot":      {fn: r.cmdRemoveLoot, adminOnly: true},
		"removebonusloot": {fn: r.cmdRemoveBonusLoot, adminOnly: true},
		"removeuser":      {fn: r.cmdRemoveUser, adminOnly: true},
		"guildtotal":      {fn: r.cmdGuildTotal, adminOnly: true},
		"reloadadmins":    {fn: r.cmdReloadAdmins, adminOnly: true},
		"admincommands":   {fn: r.cmdAdminHelp, adminOnly: true},
	}
	return r
}

func normalizeSlots(slots []string) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if n := models.NormalizeSlot(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// LoadAdmins fetches the admin ID set from the loot-service and caches it.
func (r *Router) LoadAdmins(ctx context.Context) error {
	ids, err := r.loot.AdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load admin IDs: %w", err)
	}
	r.setAdmins(ids)
	return nil
}

func (r *Router) setAdmins(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	r.adminMux.Lock()
	r.adminIDs = set
	r.adminMux.Unlock()
}

// isAdmin treats both the configured admin set and the guild admin flag as
// authorization for admin commands.
func (r *Router) isAdmin(e *MessageEvent) bool {
	if e.AuthorIsAdmin {
		return true
	}
	r.adminMux.RLock()
	defer r.adminMux.RUnlock()
	_, ok := r.adminIDs[e.AuthorID]
	return ok
}

// Matches reports whether a message carries the command prefix at all.
func (r *Router) Matches(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), strings.TrimSpace(r.prefix))
}

// HandleMessage parses and executes the command in an event. Unknown commands
// and non-command messages are ignored silently, matching chat-bot etiquette.
func (r *Router) HandleMessage(ctx context.Context, event *MessageEvent) {
	content := strings.TrimSpace(event.Content)
	prefix := strings.TrimSpace(r.prefix)
	if !strings.HasPrefix(content, prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	spec, ok := r.handlers[name]
	if !ok {
		return
	}

	inv := &Invocation{Event: event, Args: fields[1:], r: r}

	if spec.adminOnly && !r.isAdmin(event) {
		// Silence, like the original: non-admins don't get to probe the
		// admin surface.
		return
	}
	if spec.dmOnly && !event.IsDM() && !r.isAdmin(event) {
		if err := inv.Reply(ctx, "This command must be used in direct messages."); err != nil {
			log.Printf("WARN: Failed to send DM-only notice: %v", err)
		}
		return
	}

	if err := spec.fn(ctx, inv); err != nil {
		log.Printf("ERROR: Command %s from %s failed: %v", name, event.AuthorID, err)
		if err := inv.Reply(ctx, "Something went wrong, please try again."); err != nil {
			log.Printf("WARN: Failed to send error notice: %v", err)
		}
	}
}

// mention formats a user ID as a chat mention.
func mention(id string) string {
	return fmt.Sprintf("<@%s>", id)
}

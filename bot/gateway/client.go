// bot/gateway/client.go
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/ezloot/LOOT-SERVICES/shared/api"
)

// Sentinel errors for gateway lookups. Use errors.Is for checking.
var (
	ErrMemberNotFound = errors.New("guild member not found")
	ErrUserNotFound   = errors.New("user not found")
)

// Client provides methods for the bot-service to interact with the chat
// gateway's RESTful API: member and user lookups plus message delivery.
type Client struct {
	apiClient *api.Client
}

// NewClient creates a new chat-gateway client.
// baseURL should be the base URL of the gateway (e.g., "http://chat-gateway:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		apiClient: api.NewClient(baseURL, api.NewDefaultHTTPClient()),
	}
}

// GetGuildMember looks a user up inside a guild.
// Returns ErrMemberNotFound if the ID is not a member of the guild.
func (c *Client) GetGuildMember(ctx context.Context, guildID, userID string) (*Member, error) {
	var member Member
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	if err := c.apiClient.Get(ctx, path, &member); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("member %s in guild %s: %w", userID, guildID, ErrMemberNotFound)
		}
		return nil, fmt.Errorf("failed to get guild member %s: %w", userID, err)
	}
	return &member, nil
}

// ListGuildMembers fetches the full member list of a guild.
func (c *Client) ListGuildMembers(ctx context.Context, guildID string) ([]Member, error) {
	var members []Member
	path := fmt.Sprintf("/guilds/%s/members", guildID)
	if err := c.apiClient.Get(ctx, path, &members); err != nil {
		return nil, fmt.Errorf("failed to list members of guild %s: %w", guildID, err)
	}
	return members, nil
}

// GetUser looks a user up globally, outside any guild.
// Returns ErrUserNotFound if no account exists for the ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*GlobalUser, error) {
	var user GlobalUser
	path := fmt.Sprintf("/users/%s", userID)
	if err := c.apiClient.Get(ctx, path, &user); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &user, nil
}

// sendMessageRequest is the expected JSON body for posting a message.
type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage posts a message to a channel.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	if err := c.apiClient.Post(ctx, path, sendMessageRequest{Content: content}, nil); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

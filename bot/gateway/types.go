// bot/gateway/types.go
package gateway

// Subject is the narrow view the command layer needs of whoever a command
// targets: a guild member or a global user account, resolved by ID.
type Subject interface {
	SubjectID() string
	DisplayName() string
}

// Member is a user as seen inside a guild: the guild-scoped nickname and
// admin flag come along.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Nick     string `json:"nick,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

// SubjectID returns the member's chat user ID.
func (m *Member) SubjectID() string { return m.ID }

// DisplayName prefers the guild nickname over the account username.
func (m *Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Username
}

// GlobalUser is a user looked up outside any guild. No nickname, no roles.
type GlobalUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SubjectID returns the user's chat user ID.
func (u *GlobalUser) SubjectID() string { return u.ID }

// DisplayName returns the account username.
func (u *GlobalUser) DisplayName() string { return u.Username }

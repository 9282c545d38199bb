package models

// GearMatch is one hit from a gear search: a declared item on some user's
// slot whose name contains the search term.
type GearMatch struct {
	UserID   string `json:"UserID"`
	Username string `json:"Username"`
	Slot     string `json:"Slot"`
	Item     string `json:"Item"`
	Looted   bool   `json:"Looted"`
}

// BonusLootMatch is one hit from a bonus-loot ledger search.
type BonusLootMatch struct {
	UserID   string `json:"UserID"`
	Username string `json:"Username"`
	Entry    string `json:"Entry"`
}

// GuildTotals is the aggregate award report across every registered user.
// Items maps each awarded ledger entry to the number of users holding it.
type GuildTotals struct {
	Users          int64            `json:"Users"`
	LootCount      int64            `json:"LootCount"`
	BonusLootCount int64            `json:"BonusLootCount"`
	Items          map[string]int64 `json:"Items"`
}

package models

// GearSlot is the declared want for a single equipment slot.
// Looted means an award was assigned against the declared item and the slot
// can no longer be set or edited until it is unlocked or reset.
type GearSlot struct {
	Item   *string `bson:"item" json:"Item"`
	Looted bool    `bson:"looted" json:"Looted"`
}

// UserRecord represents a registered participant's loot record stored
// persistently in MongoDB, keyed by the chat user ID.
type UserRecord struct {
	ID        string              `bson:"_id" json:"ID"`
	Username  string              `bson:"username" json:"Username"`
	Gear      map[string]GearSlot `bson:"gear" json:"Gear"`
	Loot      []string            `bson:"loot" json:"Loot"`
	BonusLoot []string            `bson:"bonusloot" json:"BonusLoot"`
	Pity      int64               `bson:"pity" json:"Pity"`
}

// NewUserRecord builds the initial record for a fresh registration: every
// configured slot empty and unlocked, empty ledgers, pity 0.
func NewUserRecord(id, username string, slots []string) *UserRecord {
	gear := make(map[string]GearSlot, len(slots))
	for _, slot := range slots {
		gear[slot] = GearSlot{Item: nil, Looted: false}
	}
	return &UserRecord{
		ID:        id,
		Username:  username,
		Gear:      gear,
		Loot:      []string{},
		BonusLoot: []string{},
		Pity:      0,
	}
}

// loot/store/user_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ezloot/LOOT-SERVICES/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store-level sentinel errors. The service layer translates these into its
// own error taxonomy.
var (
	ErrUserExists   = errors.New("user record already exists")
	ErrUserNotFound = errors.New("user record not found")
)

// UserStore represents the MongoDB data store for user loot records.
type UserStore struct {
	collection *mongo.Collection
	// No gateway clients here. Stores should only do DB stuff.
}

// NewUserStore creates a new UserStore instance.
// The mongo.Collection comes from the shared/mongodb client.
func NewUserStore(collection *mongo.Collection) *UserStore {
	return &UserStore{
		collection: collection,
	}
}

// CreateUser inserts a new user record. The unique _id index makes this an
// atomic create-if-absent: a concurrent duplicate registration loses with
// ErrUserExists instead of overwriting.
func (us *UserStore) CreateUser(ctx context.Context, record *models.UserRecord) error {
	_, err := us.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", record.ID, ErrUserExists)
		}
		return fmt.Errorf("failed to create user record %s: %w", record.ID, err)
	}
	return nil
}

// GetUser retrieves a user record by chat user ID.
func (us *UserStore) GetUser(ctx context.Context, id string) (*models.UserRecord, error) {
	var record models.UserRecord
	filter := bson.M{"_id": id}
	err := us.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user record %s: %w", id, err)
	}
	return &record, nil
}

// ListUsers retrieves every user record.
func (us *UserStore) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	cursor, err := us.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list user records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.UserRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode user records: %w", err)
	}
	return records, nil
}

// SetGearSlot overwrites a single slot object (item + lock) on a user record.
// Slot names are normalized by the service and contain no dots, so the dotted
// field path is safe.
func (us *UserStore) SetGearSlot(ctx context.Context, id, slot string, gs models.GearSlot) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{fmt.Sprintf("gear.%s", slot): gs}}
	res, err := us.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set gear slot %s for user %s: %w", slot, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return nil
}

// SetGearLooted updates only a slot's lock flag, leaving the declared item as is.
func (us *UserStore) SetGearLooted(ctx context.Context, id, slot string, looted bool) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{fmt.Sprintf("gear.%s.looted", slot): looted}}
	res, err := us.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set lock on slot %s for user %s: %w", slot, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return nil
}

// AppendLoot appends a canonical entry to the loot ledger. $addToSet gives
// set semantics: appending an entry that is already present is a no-op.
func (us *UserStore) AppendLoot(ctx context.Context, id, entry string) error {
	return us.appendLedger(ctx, id, "loot", entry)
}

// AppendBonusLoot appends a canonical entry to the bonus-loot ledger.
func (us *UserStore) AppendBonusLoot(ctx context.Context, id, entry string) error {
	return us.appendLedger(ctx, id, "bonusloot", entry)
}

func (us *UserStore) appendLedger(ctx context.Context, id, field, entry string) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$addToSet": bson.M{field: entry}}
	res, err := us.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append %s entry for user %s: %w", field, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return nil
}

// PullLoot removes the given exact entries from the loot ledger.
func (us *UserStore) PullLoot(ctx context.Context, id string, entries []string) error {
	return us.pullLedger(ctx, id, "loot", entries)
}

// PullBonusLoot removes the given exact entries from the bonus-loot ledger.
func (us *UserStore) PullBonusLoot(ctx context.Context, id string, entries []string) error {
	return us.pullLedger(ctx, id, "bonusloot", entries)
}

func (us *UserStore) pullLedger(ctx context.Context, id, field string, entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	filter := bson.M{"_id": id}
	update := bson.M{"$pull": bson.M{field: bson.M{"$in": entries}}}
	res, err := us.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove %s entries for user %s: %w", field, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return nil
}

// IncrementPity atomically increments a user's pity counter and returns the
// new value.
func (us *UserStore) IncrementPity(ctx context.Context, id string) (int64, error) {
	filter := bson.M{"_id": id}
	update := bson.M{"$inc": bson.M{"pity": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record models.UserRecord
	err := us.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
		}
		return 0, fmt.Errorf("failed to increment pity for user %s: %w", id, err)
	}
	return record.Pity, nil
}

// SetPity overwrites a user's pity counter.
func (us *UserStore) SetPity(ctx context.Context, id string, value int64) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"pity": value}}
	res, err := us.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set pity for user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return nil
}

// DeleteUser removes a user record entirely.
func (us *UserStore) DeleteUser(ctx context.Context, id string) error {
	res, err := us.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user record %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return nil
}

// AggregateLedgerCounts performs a MongoDB aggregation to calculate the total
// number of loot and bonus-loot entries across all user records.
func (us *UserStore) AggregateLedgerCounts(ctx context.Context) (users, lootCount, bonusLootCount int64, err error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "users", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "lootCount", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$loot", bson.A{}}}}},
			}}}},
			{Key: "bonusLootCount", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$bonusloot", bson.A{}}}}},
			}}}},
		}}},
	}

	cursor, err := us.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("error running aggregation for ledger counts: %w", err)
	}
	defer cursor.Close(ctx)

	if cursor.Next(ctx) {
		var result struct {
			Users          int64 `bson:"users"`
			LootCount      int64 `bson:"lootCount"`
			BonusLootCount int64 `bson:"bonusLootCount"`
		}
		if err := cursor.Decode(&result); err != nil {
			return 0, 0, 0, fmt.Errorf("error decoding ledger count aggregation: %w", err)
		}
		users, lootCount, bonusLootCount = result.Users, result.LootCount, result.BonusLootCount
	}
	if err := cursor.Err(); err != nil {
		return 0, 0, 0, fmt.Errorf("error during ledger count cursor iteration: %w", err)
	}
	return users, lootCount, bonusLootCount, nil
}

// AggregateLootEntryCounts unwinds the loot ledgers and counts how many users
// hold each distinct entry.
func (us *UserStore) AggregateLootEntryCounts(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$unwind", Value: "$loot"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$loot"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := us.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error running aggregation for loot entry counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var result struct {
			Entry string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&result); err != nil {
			log.Printf("WARN: Error decoding loot entry aggregation result: %v", err) // Log and continue
			continue
		}
		counts[result.Entry] = result.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error during loot entry cursor iteration: %w", err)
	}
	return counts, nil
}

// loot/store/admin_store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// adminDocID is the fixed _id of the admin configuration document inside the
// config collection.
const adminDocID = "admins"

// adminDoc is the shape of the admin configuration document: { ids: [...] }.
type adminDoc struct {
	ID  string   `bson:"_id"`
	IDs []string `bson:"ids"`
}

// AdminStore reads and writes the admin ID set stored in the config collection.
type AdminStore struct {
	collection *mongo.Collection
}

// NewAdminStore creates a new AdminStore instance.
func NewAdminStore(collection *mongo.Collection) *AdminStore {
	return &AdminStore{
		collection: collection,
	}
}

// GetAdminIDs fetches the configured admin ID set. A missing document is not
// an error: it means no admins are configured yet.
func (as *AdminStore) GetAdminIDs(ctx context.Context) ([]string, error) {
	var doc adminDoc
	err := as.collection.FindOne(ctx, bson.M{"_id": adminDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read admin config document: %w", err)
	}
	if doc.IDs == nil {
		return []string{}, nil
	}
	return doc.IDs, nil
}

// SetAdminIDs overwrites the admin ID set, creating the document if needed.
func (as *AdminStore) SetAdminIDs(ctx context.Context, ids []string) error {
	filter := bson.M{"_id": adminDocID}
	update := bson.M{"$set": bson.M{"ids": ids}}
	opts := options.Update().SetUpsert(true)
	if _, err := as.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to write admin config document: %w", err)
	}
	return nil
}

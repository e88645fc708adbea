package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// Document store collections.
const (
	StudentsCollection      = "students"
	SubscriptionsCollection = "subscriptions"
	PaymentsCollection      = "payments"
)

// DocumentStore runs equality queries against the document database.
type DocumentStore struct {
	db       *mongo.Database
	observer QueryObserver
}

// NewDocumentStore constructs a DocumentStore. observer may be nil.
func NewDocumentStore(db *mongo.Database, observer QueryObserver) *DocumentStore {
	return &DocumentStore{db: db, observer: observer}
}

// Find returns every document of collection matching filter.
func (s *DocumentStore) Find(ctx context.Context, collection string, filter bson.M) ([]normalize.Record, error) {
	start := time.Now()
	if s.observer != nil {
		defer func() { s.observer.ObserveDBQuery("doc:"+collection, time.Since(start)) }()
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	records := make([]normalize.Record, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		records = append(records, normalize.Record(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return records, nil
}

// eitherField matches documents where either spelling of a field equals value.
func eitherField(camel, snake string, value interface{}) bson.M {
	return bson.M{"$or": bson.A{bson.M{camel: value}, bson.M{snake: value}}}
}

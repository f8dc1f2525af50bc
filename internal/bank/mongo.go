package bank

import (
	"bytes"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// classFinder is the slice of *mongo.Collection the source needs.
type classFinder interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// MongoSource reads a bank stored as one document per class.
type MongoSource struct {
	coll classFinder
}

var _ Source = (*MongoSource)(nil)

func NewMongoSource(coll classFinder) *MongoSource {
	return &MongoSource{coll: coll}
}

// ConnectMongo opens a client and returns the bank collection.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*mongo.Client, *mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database).Collection(collection), nil
}

// Fetch returns every class document as a JSON array in relaxed extended JSON.
// Class matching is left to Resolve, which tolerates loose identifiers.
func (s *MongoSource) Fetch(ctx context.Context, _ string) ([]byte, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find classes: %w", err)
	}
	defer cursor.Close(ctx)

	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	for cursor.Next(ctx) {
		doc, err := bson.MarshalExtJSON(cursor.Current, false, false)
		if err != nil {
			return nil, fmt.Errorf("convert class document: %w", err)
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(doc)
		n++
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

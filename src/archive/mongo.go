package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCloseTimeout = 5 * time.Second

type mongoInserter interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoSink stores one document per record.
type MongoSink struct {
	client     *mongo.Client
	collection mongoInserter
	now        func() time.Time
	label      string
}

func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		now:        time.Now,
		label:      fmt.Sprintf("mongo:%s.%s", database, collection),
	}, nil
}

func (s *MongoSink) Save(ctx context.Context, text string) error {
	ts := s.now()
	doc := bson.M{
		"content":    text,
		"record":     FormatRecord(ts, text),
		"created_at": ts.UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert research output: %w", err)
	}
	return nil
}

func (s *MongoSink) Target() string { return s.label }

func (s *MongoSink) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

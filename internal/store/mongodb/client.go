// Package mongodb implements the store interfaces on a MongoDB database.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

type Store struct {
	logger *zap.SugaredLogger
	client *mongo.Client

	Rooms    *Rooms
	Messages *Messages
	Users    *Users
}

func Connect(ctx context.Context, logger *zap.SugaredLogger, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(database)
	s := &Store{
		logger:   logger,
		client:   client,
		Rooms:    &Rooms{coll: db.Collection("rooms")},
		Messages: &Messages{coll: db.Collection("messages")},
		Users:    &Users{coll: db.Collection("users")},
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.Rooms.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "members", Value: 1}, {Key: "is_group", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = s.Messages.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "is_read", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = s.Users.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

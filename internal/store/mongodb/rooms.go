package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
)

type Rooms struct {
	coll *mongo.Collection
}

func (r *Rooms) Insert(ctx context.Context, room *models.Room) error {
	_, err := r.coll.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return wrapTransient(err)
}

func (r *Rooms) Get(ctx context.Context, roomID string) (*models.Room, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*models.Room, error) {
		var room models.Room
		err := r.coll.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &room, nil
	})
}

func (r *Rooms) FindDirectByMembers(ctx context.Context, a, b string) (*models.Room, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*models.Room, error) {
		filter := bson.M{
			"is_group": false,
			"members":  bson.M{"$all": bson.A{a, b}, "$size": 2},
		}
		var room models.Room
		err := r.coll.FindOne(ctx, filter).Decode(&room)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &room, nil
	})
}

func (r *Rooms) ListByMember(ctx context.Context, userID string) ([]*models.Room, error) {
	return withReadRetry(ctx, func(ctx context.Context) ([]*models.Room, error) {
		cur, err := r.coll.Find(ctx, bson.M{"members": userID},
			options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		var rooms []*models.Room
		if err := cur.All(ctx, &rooms); err != nil {
			return nil, err
		}
		return rooms, nil
	})
}

func (r *Rooms) SetDeletion(ctx context.Context, roomID, userID string, at time.Time) (*models.Room, error) {
	var room models.Room
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"deleted_for." + userID: at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, wrapTransient(err)
	}
	return &room, nil
}

func (r *Rooms) ClearDeletion(ctx context.Context, roomID, userID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$unset": bson.M{"deleted_for." + userID: ""}})
	return wrapTransient(err)
}

func (r *Rooms) Touch(ctx context.Context, roomID, senderID string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{
			"$set":   bson.M{"updated_at": at},
			"$unset": bson.M{"deleted_for." + senderID: ""},
		})
	return wrapTransient(err)
}

func (r *Rooms) SetAvatar(ctx context.Context, roomID, url string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"avatar_url": url, "updated_at": at}})
	if err != nil {
		return wrapTransient(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Rooms) Delete(ctx context.Context, roomID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": roomID})
	if err != nil {
		return wrapTransient(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

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

type Messages struct {
	coll *mongo.Collection
}

func (m *Messages) Insert(ctx context.Context, msg *models.Message) error {
	_, err := m.coll.InsertOne(ctx, msg)
	return wrapTransient(err)
}

func (m *Messages) List(ctx context.Context, roomID string, f store.MessageFilter) ([]*models.Message, error) {
	return withReadRetry(ctx, func(ctx context.Context) ([]*models.Message, error) {
		filter := bson.M{"room_id": roomID}
		created := bson.M{}
		if !f.Before.IsZero() {
			created["$lt"] = f.Before
		}
		if !f.After.IsZero() {
			created["$gt"] = f.After
		}
		if len(created) > 0 {
			filter["created_at"] = created
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
		if f.Limit > 0 {
			opts.SetLimit(f.Limit)
		}

		cur, err := m.coll.Find(ctx, filter, opts)
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		var msgs []*models.Message
		if err := cur.All(ctx, &msgs); err != nil {
			return nil, err
		}
		return msgs, nil
	})
}

func (m *Messages) Latest(ctx context.Context, roomID string, after time.Time) (*models.Message, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*models.Message, error) {
		filter := bson.M{"room_id": roomID}
		if !after.IsZero() {
			filter["created_at"] = bson.M{"$gt": after}
		}

		var msg models.Message
		err := m.coll.FindOne(ctx, filter,
			options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
		).Decode(&msg)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &msg, nil
	})
}

func (m *Messages) CountUnread(ctx context.Context, roomID, viewerID string, after time.Time) (int64, error) {
	return withReadRetry(ctx, func(ctx context.Context) (int64, error) {
		filter := bson.M{
			"room_id":   roomID,
			"sender_id": bson.M{"$ne": viewerID},
			"is_read":   false,
		}
		if !after.IsZero() {
			filter["created_at"] = bson.M{"$gt": after}
		}
		return m.coll.CountDocuments(ctx, filter)
	})
}

// MarkRead only sees messages committed before it started; a concurrent send
// stays unread until the next call.
func (m *Messages) MarkRead(ctx context.Context, roomID, readerID string) ([]string, error) {
	filter := bson.M{
		"room_id":   roomID,
		"sender_id": bson.M{"$ne": readerID},
		"is_read":   false,
	}

	cur, err := m.coll.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	_, err = m.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return nil, wrapTransient(err)
	}
	return ids, nil
}

func (m *Messages) DeleteByRoom(ctx context.Context, roomID string) (int64, error) {
	res, err := m.coll.DeleteMany(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return 0, wrapTransient(err)
	}
	return res.DeletedCount, nil
}

package mongodb

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
)

type Users struct {
	coll *mongo.Collection
}

func (u *Users) Insert(ctx context.Context, user *models.User) error {
	_, err := u.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return wrapTransient(err)
}

func (u *Users) Get(ctx context.Context, userID string) (*models.User, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*models.User, error) {
		var user models.User
		err := u.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &user, nil
	})
}

func (u *Users) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*models.User, error) {
		var user models.User
		err := u.coll.FindOne(ctx, bson.M{"username": username}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &user, nil
	})
}

func (u *Users) Search(ctx context.Context, requesterID, query string, limit int64) ([]*models.User, error) {
	return withReadRetry(ctx, func(ctx context.Context) ([]*models.User, error) {
		filter := bson.M{
			"_id":      bson.M{"$ne": requesterID},
			"username": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
		}
		cur, err := u.coll.Find(ctx, filter, options.Find().SetLimit(limit))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		var users []*models.User
		if err := cur.All(ctx, &users); err != nil {
			return nil, err
		}
		return users, nil
	})
}

func (u *Users) UpdateLastSeen(ctx context.Context, userID string, at time.Time) error {
	_, err := u.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_seen": at}})
	return wrapTransient(err)
}

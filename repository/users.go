package repository

import (
	"context"
	"errors"
	"time"

	"admin-service/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	coll *mongo.Collection
}

// ErrDuplicate is returned when a unique index rejects a write.
var ErrDuplicate = errors.New("duplicate key")

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	start := time.Now()
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.Status == "" {
		u.Status = model.StatusActive
	}
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}

	_, err := r.coll.InsertOne(ctx, u)
	observe("insert", usersCollection, start, err)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	start := time.Now()
	var u model.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	observe("find_one", usersCollection, start, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// FindByEmailOrUsername returns the first user holding either key.
func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
}

// List returns one page of users, newest first, without password hashes.
func (r *UserRepository) List(ctx context.Context, skip, limit int64) ([]model.User, int64, error) {
	start := time.Now()
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	observe("count", usersCollection, start, err)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit).
		SetProjection(bson.M{"password": 0})

	start = time.Now()
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	observe("find", usersCollection, start, err)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := []model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update applies set to the user and returns the updated document.
func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.User, error) {
	start := time.Now()
	set["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"password": 0})

	var u model.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	observe("update", usersCollection, start, err)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicate
	case err != nil:
		return nil, err
	}
	return &u, nil
}

// SetStatusByUsername updates status fields without returning the user.
func (r *UserRepository) SetStatusByUsername(ctx context.Context, username string, set bson.M) error {
	start := time.Now()
	set["updatedAt"] = time.Now().UTC()
	_, err := r.coll.UpdateOne(ctx, bson.M{"username": username}, bson.M{"$set": set})
	observe("update", usersCollection, start, err)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	start := time.Now()
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	observe("delete", usersCollection, start, err)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

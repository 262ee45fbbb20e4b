package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shivcommunication/storefront/internal/model"
)

const userCollection = "users"

type userDocument struct {
	ID          string    `bson:"_id"`
	PhoneNumber string    `bson:"phone_number"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d userDocument) toModel() model.User {
	id, _ := uuid.Parse(d.ID)
	return model.User{ID: id, PhoneNumber: d.PhoneNumber, CreatedAt: d.CreatedAt}
}

type mongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo creates a MongoDB-backed UserRepo
func NewMongoUserRepo(db *mongo.Database) UserRepo {
	return &mongoUserRepo{coll: db.Collection(userCollection)}
}

func (r *mongoUserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoUserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	return r.findOne(ctx, bson.M{"phone_number": phone})
}

// GetOrCreateByPhone upserts on the unique phone_number index; $setOnInsert keeps the first id
func (r *mongoUserRepo) GetOrCreateByPhone(ctx context.Context, phone string) (model.User, error) {
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        uuid.NewString(),
		"created_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"phone_number": phone}, update, opts).Decode(&doc)
	if err != nil {
		// two concurrent upserts race on the unique index; the loser reads the winner's row
		if mongo.IsDuplicateKeyError(err) {
			return r.GetByPhone(ctx, phone)
		}
		return model.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (model.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return doc.toModel(), nil
}

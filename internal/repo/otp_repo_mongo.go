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

const otpCollection = "otp_records"

type otpDocument struct {
	ID         string     `bson:"_id"`
	Phone      string     `bson:"phone"`
	OTP        string     `bson:"otp"`
	ExpiresAt  time.Time  `bson:"expires_at"`
	ConsumedAt *time.Time `bson:"consumed_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

func (d otpDocument) toModel() model.OtpRecord {
	id, _ := uuid.Parse(d.ID)
	return model.OtpRecord{
		ID:         id,
		Phone:      d.Phone,
		OTPHash:    d.OTP,
		ExpiresAt:  d.ExpiresAt,
		ConsumedAt: d.ConsumedAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type mongoOtpRepo struct {
	coll *mongo.Collection
}

// NewMongoOtpRepo creates a MongoDB-backed OtpRepo
func NewMongoOtpRepo(db *mongo.Database) OtpRepo {
	return &mongoOtpRepo{coll: db.Collection(otpCollection)}
}

func (r *mongoOtpRepo) Create(ctx context.Context, phone, otpHash string, expiresAt time.Time) (model.OtpRecord, error) {
	now := time.Now().UTC()
	doc := otpDocument{
		ID:        uuid.NewString(),
		Phone:     phone,
		OTP:       otpHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return model.OtpRecord{}, fmt.Errorf("insert otp record: %w", err)
	}
	return doc.toModel(), nil
}

// ConsumeMatching uses FindOneAndUpdate so the match and the consume are one server-side operation
func (r *mongoOtpRepo) ConsumeMatching(ctx context.Context, phone, otpHash string, now time.Time) (model.OtpRecord, error) {
	now = now.UTC()
	filter := bson.M{
		"phone":       phone,
		"otp":         otpHash,
		"expires_at":  bson.M{"$gt": now},
		"consumed_at": nil,
	}
	update := bson.M{"$set": bson.M{"consumed_at": now, "updated_at": now}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetReturnDocument(options.After)

	var doc otpDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.OtpRecord{}, ErrNotFound
		}
		return model.OtpRecord{}, fmt.Errorf("consume otp record: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoOtpRepo) CountRecentRequests(ctx context.Context, phone string, since time.Time) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"phone":      phone,
		"created_at": bson.M{"$gte": since.UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("count recent requests: %w", err)
	}
	return int(n), nil
}

func (r *mongoOtpRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": before.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("delete expired otp records: %w", err)
	}
	return res.DeletedCount, nil
}

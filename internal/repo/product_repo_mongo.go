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

const productCollection = "products"

type productDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Price       int64     `bson:"price"`
	Image       string    `bson:"image"`
	Category    string    `bson:"category"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d productDocument) toModel() model.Product {
	id, _ := uuid.Parse(d.ID)
	return model.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Image:       d.Image,
		Category:    d.Category,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type mongoProductRepo struct {
	coll *mongo.Collection
}

// NewMongoProductRepo creates a MongoDB-backed ProductRepo
func NewMongoProductRepo(db *mongo.Database) ProductRepo {
	return &mongoProductRepo{coll: db.Collection(productCollection)}
}

func (r *mongoProductRepo) List(ctx context.Context) ([]model.Product, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer cur.Close(ctx)

	products := make([]model.Product, 0)
	for cur.Next(ctx) {
		var doc productDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *mongoProductRepo) Get(ctx context.Context, id uuid.UUID) (model.Product, error) {
	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Product{}, ErrNotFound
		}
		return model.Product{}, fmt.Errorf("get product: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoProductRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	now := time.Now().UTC()
	doc := productDocument{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProductRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// NewMongoStores wires all MongoDB-backed repositories
func NewMongoStores(db *mongo.Database) Stores {
	return Stores{
		Otp:      NewMongoOtpRepo(db),
		Users:    NewMongoUserRepo(db),
		Products: NewMongoProductRepo(db),
	}
}

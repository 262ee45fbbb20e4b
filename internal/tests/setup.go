// Package tests holds backend integration tests that need a live Postgres or MongoDB.
// They skip unless DATABASE_URL or MONGO_URI is set.
package tests

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TruncateTables empties the storefront tables for a clean test state
func TruncateTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE otp_records, products, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// ClearCollections empties the storefront collections; indexes are kept
func ClearCollections(ctx context.Context, database *mongo.Database) error {
	for _, name := range []string{"otp_records", "products", "users"} {
		if _, err := database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	return nil
}

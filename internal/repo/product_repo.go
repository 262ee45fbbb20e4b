package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shivcommunication/storefront/internal/model"
)

// ProductRepo defines the interface for catalog repository operations
type ProductRepo interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id uuid.UUID) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type productRepo struct {
	db *sql.DB
}

// NewProductRepo creates a Postgres-backed ProductRepo
func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

const productColumns = `id, name, description, price, image, category, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...interface{}) error }) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// List returns all products, newest first
func (r *productRepo) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get retrieves a product by ID
func (r *productRepo) Get(ctx context.Context, id uuid.UUID) (model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Product{}, ErrNotFound
		}
		return model.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Create inserts a product; ID and timestamps are assigned here
func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = uuid.New()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, price, image, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.Price, p.Image, p.Category).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// Delete removes a product by ID
func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of products in the catalog
func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// NewPostgresStores wires all Postgres-backed repositories
func NewPostgresStores(db *sql.DB) Stores {
	return Stores{
		Otp:      NewOtpRepo(db),
		Users:    NewUserRepo(db),
		Products: NewProductRepo(db),
	}
}

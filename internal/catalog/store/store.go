// Package store persists catalog products.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. ImageFileName is the key of its image in the blob store.
type Product struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Brand         string          `db:"brand" json:"brand"`
	Category      string          `db:"category" json:"category"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Description   string          `db:"description" json:"description"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	ImageFileName string          `db:"image_file_name" json:"imageFileName"`
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying database so the service can run on PostgreSQL or SQLite.
type ProductStore interface {
	// Create inserts a product and returns it with the assigned ID.
	Create(ctx context.Context, product *Product) (*Product, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns a NotFoundError if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// FindAll returns all products ordered by ID.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]Product, error)

	// Update overwrites the mutable fields of the product with product.ID.
	// CreatedAt is never changed. Returns a NotFoundError if the row is absent.
	Update(ctx context.Context, product *Product) error

	// Delete removes a product by its ID.
	// Returns a NotFoundError if no product exists with the given ID.
	Delete(ctx context.Context, id int64) error
}

// DB is a ProductStore backed by an open database connection.
type DB interface {
	ProductStore
	Ping(ctx context.Context) error
	Close() error
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgColumns = `id, name, brand, category, price::text, description, created_at, image_file_name`

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) Create(ctx context.Context, product *Product) (*Product, error) {
	createdAt := product.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := p.db.QueryRow(ctx,
		`INSERT INTO products (name, brand, category, price, description, created_at, image_file_name)
		 VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7)
		 RETURNING `+pgColumns,
		product.Name, product.Brand, product.Category, product.Price.String(),
		product.Description, createdAt, product.ImageFileName,
	)
	created, err := scanPgProduct(row)
	if err != nil {
		return nil, &cerrors.PersistenceError{Op: "create product", Err: err}
	}
	return created, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns a NotFoundError if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	row := p.db.QueryRow(ctx, `SELECT `+pgColumns+` FROM products WHERE id = $1`, id)
	product, err := scanPgProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerrors.NewNotFound(id)
		}
		return nil, &cerrors.PersistenceError{Op: "find product by ID", Err: err}
	}
	return product, nil
}

func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	rows, err := p.db.Query(ctx, `SELECT `+pgColumns+` FROM products ORDER BY id ASC`)
	if err != nil {
		return nil, &cerrors.PersistenceError{Op: "find all products", Err: err}
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		product, err := scanPgProduct(row)
		if err != nil {
			return Product{}, err
		}
		return *product, nil
	})
	if err != nil {
		return nil, &cerrors.PersistenceError{Op: "find all products", Err: err}
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

func (p *PgStore) Update(ctx context.Context, product *Product) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE products
		 SET name = $2, brand = $3, category = $4, price = $5::text::numeric,
		     description = $6, image_file_name = $7
		 WHERE id = $1`,
		product.ID, product.Name, product.Brand, product.Category, product.Price.String(),
		product.Description, product.ImageFileName,
	)
	if err != nil {
		return &cerrors.PersistenceError{Op: "update product", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return cerrors.NewNotFound(product.ID)
	}
	return nil
}

// Delete removes a product by its unique identifier.
// Returns a NotFoundError if no product exists with the given ID.
func (p *PgStore) Delete(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return &cerrors.PersistenceError{Op: "delete product", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return cerrors.NewNotFound(id)
	}
	return nil
}

func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *PgStore) Close() error {
	p.db.Close()
	return nil
}

func scanPgProduct(row pgx.Row) (*Product, error) {
	var (
		product Product
		price   string
	)
	err := row.Scan(&product.ID, &product.Name, &product.Brand, &product.Category, &price,
		&product.Description, &product.CreatedAt, &product.ImageFileName)
	if err != nil {
		return nil, err
	}
	product.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price %q: %w", price, err)
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

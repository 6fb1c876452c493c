package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteColumns = `id, name, brand, category, price, description, created_at, image_file_name`

// SQLiteStore implements ProductStore on a SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite opens the database named by a sqlite:// URL and pings it within connectTimeout.
func OpenSQLite(ctx context.Context, url string, connectTimeout time.Duration) (*SQLiteStore, error) {
	path, err := ensureSQLiteDir(url)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return NewSQLiteStore(db), nil
}

// ensureSQLiteDir creates the directory holding the database file of a sqlite:// URL and returns the file path.
func ensureSQLiteDir(url string) (string, error) {
	path := strings.TrimPrefix(url, config.SchemeSQLite)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create sqlite directory: %w", err)
	}
	return path, nil
}

func (s *SQLiteStore) Create(ctx context.Context, product *Product) (*Product, error) {
	created := *product
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}
	created.CreatedAt = created.CreatedAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, brand, category, price, description, created_at, image_file_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		created.Name, created.Brand, created.Category, created.Price.String(),
		created.Description, created.CreatedAt, created.ImageFileName,
	)
	if err != nil {
		return nil, &cerrors.PersistenceError{Op: "create product", Err: err}
	}
	created.ID, err = res.LastInsertId()
	if err != nil {
		return nil, &cerrors.PersistenceError{Op: "create product", Err: err}
	}
	return &created, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	var product Product
	err := s.db.GetContext(ctx, &product, `SELECT `+sqliteColumns+` FROM products WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cerrors.NewNotFound(id)
		}
		return nil, &cerrors.PersistenceError{Op: "find product by ID", Err: err}
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

func (s *SQLiteStore) FindAll(ctx context.Context) ([]Product, error) {
	products := []Product{}
	if err := s.db.SelectContext(ctx, &products, `SELECT `+sqliteColumns+` FROM products ORDER BY id ASC`); err != nil {
		return nil, &cerrors.PersistenceError{Op: "find all products", Err: err}
	}
	for i := range products {
		products[i].CreatedAt = products[i].CreatedAt.UTC()
	}
	return products, nil
}

func (s *SQLiteStore) Update(ctx context.Context, product *Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET name = ?, brand = ?, category = ?, price = ?, description = ?, image_file_name = ?
		 WHERE id = ?`,
		product.Name, product.Brand, product.Category, product.Price.String(),
		product.Description, product.ImageFileName, product.ID,
	)
	if err != nil {
		return &cerrors.PersistenceError{Op: "update product", Err: err}
	}
	return s.expectOneRow(res, product.ID, "update product")
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return &cerrors.PersistenceError{Op: "delete product", Err: err}
	}
	return s.expectOneRow(res, id, "delete product")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) expectOneRow(res sql.Result, id int64, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &cerrors.PersistenceError{Op: op, Err: err}
	}
	if n == 0 {
		return cerrors.NewNotFound(id)
	}
	return nil
}

package store

import (
	"context"
	"testing"
	"time"

	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProduct builds a product with the given name and price.
func testProduct(name, price string) *Product {
	return &Product{
		Name:          name,
		Brand:         "Acme",
		Category:      "Peripherals",
		Price:         decimal.RequireFromString(price),
		Description:   "test product",
		CreatedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		ImageFileName: "1714557600000_" + name + ".png",
	}
}

// runProductStoreContract exercises the behaviour every ProductStore backend must share.
// newStore must return an empty store.
func runProductStoreContract(t *testing.T, newStore func(t *testing.T) ProductStore) {
	ctx := context.Background()

	t.Run("create and find by id", func(t *testing.T) {
		s := newStore(t)
		toCreate := testProduct("Mouse", "19.99")

		created, err := s.Create(ctx, toCreate)
		require.NoError(t, err)
		require.NotZero(t, created.ID)
		assert.Equal(t, toCreate.Name, created.Name)
		assert.True(t, toCreate.Price.Equal(created.Price))

		fetched, err := s.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, "Mouse", fetched.Name)
		assert.Equal(t, "Acme", fetched.Brand)
		assert.Equal(t, "Peripherals", fetched.Category)
		assert.Equal(t, "test product", fetched.Description)
		assert.Equal(t, "19.99", fetched.Price.StringFixed(2))
		assert.Equal(t, toCreate.ImageFileName, fetched.ImageFileName)
		assert.WithinDuration(t, toCreate.CreatedAt, fetched.CreatedAt, time.Millisecond)
	})

	t.Run("ids are assigned in ascending order", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Create(ctx, testProduct("A", "1"))
		require.NoError(t, err)
		second, err := s.Create(ctx, testProduct("B", "2"))
		require.NoError(t, err)

		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("find by id not found", func(t *testing.T) {
		s := newStore(t)

		_, err := s.FindByID(ctx, 999)

		var nf *cerrors.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, int64(999), nf.ID)
	})

	t.Run("find all empty", func(t *testing.T) {
		s := newStore(t)

		products, err := s.FindAll(ctx)

		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("find all ordered by id", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"C", "A", "B"} {
			_, err := s.Create(ctx, testProduct(name, "5"))
			require.NoError(t, err)
		}

		products, err := s.FindAll(ctx)

		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, "C", products[0].Name)
		assert.Equal(t, "A", products[1].Name)
		assert.Equal(t, "B", products[2].Name)
		assert.Less(t, products[0].ID, products[1].ID)
		assert.Less(t, products[1].ID, products[2].ID)
	})

	t.Run("update overwrites mutable fields and keeps created at", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, testProduct("Mouse", "19.99"))
		require.NoError(t, err)

		changed := *created
		changed.Name = "Mouse Pro"
		changed.Brand = "Globex"
		changed.Category = "Gaming"
		changed.Price = decimal.RequireFromString("24.99")
		changed.Description = ""
		changed.ImageFileName = "1714557700000_n.png"
		changed.CreatedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, s.Update(ctx, &changed))

		fetched, err := s.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mouse Pro", fetched.Name)
		assert.Equal(t, "Globex", fetched.Brand)
		assert.Equal(t, "Gaming", fetched.Category)
		assert.True(t, decimal.RequireFromString("24.99").Equal(fetched.Price))
		assert.Empty(t, fetched.Description)
		assert.Equal(t, "1714557700000_n.png", fetched.ImageFileName)
		assert.WithinDuration(t, created.CreatedAt, fetched.CreatedAt, time.Millisecond)
	})

	t.Run("update not found", func(t *testing.T) {
		s := newStore(t)
		missing := testProduct("Ghost", "1")
		missing.ID = 404

		err := s.Update(ctx, missing)

		assert.ErrorIs(t, err, cerrors.ErrProductNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, testProduct("Mouse", "19.99"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, created.ID))

		_, err = s.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, cerrors.ErrProductNotFound)
		err = s.Delete(ctx, created.ID)
		assert.ErrorIs(t, err, cerrors.ErrProductNotFound)
	})

	t.Run("price keeps its exact value", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, testProduct("Precise", "999999999999.9999"))
		require.NoError(t, err)

		fetched, err := s.FindByID(ctx, created.ID)

		require.NoError(t, err)
		assert.Equal(t, "999999999999.9999", fetched.Price.String())
	})
}

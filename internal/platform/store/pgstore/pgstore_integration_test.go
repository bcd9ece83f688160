//go:build integration

package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/healthhub/api/internal/platform/store"
)

const testSchema = `
CREATE TABLE products (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	title text NOT NULL,
	description text NOT NULL DEFAULT '',
	price numeric(10,2) NOT NULL CHECK (price >= 0),
	image_url text,
	available boolean NOT NULL DEFAULT true,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE orders (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id uuid NOT NULL,
	total numeric(12,2) NOT NULL,
	status text NOT NULL DEFAULT 'pending',
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE order_items (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	order_id uuid NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id uuid NOT NULL REFERENCES products(id),
	quantity int NOT NULL CHECK (quantity > 0),
	price numeric(10,2) NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE doctors (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name text NOT NULL,
	specialty text NOT NULL,
	hospital text NOT NULL,
	languages text[] NOT NULL DEFAULT '{}',
	rating numeric(2,1) NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now()
);`

type testProduct struct {
	ID        string          `json:"id,omitempty"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

type testItem struct {
	ID        string          `json:"id,omitempty"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Product   *testProduct    `json:"product,omitempty"`
}

type testOrder struct {
	ID        string          `json:"id,omitempty"`
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Items     []testItem      `json:"order_items,omitempty"`
}

type testDoctor struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	Specialty string   `json:"specialty"`
	Hospital  string   `json:"hospital"`
	Languages []string `json:"languages"`
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("healthhub"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	return New(pool)
}

func TestStore_OrderRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var products []testProduct
	require.NoError(t, s.Insert(ctx, "products", []testProduct{
		{Title: "Mask", Price: decimal.RequireFromString("50"), Available: true},
		{Title: "Gloves", Price: decimal.RequireFromString("12.50"), Available: false},
	}, &products))
	require.Len(t, products, 2)

	var available []testProduct
	require.NoError(t, s.Select(ctx, "products", store.Where(
		store.In("id", []string{products[0].ID, products[1].ID}),
		store.Eq("available", true),
	), &available))
	require.Len(t, available, 1)
	assert.True(t, available[0].Price.Equal(decimal.NewFromInt(50)))

	userID := "6f1c6a4e-3f7e-4c55-9d43-0c0d9f1b2a11"
	var created []testOrder
	require.NoError(t, s.Insert(ctx, "orders", testOrder{UserID: userID, Total: decimal.NewFromInt(100), Status: "pending"}, &created))
	require.Len(t, created, 1)
	require.NotNil(t, created[0].CreatedAt)
	assert.False(t, created[0].CreatedAt.IsZero())

	require.NoError(t, s.Insert(ctx, "order_items", []testItem{
		{OrderID: created[0].ID, ProductID: products[0].ID, Quantity: 2, Price: products[0].Price},
	}, nil))

	var full testOrder
	require.NoError(t, s.SelectOne(ctx, "orders", store.Where(store.Eq("id", created[0].ID)).
		With(store.HasMany("order_items", "order_items", "order_id",
			store.BelongsTo("product", "products", "product_id"))), &full))
	require.Len(t, full.Items, 1)
	require.NotNil(t, full.Items[0].Product)
	assert.Equal(t, "Mask", full.Items[0].Product.Title)

	require.NoError(t, s.Delete(ctx, "orders", []store.Filter{store.Eq("id", created[0].ID)}))
	err := s.SelectOne(ctx, "orders", store.Where(store.Eq("id", created[0].ID)), &full)
	assert.ErrorIs(t, err, store.ErrNoRows)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	userID := "6f1c6a4e-3f7e-4c55-9d43-0c0d9f1b2a11"

	err := s.WithinTx(ctx, func(tx store.Client) error {
		var created []testOrder
		if err := tx.Insert(ctx, "orders", testOrder{UserID: userID, Total: decimal.NewFromInt(1)}, &created); err != nil {
			return err
		}
		// Unknown product violates the foreign key.
		return tx.Insert(ctx, "order_items", testItem{
			OrderID: created[0].ID, ProductID: "00000000-0000-0000-0000-000000000000", Quantity: 1,
		}, nil)
	})
	require.Error(t, err)

	var orders []testOrder
	require.NoError(t, s.Select(ctx, "orders", store.Where(store.Eq("user_id", userID)), &orders))
	assert.Empty(t, orders)
}

func TestStore_ArraysILikeAndUpdate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "doctors", []testDoctor{
		{Name: "Dr. Bose", Specialty: "Cardiology", Hospital: "City General", Languages: []string{"en", "bn"}},
		{Name: "Dr. Adler", Specialty: "Dermatology", Hospital: "Northside", Languages: []string{}},
	}, nil))

	var cardio []testDoctor
	require.NoError(t, s.Select(ctx, "doctors", store.Where(store.ILike("specialty", store.Contains("cardio"))), &cardio))
	require.Len(t, cardio, 1)
	assert.Equal(t, []string{"en", "bn"}, cardio[0].Languages)

	var updated []testDoctor
	require.NoError(t, s.Update(ctx, "doctors", map[string]any{"hospital": "Lakeside"},
		[]store.Filter{store.Eq("id", cardio[0].ID)}, &updated))
	require.Len(t, updated, 1)
	assert.Equal(t, "Lakeside", updated[0].Hospital)

	var sorted []testDoctor
	require.NoError(t, s.Select(ctx, "doctors", store.Query{}.OrderBy(store.Asc("name")), &sorted))
	require.Len(t, sorted, 2)
	assert.Equal(t, "Dr. Adler", sorted[0].Name)

	err := s.Update(ctx, "doctors", map[string]any{"rating": 5}, nil, nil)
	assert.False(t, errors.Is(err, store.ErrNoRows))
	assert.Error(t, err)
}

func TestStore_MalformedIDMatchesNothing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var d testDoctor
	err := s.SelectOne(ctx, "doctors", store.Where(store.Eq("id", "not-a-uuid")), &d)
	assert.ErrorIs(t, err, store.ErrNoRows)

	var found []testProduct
	require.NoError(t, s.Select(ctx, "products", store.Where(store.In("id", []string{"ghost"})), &found))
	assert.Empty(t, found)

	var updated []testDoctor
	require.NoError(t, s.Update(ctx, "doctors", map[string]any{"hospital": "X"},
		[]store.Filter{store.Eq("id", "not-a-uuid")}, &updated))
	assert.Empty(t, updated)

	assert.NoError(t, s.Delete(ctx, "doctors", []store.Filter{store.Eq("id", "not-a-uuid")}))
}

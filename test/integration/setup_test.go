//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/healthhub/api/internal/domain/appointment"
	"github.com/healthhub/api/internal/domain/doctor"
	"github.com/healthhub/api/internal/domain/order"
	"github.com/healthhub/api/internal/domain/product"
	"github.com/healthhub/api/internal/domain/profile"
	"github.com/healthhub/api/internal/domain/summary"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/middleware"
	"github.com/healthhub/api/internal/platform/store/pgstore"
)

// schema mirrors the managed database the service runs against in
// production. Only the columns the handlers read and write are declared.
const schema = `
CREATE TABLE profiles (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	role text NOT NULL DEFAULT 'patient',
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE doctors (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name text NOT NULL,
	specialty text NOT NULL,
	hospital text NOT NULL,
	languages text[] NOT NULL DEFAULT '{}',
	profile_image text,
	rating numeric(2,1) NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE appointments (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	patient_id uuid NOT NULL REFERENCES profiles(id),
	doctor_id uuid NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
	date_time timestamptz NOT NULL,
	status text NOT NULL DEFAULT 'booked',
	created_at timestamptz NOT NULL DEFAULT now()
);
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
CREATE TABLE report_summaries (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id uuid NOT NULL,
	original_report text NOT NULL,
	summary text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);`

// globalPool is the shared database, initialized once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	ctx := context.Background()

	pool, cleanup, err := setupPostgresContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}
	globalPool = pool

	code := m.Run()

	pool.Close()
	cleanup()
	os.Exit(code)
}

func setupPostgresContainer(ctx context.Context) (*pgxpool.Pool, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("healthhub"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres: %w", err)
	}
	cleanup := func() {
		if err := container.Terminate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "terminate postgres: %v\n", err)
		}
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connection string: %w", err)
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		cleanup()
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}
	return pool, cleanup, nil
}

// stubSummarizer answers with a fixed prefix so the stored row is predictable.
type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, text string) (string, error) {
	return "summary: " + text, nil
}

// testApp is the HTTP surface wired onto the shared database.
type testApp struct {
	e      *echo.Echo
	orders *order.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := pgstore.New(globalPool)

	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	api := e.Group("/api")

	profiles := profile.NewService(profile.NewProfileRepo(db))
	profile.NewHandler(profiles).RegisterRoutes(api)

	doctors := doctor.NewService(doctor.NewDoctorRepo(db))
	doctor.NewHandler(doctors, profiles).RegisterRoutes(api)

	appointments := appointment.NewService(appointment.NewAppointmentRepo(db), doctors, profiles)
	appointment.NewHandler(appointments).RegisterRoutes(api)

	products := product.NewService(product.NewProductRepo(db))
	product.NewHandler(products, profiles).RegisterRoutes(api)

	orders := order.NewService(db, products, profiles)
	order.NewHandler(orders).RegisterRoutes(api)

	summaries := summary.NewService(summary.NewSummaryRepo(db), stubSummarizer{})
	summary.NewHandler(summaries).RegisterRoutes(api)

	return &testApp{e: e, orders: orders}
}

// createUser inserts a profile with a fresh id and returns the id.
func createUser(t *testing.T, role string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := globalPool.Exec(context.Background(),
		`INSERT INTO profiles (id, name, role) VALUES ($1, $2, $3)`,
		id, "User "+id[:8], role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

// createProduct inserts a catalog row directly and returns its id.
func createProduct(t *testing.T, title, price string, available bool) string {
	t.Helper()
	var id string
	err := globalPool.QueryRow(context.Background(),
		`INSERT INTO products (title, description, price, available)
		 VALUES ($1, $2, $3, $4) RETURNING id::text`,
		title, title+" description", price, available).Scan(&id)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return id
}

// do sends a request as userID and returns the recorder.
func (a *testApp) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set(auth.DevUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/quickmart/ordercore/internal/domain/catalog"
)

// Store owns the database handle. It doubles as the catalog reader and the
// unit-of-work factory for the transactional stores.
type Store struct {
	db *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	return &Store{db: db}, nil
}

func (s *Store) RunMigrations(migrationsDir string) error {
	driver, err := migratepg.WithInstance(s.db, &migratepg.Config{
		MigrationsTable: "ordercore_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsDir),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// queryer abstracts *sql.DB and *sql.Tx so the stores run inside or outside
// a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetProduct implements catalog.Reader against the products table.
func (s *Store) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, unit_price FROM products WHERE id = $1`, id)

	var p catalog.Product
	var price string
	err := row.Scan(&p.ID, &p.Name, &p.Category, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	if p.UnitPrice, err = parseDecimal(price); err != nil {
		return nil, fmt.Errorf("product %s unit price: %w", id, err)
	}
	return &p, nil
}

// CreateProduct registers a product with its starting quantity. Catalog
// maintenance proper lives outside the engine; this exists for seeding and
// tests.
func (s *Store) CreateProduct(ctx context.Context, p *catalog.Product, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, category, unit_price, quantity) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Category, p.UnitPrice.String(), quantity)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Package postgresql provides PostgreSQL persistence for dashboard tab
// configurations and display formats.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/veergo/motorbff/pkg/dashboard"
	"github.com/veergo/motorbff/pkg/sqlbase"
)

// Store implements dashboard.Store on PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens the database, runs migrations and returns the store.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: database, logger: logger}, nil
}

func (s *Store) Tabs(ctx context.Context) (map[string]*dashboard.TabConfig, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, row_position, list FROM dashboard_tabs")
	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard tabs: %w", err)
	}
	defer rows.Close()

	tabs := make(map[string]*dashboard.TabConfig)

	for rows.Next() {
		var (
			tab     dashboard.TabConfig
			rawList []byte
		)

		if err := rows.Scan(&tab.Name, &tab.Row, &rawList); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard tab: %w", err)
		}

		if err := json.Unmarshal(rawList, &tab.List); err != nil {
			return nil, fmt.Errorf("failed to parse list request for tab %s: %w", tab.Name, err)
		}

		tabs[tab.Name] = &tab
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dashboard tabs: %w", err)
	}

	return tabs, nil
}

// Tab returns the named configuration, or nil when it does not exist.
func (s *Store) Tab(ctx context.Context, name string) (*dashboard.TabConfig, error) {
	var (
		tab     dashboard.TabConfig
		rawList []byte
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT name, row_position, list FROM dashboard_tabs WHERE name = $1", name,
	).Scan(&tab.Name, &tab.Row, &rawList)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard tab %s: %w", name, err)
	}

	if err := json.Unmarshal(rawList, &tab.List); err != nil {
		return nil, fmt.Errorf("failed to parse list request for tab %s: %w", name, err)
	}

	return &tab, nil
}

func (s *Store) SaveTab(ctx context.Context, tab *dashboard.TabConfig) error {
	rawList, err := json.Marshal(tab.List)
	if err != nil {
		return fmt.Errorf("failed to encode list request: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dashboard_tabs (name, row_position, list, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE
		SET row_position = EXCLUDED.row_position, list = EXCLUDED.list, updated_at = NOW()
	`, tab.Name, tab.Row, rawList)
	if err != nil {
		return fmt.Errorf("failed to save dashboard tab %s: %w", tab.Name, err)
	}

	return nil
}

// Format returns the named display format, or nil when it does not exist.
func (s *Store) Format(ctx context.Context, name string) (*dashboard.TabFormat, error) {
	var (
		format      dashboard.TabFormat
		rawMappings []byte
		rawFields   []byte
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT row_position, field_mappings, table_fields FROM dashboard_formats WHERE name = $1", name,
	).Scan(&format.Row, &rawMappings, &rawFields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard format %s: %w", name, err)
	}

	if err := json.Unmarshal(rawMappings, &format.FieldMappings); err != nil {
		return nil, fmt.Errorf("failed to parse field mappings for %s: %w", name, err)
	}

	if err := json.Unmarshal(rawFields, &format.TableFields); err != nil {
		return nil, fmt.Errorf("failed to parse table fields for %s: %w", name, err)
	}

	return &format, nil
}

func (s *Store) SaveFormat(ctx context.Context, name string, format *dashboard.TabFormat) error {
	rawMappings, err := json.Marshal(format.FieldMappings)
	if err != nil {
		return fmt.Errorf("failed to encode field mappings: %w", err)
	}

	rawFields, err := json.Marshal(format.TableFields)
	if err != nil {
		return fmt.Errorf("failed to encode table fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dashboard_formats (name, row_position, field_mappings, table_fields, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (name) DO UPDATE
		SET row_position = EXCLUDED.row_position,
		    field_mappings = EXCLUDED.field_mappings,
		    table_fields = EXCLUDED.table_fields,
		    updated_at = NOW()
	`, name, format.Row, rawMappings, rawFields)
	if err != nil {
		return fmt.Errorf("failed to save dashboard format %s: %w", name, err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

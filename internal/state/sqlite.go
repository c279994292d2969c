// Package state persists interface settings, details, handler plans and the
// details patch log in SQLite.
//
// The store is the details sink of the persistence scheduler: every accepted
// patch is merged into the stored details and appended to the patch log in
// one transaction.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/leapview/pkg/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

var errNotOpen = errors.New("database not opened")

// Store is the SQLite-backed interface state store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens the database at path, creating parent directories, and runs
// pending migrations. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := NewWithDB(db, opts...)
	s.path = path
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("state store opened", "path", path)
	return s, nil
}

// NewWithDB wraps an existing connection. Migrations are not run.
func NewWithDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.New(slog.DiscardHandler),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// --- Settings ---

// GetSettings implements core.SettingsStore. A missing row yields nil, nil.
func (s *Store) GetSettings(surface, interfaceID string) (*core.InterfaceSettings, error) {
	return s.GetSettingsContext(context.Background(), surface, interfaceID)
}

// GetSettingsContext returns the stored settings of an interface.
func (s *Store) GetSettingsContext(ctx context.Context, surface, interfaceID string) (*core.InterfaceSettings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT settings FROM interface_settings WHERE surface = ? AND interface_id = ?`,
		surface, interfaceID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var settings core.InterfaceSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings stores the settings of an interface on a surface.
func (s *Store) SaveSettings(ctx context.Context, surface, interfaceID string, settings *core.InterfaceSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interface_settings (surface, interface_id, settings, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (surface, interface_id) DO UPDATE SET
			settings = excluded.settings,
			updated_at = excluded.updated_at`,
		surface, interfaceID, string(data), s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// --- Details ---

// GetDetails returns the stored details of an interface.
func (s *Store) GetDetails(ctx context.Context, interfaceID string) (core.Details, error) {
	return s.getDetails(ctx, s.db, interfaceID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getDetails(ctx context.Context, q queryer, interfaceID string) (core.Details, error) {
	var d core.Details
	var imports string
	err := q.QueryRowContext(ctx, `
		SELECT imports, page_data_type, page_handler, page, handler_generated, page_generated
		FROM interface_details WHERE interface_id = ?`,
		interfaceID,
	).Scan(&imports, &d.PageDataType, &d.PageHandler, &d.Page, &d.HandlerGenerated, &d.PageGenerated)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("details of %s: %w", interfaceID, ErrNotFound)
	}
	if err != nil {
		return d, fmt.Errorf("failed to get details: %w", err)
	}
	if err := json.Unmarshal([]byte(imports), &d.Imports); err != nil {
		return d, fmt.Errorf("failed to decode imports: %w", err)
	}
	if len(d.Imports) == 0 {
		d.Imports = nil
	}
	return d, nil
}

// OnDetailsChanged implements core.DetailsSink.
func (s *Store) OnDetailsChanged(ctx context.Context, interfaceID string, patch core.DetailsPatch) error {
	return s.ApplyDetailsPatch(ctx, interfaceID, patch)
}

// ApplyDetailsPatch merges a patch into the stored details and appends it to
// the patch log. Nothing is written when the transaction fails.
func (s *Store) ApplyDetailsPatch(ctx context.Context, interfaceID string, patch core.DetailsPatch) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.getDetails(ctx, tx, interfaceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	next := patch.Apply(current)

	imports := next.Imports
	if imports == nil {
		imports = []core.ImportEntry{}
	}
	importsJSON, err := json.Marshal(imports)
	if err != nil {
		return fmt.Errorf("failed to encode imports: %w", err)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO interface_details (interface_id, imports, page_data_type, page_handler, page,
			handler_generated, page_generated, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (interface_id) DO UPDATE SET
			imports = excluded.imports,
			page_data_type = excluded.page_data_type,
			page_handler = excluded.page_handler,
			page = excluded.page,
			handler_generated = excluded.handler_generated,
			page_generated = excluded.page_generated,
			updated_at = excluded.updated_at`,
		interfaceID, string(importsJSON), next.PageDataType, next.PageHandler, next.Page,
		next.HandlerGenerated, next.PageGenerated, now,
	); err != nil {
		return fmt.Errorf("failed to save details: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO details_patches (id, interface_id, patch, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), interfaceID, string(data), now,
	); err != nil {
		return fmt.Errorf("failed to record patch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit details: %w", err)
	}
	s.logger.Debug("details patch applied", "interface", interfaceID, "bytes", len(data))
	return nil
}

// LastPatch returns the serialized form of the last patch applied to an
// interface.
func (s *Store) LastPatch(ctx context.Context, interfaceID string) ([]byte, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT patch FROM details_patches
		WHERE interface_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`,
		interfaceID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patch of %s: %w", interfaceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last patch: %w", err)
	}
	return []byte(raw), nil
}

// PatchCount returns how many patches were applied to an interface.
func (s *Store) PatchCount(ctx context.Context, interfaceID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM details_patches WHERE interface_id = ?`, interfaceID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count patches: %w", err)
	}
	return n, nil
}

// --- Handler plans ---

// GetPlan returns the stored handler plan of an interface.
func (s *Store) GetPlan(ctx context.Context, interfaceID string) ([]core.HandlerPlanStep, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT steps FROM handler_plans WHERE interface_id = ?`, interfaceID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan of %s: %w", interfaceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	var steps []core.HandlerPlanStep
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return steps, nil
}

// SavePlan stores the handler plan of an interface.
func (s *Store) SavePlan(ctx context.Context, interfaceID string, steps []core.HandlerPlanStep) error {
	if steps == nil {
		steps = []core.HandlerPlanStep{}
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO handler_plans (interface_id, steps, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (interface_id) DO UPDATE SET
			steps = excluded.steps,
			updated_at = excluded.updated_at`,
		interfaceID, string(data), s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

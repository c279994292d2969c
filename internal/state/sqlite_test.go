package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapview/internal/testutil"
	"github.com/leapstack-labs/leapview/pkg/core"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func TestOpen_MigratesFileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := store.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, path, store.Path())

	// Running migrations again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestStore_Settings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	got, err := store.GetSettings("web", "dash")
	require.NoError(t, err)
	assert.Nil(t, got)

	settings := &core.InterfaceSettings{
		WarmQueryLookups: []string{"ticks"},
		Theme:            "dark",
		Slices: core.SliceMap{
			"ticks": {Key: "ticks", SourceCapability: "warmQuery:ticks", AccessMode: core.AccessClient},
		},
	}
	require.NoError(t, store.SaveSettings(ctx, "web", "dash", settings))

	got, err = store.GetSettingsContext(ctx, "web", "dash")
	require.NoError(t, err)
	assert.Equal(t, settings, got)

	settings.Theme = "light"
	require.NoError(t, store.SaveSettings(ctx, "web", "dash", settings))
	got, err = store.GetSettings("web", "dash")
	require.NoError(t, err)
	assert.Equal(t, "light", got.Theme)

	other, err := store.GetSettings("mobile", "dash")
	require.NoError(t, err)
	assert.Nil(t, other, "settings are per surface")
}

func TestStore_ApplyDetailsPatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetDetails(ctx, "dash")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.LastPatch(ctx, "dash")
	assert.ErrorIs(t, err, ErrNotFound)

	imports := []core.ImportEntry{{Module: "https://esm.sh/chart.js", Default: "Chart"}}
	require.NoError(t, store.OnDetailsChanged(ctx, "dash", core.DetailsPatch{
		Imports:     &imports,
		PageHandler: ptr("data.x = 1;"),
	}))
	require.NoError(t, store.ApplyDetailsPatch(ctx, "dash", core.DetailsPatch{Page: ptr("<main />")}))

	d, err := store.GetDetails(ctx, "dash")
	require.NoError(t, err)
	assert.Equal(t, core.Details{
		Imports:     imports,
		PageHandler: "data.x = 1;",
		Page:        "<main />",
	}, d)

	last, err := store.LastPatch(ctx, "dash")
	require.NoError(t, err)
	assert.JSONEq(t, `{"page":"<main />"}`, string(last))

	n, err := store.PatchCount(ctx, "dash")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	empty := []core.ImportEntry{}
	require.NoError(t, store.ApplyDetailsPatch(ctx, "dash", core.DetailsPatch{Imports: &empty}))
	d, err = store.GetDetails(ctx, "dash")
	require.NoError(t, err)
	assert.Nil(t, d.Imports)
}

func TestStore_GeneratedValuesTravelWithDetails(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyDetailsPatch(ctx, "dash", core.DetailsPatch{
		PageHandler:      ptr("h"),
		HandlerGenerated: ptr("h"),
		Page:             ptr("p"),
		PageGenerated:    ptr("p"),
	}))
	require.NoError(t, store.ApplyDetailsPatch(ctx, "dash", core.DetailsPatch{PageHandler: ptr("edited")}))

	d, err := store.GetDetails(ctx, "dash")
	require.NoError(t, err)
	assert.Equal(t, core.Details{
		PageHandler:      "edited",
		HandlerGenerated: "h",
		Page:             "p",
		PageGenerated:    "p",
	}, d, "a patch leaves generated values it does not name")
}

func TestStore_Plan(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetPlan(ctx, "dash")
	assert.ErrorIs(t, err, ErrNotFound)

	steps := []core.HandlerPlanStep{
		{ID: "orders:fetchLatest", SliceKey: "orders", ActionKey: "fetchLatest", ResultName: "latest", Notes: "keep", AutoExecute: true},
	}
	require.NoError(t, store.SavePlan(ctx, "dash", steps))
	got, err := store.GetPlan(ctx, "dash")
	require.NoError(t, err)
	assert.Equal(t, steps, got)

	require.NoError(t, store.SavePlan(ctx, "dash", nil))
	got, err = store.GetPlan(ctx, "dash")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_ApplyDetailsPatch_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("locked"))
			},
			errMsg: "failed to begin transaction",
		},
		{
			name: "details write fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT imports").WillReturnRows(sqlmock.NewRows(
					[]string{"imports", "page_data_type", "page_handler", "page", "handler_generated", "page_generated"}))
				mock.ExpectExec("INSERT INTO interface_details").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			errMsg: "failed to save details",
		},
		{
			name: "patch log fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT imports").WillReturnRows(sqlmock.NewRows(
					[]string{"imports", "page_data_type", "page_handler", "page", "handler_generated", "page_generated"}).
					AddRow("[]", "", "old", "", "", ""))
				mock.ExpectExec("INSERT INTO interface_details").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO details_patches").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			errMsg: "failed to record patch",
		},
		{
			name: "commit fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT imports").WillReturnRows(sqlmock.NewRows(
					[]string{"imports", "page_data_type", "page_handler", "page", "handler_generated", "page_generated"}))
				mock.ExpectExec("INSERT INTO interface_details").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO details_patches").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit().WillReturnError(errors.New("io error"))
			},
			errMsg: "failed to commit details",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			store := NewWithDB(db)
			err = store.ApplyDetailsPatch(context.Background(), "dash", core.DetailsPatch{Page: ptr("x")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_GetSettings_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	mock.ExpectQuery("SELECT settings").WillReturnError(errors.New("boom"))

	_, err = NewWithDB(db).GetSettings("web", "dash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get settings")
}

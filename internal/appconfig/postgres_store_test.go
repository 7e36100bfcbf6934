// internal/appconfig/postgres_store_test.go
package appconfig

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func expectSQL(format string) string {
	return flexibleSQLMatcher(strings.ReplaceAll(format, "%s", defaultTable))
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	mockPool.ExpectExec(expectSQL(createTableSQL)).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store, err := NewPostgresStore(context.Background(), mockPool, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	return store, mockPool
}

func TestNewPostgresStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = NewPostgresStore(context.Background(), mockPool, "", zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject unsafe table names", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		_, err = NewPostgresStore(context.Background(), mockPool, "apps; DROP TABLE x", zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("should create the table", func(t *testing.T) {
		_, mockPool := newMockStore(t)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		mockPool.ExpectQuery(expectSQL(selectOneSQL)).
			WithArgs("盒马").
			WillReturnRows(pgxmock.NewRows([]string{"package", "component"}).
				AddRow("com.whaleshark.meteora", "com.whaleshark.meteora/.MainActivity"))

		cfg, err := store.Get(ctx, " 盒马 ")
		require.NoError(t, err)
		assert.Equal(t, "com.whaleshark.meteora", cfg.Package)
		assert.Equal(t, "com.whaleshark.meteora/.MainActivity", cfg.Component)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		mockPool.ExpectQuery(expectSQL(selectOneSQL)).
			WithArgs("抖音").
			WillReturnRows(pgxmock.NewRows([]string{"package", "component"}))

		_, err := store.Get(ctx, "抖音")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		dbErr := errors.New("connection reset")
		mockPool.ExpectQuery(expectSQL(selectOneSQL)).WithArgs("微信").WillReturnError(dbErr)

		_, err := store.Get(ctx, "微信")
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresStore_Put(t *testing.T) {
	store, mockPool := newMockStore(t)
	mockPool.ExpectExec(expectSQL(upsertSQL)).
		WithArgs("微信", "com.tencent.mm", "com.tencent.mm/.ui.LauncherUI").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.Put(context.Background(), "微信", AppConfig{Package: "com.tencent.mm", Component: "com.tencent.mm/.ui.LauncherUI"})
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())

	assert.Error(t, store.Put(context.Background(), "  ", AppConfig{}), "empty names are rejected before touching the database")
}

func TestPostgresStore_List(t *testing.T) {
	store, mockPool := newMockStore(t)
	mockPool.ExpectQuery(expectSQL(selectAllSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"name", "package", "component"}).
			AddRow("微信", "com.tencent.mm", "com.tencent.mm/.ui.LauncherUI").
			AddRow("盒马", "com.whaleshark.meteora", ""))

	configs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, configs, 2)
	assert.Equal(t, "com.whaleshark.meteora", configs["盒马"].Package)
	assert.Empty(t, configs["盒马"].Component)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

package accesscontrol

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestService builds an AccessControl over a sqlmock-backed gorm and a
// miniredis-backed cache.
func newTestService(t *testing.T) (*AccessControl, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ac, err := New(Config{
		DB:          gormDB,
		RedisClient: client,
		Logger:      zap.NewNop().Sugar(),
		CacheTTL:    time.Minute,
		CachePrefix: "test:",
	})
	require.NoError(t, err)
	return ac, mock, mr
}

func assignmentViewRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"assignment_id", "role_id", "role_name", "hierarchy_level", "department_id", "scope_value"})
}

func grantRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"permission_name", "category", "granted_scope", "source_role"})
}

func expectActiveRoles(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT .+ FROM "user_role_assignments" JOIN roles`).WillReturnRows(rows)
}

func expectUnionGrants(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT .+ FROM "role_permissions" JOIN permissions`).WillReturnRows(rows)
}

func roleRow(id uint, name string, level int, active bool, combinableWith string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "display_name", "hierarchy_level", "active", "combinable_with"}).
		AddRow(id, name, name, level, active, combinableWith)
}

func sqlmockAssignmentRow(id, userID, roleID uint, status string, protected bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "role_id", "status", "protected"}).
		AddRow(id, userID, roleID, status, protected)
}

func sqlmockIDRow(id uint) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}

func execResult(rows int64) driver.Result {
	return sqlmock.NewResult(0, rows)
}

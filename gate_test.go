package accesscontrol

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasModuleAccessWithoutRoles(t *testing.T) {
	ac, mock, _ := newTestService(t)
	expectActiveRoles(mock, assignmentViewRows())

	assert.False(t, ac.HasModuleAccess(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPermissionWithoutRoles(t *testing.T) {
	ac, mock, _ := newTestService(t)
	expectActiveRoles(mock, assignmentViewRows())

	assert.False(t, ac.HasPermission(context.Background(), 5, "doc.read"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestZeroUserIDAlwaysDenied(t *testing.T) {
	ac, _, _ := newTestService(t)
	ctx := context.Background()

	assert.False(t, ac.HasModuleAccess(ctx, 0))
	assert.False(t, ac.HasPermission(ctx, 0, "doc.read"))
	assert.False(t, ac.CheckAccess(ctx, 0, ""))
	assert.Empty(t, ac.EffectivePermissions(ctx, 0, ContextDefault))
}

// Role A grants doc.read at department, role B at all: the resolved scope
// is all with both roles contributing.
func TestHasPermissionMostPermissiveScopeWins(t *testing.T) {
	ac, mock, _ := newTestService(t)
	ctx := context.Background()

	expectActiveRoles(mock, assignmentViewRows().
		AddRow(1, 10, "clerk", 50, nil, "").
		AddRow(2, 11, "archivist", 40, nil, ""))
	expectUnionGrants(mock, grantRows().
		AddRow("doc.read", "documents", "department", "clerk").
		AddRow("doc.read", "documents", "all", "archivist"))

	require.True(t, ac.HasPermissionScoped(ctx, 5, "doc.read", ScopeAll, ContextDefault))

	// Second read comes from the cache: no further SQL expected.
	entries := ac.EffectivePermissions(ctx, 5, ContextDefault)
	require.Len(t, entries, 1)
	assert.Equal(t, ScopeAll, entries[0].Scope)
	assert.ElementsMatch(t, []string{"clerk", "archivist"}, entries[0].ContributingRoles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPermissionScopedRequirement(t *testing.T) {
	ac, mock, _ := newTestService(t)
	ctx := context.Background()

	expectActiveRoles(mock, assignmentViewRows().AddRow(1, 10, "clerk", 50, nil, ""))
	expectUnionGrants(mock, grantRows().AddRow("doc.read", "documents", "department", "clerk"))

	assert.True(t, ac.HasPermissionScoped(ctx, 5, "doc.read", ScopeDepartment, ContextDefault))
	assert.True(t, ac.HasPermissionScoped(ctx, 5, "doc.read", ScopeStation, ContextDefault))
	assert.False(t, ac.HasPermissionScoped(ctx, 5, "doc.read", ScopeAll, ContextDefault))
	assert.False(t, ac.HasPermission(ctx, 5, "doc.delete"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Revoking a role must not leave a stale grant served from cache, even
// inside the old entry's TTL.
func TestRevokeInvalidatesCacheImmediately(t *testing.T) {
	ac, mock, _ := newTestService(t)
	ctx := context.Background()

	expectActiveRoles(mock, assignmentViewRows().AddRow(2, 11, "archivist", 40, nil, ""))
	expectUnionGrants(mock, grantRows().AddRow("doc.read", "documents", "all", "archivist"))
	require.True(t, ac.HasPermission(ctx, 5, "doc.read"))

	mock.ExpectQuery(`SELECT .+ FROM "user_role_assignments" WHERE`).
		WillReturnRows(sqlmockAssignmentRow(2, 5, 11, StatusActive, false))
	mock.ExpectExec(`UPDATE "user_role_assignments" SET`).
		WillReturnResult(execResult(1))
	require.NoError(t, ac.RevokeRole(ctx, 1, 5, 11))

	// The next check recomputes from the store instead of serving the
	// cached entry that depended on the revoked role.
	expectActiveRoles(mock, assignmentViewRows())
	assert.False(t, ac.HasPermission(ctx, 5, "doc.read"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownContextBehavesAsDefault(t *testing.T) {
	ac, mock, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		expectActiveRoles(mock, assignmentViewRows().AddRow(1, 10, "clerk", 50, nil, ""))
		expectUnionGrants(mock, grantRows().AddRow("doc.read", "documents", "department", "clerk"))
	}

	def := ac.EffectivePermissions(ctx, 5, ContextDefault)
	bogus := ac.EffectivePermissions(ctx, 5, "bogus")
	require.Len(t, bogus, len(def))
	for i := range def {
		assert.Equal(t, def[i].Name, bogus[i].Name)
		assert.Equal(t, def[i].Scope, bogus[i].Scope)
		assert.Equal(t, def[i].ContributingRoles, bogus[i].ContributingRoles)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditorContextAddsExportPermission(t *testing.T) {
	ac, mock, _ := newTestService(t)
	ctx := context.Background()

	expectActiveRoles(mock, assignmentViewRows().AddRow(1, 10, "clerk", 50, nil, ""))
	expectUnionGrants(mock, grantRows().AddRow("doc.read", "documents", "department", "clerk"))

	assert.True(t, ac.HasPermissionScoped(ctx, 5, "doc.export", ScopeAll, ContextAuditor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Both resolution strategies failing resolves to an empty set and denial,
// never an error or a grant.
func TestFailSecureOnStoreError(t *testing.T) {
	ac, mock, _ := newTestService(t)
	ctx := context.Background()

	storeDown := fmt.Errorf("connection refused")
	mock.ExpectQuery(`SELECT .+ FROM "user_role_assignments" JOIN roles`).WillReturnError(storeDown)
	mock.ExpectQuery(`SELECT .+ FROM "user_role_assignments" JOIN roles`).WillReturnError(storeDown)

	assert.Empty(t, ac.EffectivePermissions(ctx, 5, ContextDefault))

	mock.ExpectQuery(`SELECT .+ FROM "user_role_assignments" JOIN roles`).WillReturnError(storeDown)
	assert.False(t, ac.HasModuleAccess(ctx, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A broken cache degrades to recomputation instead of failing the check.
func TestCacheFailureDegradesToRecompute(t *testing.T) {
	ac, mock, mr := newTestService(t)
	ctx := context.Background()
	mr.Close()

	expectActiveRoles(mock, assignmentViewRows().AddRow(1, 10, "clerk", 50, nil, ""))
	expectUnionGrants(mock, grantRows().AddRow("doc.read", "documents", "department", "clerk"))

	assert.True(t, ac.HasPermission(ctx, 5, "doc.read"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAccessWithoutRoles(t *testing.T) {
	ac, mock, _ := newTestService(t)
	expectActiveRoles(mock, assignmentViewRows())

	assert.False(t, ac.CheckAccess(context.Background(), 5, "admin"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAccessHierarchyComparison(t *testing.T) {
	ac, mock, _ := newTestService(t)
	ctx := context.Background()

	// Clerk (level 50) does not meet admin (level 10).
	expectActiveRoles(mock, assignmentViewRows().AddRow(1, 10, "clerk", 50, nil, ""))
	mock.ExpectQuery(`SELECT .+ FROM "roles" WHERE`).
		WillReturnRows(roleRow(2, "admin", 10, true, ""))
	assert.False(t, ac.CheckAccess(ctx, 5, "admin"))

	// A director (level 5) meets admin. The last-access write afterwards
	// is best effort and not asserted.
	expectActiveRoles(mock, assignmentViewRows().AddRow(3, 12, "director", 5, nil, ""))
	mock.ExpectQuery(`SELECT .+ FROM "roles" WHERE`).
		WillReturnRows(roleRow(2, "admin", 10, true, ""))
	mock.ExpectExec(`INSERT INTO "user_accesses"`).WillReturnResult(execResult(1))
	assert.True(t, ac.CheckAccess(ctx, 5, "admin"))
}

func TestCheckAccessUnknownRequiredRoleDenies(t *testing.T) {
	ac, mock, _ := newTestService(t)

	expectActiveRoles(mock, assignmentViewRows().AddRow(1, 10, "clerk", 50, nil, ""))
	mock.ExpectQuery(`SELECT .+ FROM "roles" WHERE`).
		WillReturnError(fmt.Errorf("record not found"))
	assert.False(t, ac.CheckAccess(context.Background(), 5, "ghost"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

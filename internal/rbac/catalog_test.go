package rbac

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-desk/internal/platform/errutil"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

func TestDefaultRolesOnlyGrantCatalogPermissions(t *testing.T) {
	catalog := NewDefaultCatalog()
	all := NewPermissionSet(shared.AllScopes()...)

	require.NotEmpty(t, catalog.Roles())
	for _, role := range catalog.Roles() {
		perms, err := catalog.PermissionsOf(role)
		require.NoError(t, err)
		for _, p := range perms.Slice() {
			assert.True(t, all.Has(p), "role %s grants %s", role, p)
		}
	}
}

func TestManagerCannotDeleteTickets(t *testing.T) {
	perms, err := NewDefaultCatalog().PermissionsOf(shared.RoleManager)
	require.NoError(t, err)
	assert.True(t, perms.Has(shared.PermTicketsUpdate))
	assert.False(t, perms.Has(shared.PermTicketsDelete))
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	perms, err := NewDefaultCatalog().PermissionsOf("admin")
	require.NoError(t, err)
	assert.True(t, perms.Equal(NewPermissionSet(shared.AllScopes()...)))
}

func TestPermissionsOfUnknownRoleFails(t *testing.T) {
	catalog := NewDefaultCatalog()

	perms, err := catalog.PermissionsOf("JANITOR")
	require.ErrorIs(t, err, ErrUnknownRole)
	assert.Equal(t, "UNKNOWN_ROLE", errutil.Code(err))
	assert.Zero(t, perms.Len())
	assert.False(t, catalog.HasRole("JANITOR"))
	assert.True(t, catalog.HasRole(" staff "))
}

func TestNewCatalogRejectsUnknownPermission(t *testing.T) {
	_, err := NewCatalog(RoleTable{"STAFF": {"view_tickets", "launch_rockets"}})
	require.ErrorIs(t, err, ErrUnknownPermission)
	assert.Equal(t, "UNKNOWN_PERMISSION", errutil.Code(err))

	_, err = NewCatalog(RoleTable{"  ": {"view_tickets"}})
	assert.Equal(t, "INVALID_ROLE", errutil.Code(err))
}

func TestReplaceKeepsPreviousTableOnFailure(t *testing.T) {
	catalog := NewDefaultCatalog()
	before := catalog.Table()

	err := catalog.Replace(RoleTable{"STAFF": {"not_a_permission"}})
	require.Error(t, err)
	assert.Equal(t, before, catalog.Table())

	require.NoError(t, catalog.Replace(RoleTable{"AUDITOR": {shared.PermAuditView}}))
	assert.Equal(t, []string{"AUDITOR"}, catalog.Roles())
	assert.False(t, catalog.HasRole(shared.RoleStaff))
}

func TestReplaceIsAtomicForReaders(t *testing.T) {
	catalog, err := NewCatalog(RoleTable{"A": {shared.PermTicketsView}, "B": {shared.PermTicketsView}})
	require.NoError(t, err)
	other := RoleTable{"A": {shared.PermReportsView}, "B": {shared.PermReportsView}}
	first := RoleTable{"A": {shared.PermTicketsView}, "B": {shared.PermTicketsView}}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			table := first
			if i%2 == 0 {
				table = other
			}
			_ = catalog.Replace(table)
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		table := catalog.Table()
		assert.Equal(t, table["A"], table["B"], "readers must observe a single snapshot")
	}
}

func TestTableReturnsCopy(t *testing.T) {
	catalog := NewDefaultCatalog()
	table := catalog.Table()
	table[shared.RoleViewer] = append(table[shared.RoleViewer], shared.PermTicketsDelete)

	perms, err := catalog.PermissionsOf(shared.RoleViewer)
	require.NoError(t, err)
	assert.False(t, perms.Has(shared.PermTicketsDelete))
}

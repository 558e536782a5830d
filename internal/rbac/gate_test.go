package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

var testIdentities = map[string]Identity{
	"manager":  {ID: "manager", PrimaryRole: shared.RoleManager},
	"staff":    {ID: "staff", PrimaryRole: shared.RoleStaff, AdditionalRoles: []string{shared.RoleReportReviewer}},
	"admin":    {ID: "admin", PrimaryRole: shared.RoleAdmin},
	"misfiled": {ID: "misfiled", PrimaryRole: "NOT_A_ROLE"},
}

func newTestGate() *Gate {
	return NewGate(NewResolver(NewDefaultCatalog(), staticVerifier(testIdentities)), nil)
}

func as(subject string) context.Context {
	return WithCredentials(context.Background(), Credentials{Subject: subject})
}

func TestRequirePermissionForbidsManagerFromDeletingTickets(t *testing.T) {
	gate := newTestGate()
	invoked := false
	handler := gate.RequirePermission([]string{shared.PermTicketsDelete}, func(context.Context) error {
		invoked = true
		return nil
	})

	err := handler(as("manager"))
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.False(t, invoked)
}

func TestRequireAuthenticationWithoutCredentials(t *testing.T) {
	gate := newTestGate()
	invoked := false
	handler := gate.RequireAuthentication(func(context.Context) error {
		invoked = true
		return nil
	})

	assert.ErrorIs(t, handler(context.Background()), shared.ErrUnauthenticated)
	assert.ErrorIs(t, handler(as("nobody")), shared.ErrUnauthenticated)
	assert.False(t, invoked)
}

func TestRequireAuthenticationRunsInActorScope(t *testing.T) {
	gate := newTestGate()
	var seen string
	err := gate.RequireAuthentication(func(ctx context.Context) error {
		actor, ok := CurrentActor(ctx)
		require.True(t, ok)
		seen = actor.ID()
		return nil
	})(as("staff"))
	require.NoError(t, err)
	assert.Equal(t, "staff", seen)
}

func TestRequirePermissionAnyOf(t *testing.T) {
	gate := newTestGate()
	ok := func(context.Context) error { return nil }

	assert.NoError(t, gate.RequirePermission([]string{shared.PermTicketsDelete, shared.PermReportsReview}, ok)(as("staff")))
	assert.NoError(t, gate.RequirePermission([]string{" VIEW_TICKETS "}, ok)(as("staff")))
	assert.NoError(t, gate.RequirePermission(nil, ok)(as("staff")))
	assert.ErrorIs(t, gate.RequirePermission(nil, ok)(context.Background()), shared.ErrUnauthenticated)
}

func TestRequirePermissionSurfacesResolverFailure(t *testing.T) {
	gate := newTestGate()
	err := gate.RequirePermission([]string{shared.PermTicketsView}, func(context.Context) error { return nil })(as("misfiled"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.False(t, errors.Is(err, shared.ErrForbidden))
}

func TestHandlerErrorsPropagate(t *testing.T) {
	gate := newTestGate()
	boom := errors.New("ticket store down")
	err := gate.RequirePermission([]string{shared.PermTicketsView}, func(context.Context) error { return boom })(as("admin"))
	assert.ErrorIs(t, err, boom)
}

func TestStackedGates(t *testing.T) {
	gate := newTestGate()
	var calls []string

	inner := gate.RequirePermission([]string{shared.PermTicketsDelete}, func(ctx context.Context) error {
		calls = append(calls, "delete")
		return nil
	})
	outer := gate.RequirePermission([]string{shared.PermTicketsUpdate}, func(ctx context.Context) error {
		calls = append(calls, "update")
		actor, _ := CurrentActor(ctx)
		assert.NotNil(t, actor)
		return inner(ctx)
	})

	require.NoError(t, outer(as("admin")))
	assert.Equal(t, []string{"update", "delete"}, calls)

	calls = nil
	assert.ErrorIs(t, outer(as("manager")), shared.ErrForbidden)
	assert.Equal(t, []string{"update"}, calls)
}

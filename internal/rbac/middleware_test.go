package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-desk/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

func serve(h http.Handler, subject string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, "/tickets/T1", nil)
	if subject != "" {
		req = req.WithContext(as(subject))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareStatusCodes(t *testing.T) {
	mw := Middleware{Gate: newTestGate()}
	var actorID string
	h := mw.RequireAny(shared.PermTicketsDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := CurrentActor(r.Context())
		actorID = actor.ID()
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := serve(h, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
	assert.Equal(t, "you are not logged in", problem.Detail)

	rr = serve(h, "manager")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
	assert.Equal(t, "you are logged in but not permitted", problem.Detail)
	assert.Empty(t, actorID)

	rr = serve(h, "admin")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "admin", actorID)

	rr = serve(h, "misfiled")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestMiddlewareRequireAuthentication(t *testing.T) {
	mw := Middleware{Gate: newTestGate()}
	h := mw.RequireAuthentication()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusOK, serve(h, "manager").Code)
}

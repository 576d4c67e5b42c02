// internal/circulation/handler_test.go
package circulation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(newFixture(t).service(t)).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const loanBody = `{"id":"c1d2e3f4-a5b6-4c7d-8e9f-0a1b2c3d4e03","itemId":"0b3c1e52-6a1d-4e0c-b8e8-6f4a0a9d1c01",
  "userId":"7a9f2e13-3c5b-4d8e-a1f0-2b6c4d8e0f02","loanDate":"2024-01-01T00:00:00Z","dueDate":"2024-01-15T00:00:00Z"`

func TestHandleDueDate(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/circulation/loans/due-date", `{"loan":`+loanBody+`}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dueDate":"2024-01-15T00:00:00Z","loanPolicyId":"rolling","loanPolicyName":"Two weeks",
		"alternatePeriodUsed":false,"strategy":"rolling-checkout"}`, rec.Body.String())
}

func TestHandleRenew_ValidationFailureIs422(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/circulation/loans/renew", `{"loan":`+loanBody+`,"renewalCount":1}}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"errors":[{"message":"loan at maximum renewal number",
		"parameters":[{"key":"loanPolicyId","value":"rolling"},{"key":"loanPolicyName","value":"Two weeks"}]}]}`, rec.Body.String())
}

func TestHandleOverrideRenew(t *testing.T) {
	body := `{"loan":` + loanBody + `,"renewalCount":1},"comment":"approved"}`
	rec := do(t, newTestRouter(t), http.MethodPost, "/circulation/loans/override-renew", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"renewedThroughOverride"`)
	assert.Contains(t, rec.Body.String(), `"dueDate":"2024-01-29T00:00:00Z"`)
}

func TestHandleRecall(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/circulation/loans/recall", `{"loan":`+loanBody+`,"loanPolicyId":"rolling"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dueDateChangedByRecall":true`)
}

func TestHandle_BadRequests(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/circulation/loans/renew", `{"loan":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/circulation/loans/renew", `{"loan":{"loanDate":"2024-01-01T00:00:00Z"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"loan.itemId"`)

	rec = do(t, h, http.MethodGet, "/circulation/loans/not-a-uuid/events", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetPolicy(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/circulation/loan-policies/rolling", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"profileId":"Rolling"`)

	rec = do(t, h, http.MethodGet, "/circulation/loan-policies/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHistory_Empty(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/circulation/loans/c1d2e3f4-a5b6-4c7d-8e9f-0a1b2c3d4e03/events", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

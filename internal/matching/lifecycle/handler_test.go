package lifecycle

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/astromeet/astromeet/internal/matching/outcome"
	internalShared "github.com/astromeet/astromeet/internal/shared"
)

func newTestRouter(t *testing.T) (chi.Router, *world, *fakeClock) {
	t.Helper()
	svc, w, clock, _ := newTestStack(t)
	handler := NewHandler(slog.Default(), svc)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, w, clock
}

func doRequest(router chi.Router, method, target string, userID int64, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != 0 {
		req = req.WithContext(internalShared.ContextWithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStatusRequiresIdentity(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doRequest(router, http.MethodGet, "/status", 0, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusReturnsView(t *testing.T) {
	router, w, clock := newTestRouter(t)
	seedRound(w, 1, clock.Now().Add(-10*time.Minute))
	w.balances[1] = 10

	rec := doRequest(router, http.MethodGet, "/status?period_id=1", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view StatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.EqualValues(t, 1, view.PeriodID)
	require.Equal(t, outcome.StatusOpenAwaitingAction, view.DisplayStatus)
	require.EqualValues(t, 10, view.StarBalance)
}

func TestStatusUnknownRoundIsNotAnError(t *testing.T) {
	router, w, _ := newTestRouter(t)
	w.balances[1] = 3

	rec := doRequest(router, http.MethodGet, "/status?period_id=42", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view StatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, outcome.StatusNoActiveRound, view.DisplayStatus)
	require.EqualValues(t, 3, view.StarBalance)
}

func TestStatusRejectsBadPeriodParam(t *testing.T) {
	router, _, _ := newTestRouter(t)
	for _, raw := range []string{"abc", "-1", "0"} {
		rec := doRequest(router, http.MethodGet, "/status?period_id="+raw, 1, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, "period_id=%s", raw)
	}
}

func TestApplyAndCancelRoundTrip(t *testing.T) {
	router, w, clock := newTestRouter(t)
	seedRound(w, 1, clock.Now().Add(-10*time.Minute))
	w.balances[1] = 10

	rec := doRequest(router, http.MethodPost, "/apply", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 5, resp.NewStarBalance)

	rec = doRequest(router, http.MethodPost, "/cancel", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 10, resp.NewStarBalance)
}

func TestActionValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/apply", 1, `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/apply", 1, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/apply", 0, `{"period_id":1}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	router, w, clock := newTestRouter(t)
	t0 := clock.Now()
	seedRound(w, 1, t0.Add(-10*time.Minute))
	w.balances[1] = 10
	w.balances[2] = 1

	// Insufficient stars.
	rec := doRequest(router, http.MethodPost, "/apply", 2, `{"period_id":1}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	// Cancel with nothing applied.
	rec = doRequest(router, http.MethodPost, "/cancel", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Duplicate apply.
	rec = doRequest(router, http.MethodPost, "/apply", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(router, http.MethodPost, "/apply", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Cooldown right after a cancel.
	rec = doRequest(router, http.MethodPost, "/cancel", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(router, http.MethodPost, "/apply", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Window closed.
	clock.Set(t0.Add(2 * time.Hour))
	rec = doRequest(router, http.MethodPost, "/apply", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Round does not exist.
	rec = doRequest(router, http.MethodPost, "/apply", 1, `{"period_id":9}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Storage down past the retry.
	w.failTx = 2
	rec = doRequest(router, http.MethodPost, "/apply", 1, `{"period_id":1}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var problem struct {
		Title  string `json:"title"`
		Status int    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Temporarily Unavailable", problem.Title)
	require.Equal(t, http.StatusServiceUnavailable, problem.Status)
}

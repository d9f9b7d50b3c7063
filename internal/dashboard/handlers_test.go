package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/internal/repository"
	"breaktime-tracker-bot/internal/service"
	"breaktime-tracker-bot/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *repository.MemoryRecordStore, *session.Tracker, time.Time) {
	t.Helper()

	store := repository.NewMemoryRecordStore()
	tracker := session.NewTracker()
	agg := service.NewAggregationService(store, tracker, time.UTC, 90)
	server := NewServer(":0", "", agg)

	return server, store, tracker, agg.Today()
}

func seedPair(t *testing.T, store *repository.MemoryRecordStore, userID int64, name string, category models.BreakCategory, at time.Time, minutes float64) {
	t.Helper()

	require.NoError(t, store.Append(&models.BreakRecord{
		UserID: userID, FullName: name, Category: category,
		Action: models.ActionStart, Timestamp: at,
	}))
	require.NoError(t, store.Append(&models.BreakRecord{
		UserID: userID, FullName: name, Category: category,
		Action: models.ActionEnd, Timestamp: at.Add(time.Duration(minutes * float64(time.Minute))),
		DurationMinutes: minutes,
	}))
}

func doGET(server *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	rec := doGET(server, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRealtimeEndpoint(t *testing.T) {
	server, store, tracker, today := newTestServer(t)

	seedPair(t, store, 1, "Jane Doe", models.CategoryMeal, today.Add(10*time.Hour), 30)
	require.NoError(t, tracker.Begin(2, models.CategorySmoke, "", today.Add(11*time.Hour)))

	rec := doGET(server, "/api/realtime")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body service.RealtimeMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.ActiveBreaks)
	assert.Equal(t, 1, body.CompletedBreaksToday)
	assert.Equal(t, 30.0, body.TotalBreakTimeToday)
}

func TestDistributionEndpoint(t *testing.T) {
	server, store, _, today := newTestServer(t)

	seedPair(t, store, 1, "Jane Doe", models.CategoryMeal, today.Add(10*time.Hour), 30)

	rec := doGET(server, "/api/distribution/today")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []service.BreakDistribution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "meal", body[0].Category)
	assert.Equal(t, 100.0, body[0].Percentage)
}

func TestDistributionEndpointEmptyDay(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	rec := doGET(server, "/api/distribution/today")
	require.Equal(t, http.StatusOK, rec.Code)
	// Empty day serializes as [], not null.
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestDashboardBundle(t *testing.T) {
	server, store, _, today := newTestServer(t)

	seedPair(t, store, 1, "Jane Doe", models.CategoryMeal, today.Add(10*time.Hour), 30)

	rec := doGET(server, "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{"realtime", "distribution", "agents", "hourly", "trend"} {
		assert.Contains(t, body, key)
	}
}

func TestTrendEndpoint(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	rec := doGET(server, "/api/trend?days=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []service.TrendPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 3)
}

func TestTrendEndpointRejectsBadDays(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, doGET(server, "/api/trend?days=zero").Code)
	assert.Equal(t, http.StatusBadRequest, doGET(server, "/api/trend?days=-1").Code)
}

func TestHistoryLogsEndpoint(t *testing.T) {
	server, store, _, today := newTestServer(t)

	seedPair(t, store, 1, "Jane Doe", models.CategoryMeal, today.Add(9*time.Hour), 30)
	seedPair(t, store, 2, "John Roe", models.CategorySmoke, today.Add(11*time.Hour), 10)

	rec := doGET(server, "/api/history/logs")
	require.Equal(t, http.StatusOK, rec.Code)

	var page service.LogPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 4, page.Total)

	rec = doGET(server, "/api/history/logs?user_id=1&break_type=meal")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)

	assert.Equal(t, http.StatusBadRequest, doGET(server, "/api/history/logs?user_id=abc").Code)
	assert.Equal(t, http.StatusBadRequest, doGET(server, "/api/history/logs?break_type=nap").Code)
	assert.Equal(t, http.StatusBadRequest, doGET(server, "/api/history/logs?start_date=yesterday").Code)
}

func TestExportCSVEndpoint(t *testing.T) {
	server, store, _, today := newTestServer(t)

	seedPair(t, store, 1, "Jane Doe", models.CategoryMeal, today.Add(9*time.Hour), 30)

	rec := doGET(server, "/api/export/csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=break_logs_")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Timestamp")
	assert.Contains(t, lines[1], "OUT")
	assert.Contains(t, lines[2], "BACK")
	assert.Contains(t, lines[2], "30.0")
}

func TestExportCSVRejectsReversedRange(t *testing.T) {
	server, _, _, today := newTestServer(t)

	start := today.Format("2006-01-02")
	end := today.AddDate(0, 0, -3).Format("2006-01-02")
	rec := doGET(server, "/api/export/csv?start_date="+start+"&end_date="+end)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	rec := doGET(server, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

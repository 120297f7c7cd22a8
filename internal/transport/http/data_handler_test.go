package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/aggregation"
	"solarcli/internal/dataset"
	apierrors "solarcli/internal/errors"
	"solarcli/internal/services"
)

func testService(t *testing.T) *services.DataService {
	t.Helper()

	var ts []time.Time
	var ghi []float64
	var sites []string
	for _, site := range []string{"alpha", "beta"} {
		for day := 1; day <= 2; day++ {
			ts = append(ts, time.Date(2023, 6, day, 12, 0, 0, 0, time.UTC))
			v := 150.0
			if site == "beta" {
				v = 450.0
			}
			ghi = append(ghi, v)
			sites = append(sites, site)
		}
	}

	frame := dataset.NewFrame(len(ts))
	require.NoError(t, frame.AddTimeColumn("Timestamp", ts))
	require.NoError(t, frame.AddNumericColumn("GHI", ghi))
	require.NoError(t, frame.AddStringColumn(aggregation.SiteColumn, sites))

	return services.NewDataService(nil, frame, []string{"GHI"}, "GHI")
}

func newTestRouter(t *testing.T, svc DataService) http.Handler {
	t.Helper()
	handler := NewDataHandler(svc, nil, apierrors.NewErrorHandler(nil))
	return handler.Routes()
}

func TestGetSites(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/sites", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sites []string `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"alpha", "beta"}, body.Sites)
}

func TestGetSummary(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Summaries []struct {
			Site    string `json:"site"`
			Rows    int    `json:"rows"`
			Metrics map[string]struct {
				Mean float64 `json:"mean"`
			} `json:"metrics"`
		} `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Summaries, 2)
	// descending GHI mean
	assert.Equal(t, "beta", body.Summaries[0].Site)
	assert.InDelta(t, 450.0, body.Summaries[0].Metrics["GHI"].Mean, 1e-9)
}

func TestGetSummarySiteAndDateFilter(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/summary?site=alpha&start=2023-06-01&end=2023-06-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Summaries []struct {
			Site string `json:"site"`
			Rows int    `json:"rows"`
		} `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Summaries, 1)
	assert.Equal(t, "alpha", body.Summaries[0].Site)
	// end date is inclusive: the single June 1 reading is kept
	assert.Equal(t, 1, body.Summaries[0].Rows)
}

func TestGetSummaryNoMatchIs404(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/summary?site=delta", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSummaryInvalidDate(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/summary?start=06-01-2023", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSummaryEndBeforeStart(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/summary?start=2023-06-02&end=2023-06-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDailySeries(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/series/daily?metric=GHI", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Series []struct {
			Site string  `json:"site"`
			Mean float64 `json:"mean"`
		} `json:"series"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// 2 days x 2 sites, ordered by date then site
	require.Len(t, body.Series, 4)
	assert.Equal(t, "alpha", body.Series[0].Site)
	assert.Equal(t, "beta", body.Series[1].Site)
}

func TestGetDailySeriesUnknownMetric(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/series/daily?metric=Albedo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetInfo(t *testing.T) {
	router := newTestRouter(t, testService(t))

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		Rows    int      `json:"rows"`
		Columns []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 4, info.Rows)
	assert.Contains(t, info.Columns, "GHI")
}

func TestServiceNotReadyIs503(t *testing.T) {
	svc := services.NewDataService(nil, nil, []string{"GHI"}, "GHI")
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/sites", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	svc := services.NewDataService(nil, nil, []string{"GHI"}, "GHI")
	handler := NewHealthHandler(svc, "test")
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc.SetData(func() *dataset.Frame {
		frame := dataset.NewFrame(1)
		frame.AddTimeColumn("Timestamp", []time.Time{time.Now()})
		frame.AddNumericColumn("GHI", []float64{1})
		frame.AddStringColumn(aggregation.SiteColumn, []string{"alpha"})
		return frame
	}())

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "solarcli/internal/errors"
	"solarcli/internal/services"
	"solarcli/pkg/contracts/domain"
)

// dateParamLayout is the format of the start/end query parameters.
const dateParamLayout = "2006-01-02"

// DataService is the query surface the handler exposes over HTTP.
type DataService interface {
	Sites(ctx context.Context) ([]string, error)
	Summary(ctx context.Context, filter services.QueryFilter) ([]domain.SiteSummary, error)
	DailySeries(ctx context.Context, metric string, filter services.QueryFilter) ([]domain.DailyMean, error)
	Info(ctx context.Context) (domain.DatasetInfo, error)
	Ready() bool
}

// DataHandler serves the dashboard API.
type DataHandler struct {
	service      DataService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a data handler.
func NewDataHandler(service DataService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard data routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/sites", h.GetSites)
	r.Get("/summary", h.GetSummary)
	r.Get("/series/daily", h.GetDailySeries)
	r.Get("/info", h.GetInfo)

	return r
}

// GetSites returns the distinct site names of the combined dataset.
func (h *DataHandler) GetSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.service.Sites(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"sites": sites})
}

// GetSummary returns the per-site comparison table, optionally filtered by
// site and date range.
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summaries, err := h.service.Summary(r.Context(), filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"summaries": summaries})
}

// GetDailySeries returns the daily mean series for one metric.
func (h *DataHandler) GetDailySeries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	metric := r.URL.Query().Get("metric")
	series, err := h.service.DailySeries(r.Context(), metric, filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"series": series})
}

// GetInfo describes the combined dataset.
func (h *DataHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// parseFilter reads the site/start/end query parameters. Repeated site
// parameters select multiple sites; dates use YYYY-MM-DD and the end date
// is inclusive.
func parseFilter(r *http.Request) (services.QueryFilter, error) {
	query := r.URL.Query()
	filter := services.QueryFilter{Sites: query["site"]}

	if raw := query.Get("start"); raw != "" {
		t, err := time.Parse(dateParamLayout, raw)
		if err != nil {
			return filter, apierrors.ErrValidation("start", "invalid date, expected YYYY-MM-DD")
		}
		filter.Start = &t
	}
	if raw := query.Get("end"); raw != "" {
		t, err := time.Parse(dateParamLayout, raw)
		if err != nil {
			return filter, apierrors.ErrValidation("end", "invalid date, expected YYYY-MM-DD")
		}
		filter.End = &t
	}
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return filter, apierrors.ErrValidation("end", "end date precedes start date")
	}

	return filter, nil
}

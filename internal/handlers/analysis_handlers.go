package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"airquality-platform/internal/models"
	"airquality-platform/internal/services"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// Analyzer is the part of the analysis service the API depends on
type Analyzer interface {
	Run(ctx context.Context) (*models.Result, error)
	Latest() (*models.Result, error)
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AnalysisHandler serves the results of the latest pipeline run
type AnalysisHandler struct {
	analyzer Analyzer
	store    HealthChecker
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewAnalysisHandler creates a new analysis handler. store may be nil when
// batches are read from files.
func NewAnalysisHandler(
	analyzer Analyzer,
	store HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Column  string `json:"column,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// AnalysisSummary is the overview returned by GET /api/analysis
type AnalysisSummary struct {
	RunID             string                 `json:"run_id"`
	Source            string                 `json:"source"`
	Batches           int                    `json:"batches"`
	Rows              int                    `json:"rows"`
	CompletedAt       time.Time              `json:"completed_at"`
	HasMissingData    bool                   `json:"has_missing_data"`
	Weeks             int                    `json:"weeks"`
	Months            int                    `json:"months"`
	TempO3Correlation float64                `json:"temp_o3_correlation"`
	Regression        RegressionCoefficients `json:"regression"`
}

// RegressionCoefficients is the fit without its plotted line
type RegressionCoefficients struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

func summarize(res *models.Result) AnalysisSummary {
	fit := res.Summary.Regression
	return AnalysisSummary{
		RunID:             res.RunID,
		Source:            res.Source,
		Batches:           res.Batches,
		Rows:              res.Rows,
		CompletedAt:       res.CompletedAt,
		HasMissingData:    res.HasMissingData(),
		Weeks:             len(res.Aggregates.Weekly),
		Months:            len(res.Aggregates.MonthlyTrend),
		TempO3Correlation: res.Summary.TempO3Correlation,
		Regression: RegressionCoefficients{
			Slope:     fit.Slope,
			Intercept: fit.Intercept,
			RSquared:  fit.RSquared,
		},
	}
}

// GetSummary handles GET /api/analysis
func (h *AnalysisHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	h.withResult(w, r, func(res *models.Result) interface{} {
		return summarize(res)
	})
}

// GetWeekly handles GET /api/analysis/weekly
func (h *AnalysisHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	h.withResult(w, r, func(res *models.Result) interface{} {
		return map[string]interface{}{
			"weeks":       res.Aggregates.Weekly,
			"temp_series": res.Aggregates.WeeklyTempSeries(),
		}
	})
}

// GetMonthly handles GET /api/analysis/monthly
func (h *AnalysisHandler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	h.withResult(w, r, func(res *models.Result) interface{} {
		return res.Aggregates.MonthlyTrend
	})
}

// GetHeatmap handles GET /api/analysis/heatmap
func (h *AnalysisHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	h.withResult(w, r, func(res *models.Result) interface{} {
		return res.Aggregates.Pivot
	})
}

// GetDistribution handles GET /api/analysis/distribution
func (h *AnalysisHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	h.withResult(w, r, func(res *models.Result) interface{} {
		return res.Aggregates.Distribution
	})
}

// GetCorrelation handles GET /api/analysis/correlation
func (h *AnalysisHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	h.withResult(w, r, func(res *models.Result) interface{} {
		return map[string]interface{}{
			"matrix":  res.Summary.Matrix,
			"temp_o3": res.Summary.TempO3Correlation,
		}
	})
}

// GetRegression handles GET /api/analysis/regression
func (h *AnalysisHandler) GetRegression(w http.ResponseWriter, r *http.Request) {
	h.withResult(w, r, func(res *models.Result) interface{} {
		return res.Summary.Regression
	})
}

// GetMissing handles GET /api/analysis/missing
func (h *AnalysisHandler) GetMissing(w http.ResponseWriter, r *http.Request) {
	h.withResult(w, r, func(res *models.Result) interface{} {
		return map[string]interface{}{
			"has_missing_data": res.HasMissingData(),
			"columns":          res.Missing,
		}
	})
}

// GetPreview handles GET /api/analysis/preview, paging through the merged
// rows before imputation
func (h *AnalysisHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := h.pagination(w, r, 5, 1000)
	if !ok {
		return
	}

	h.withResult(w, r, func(res *models.Result) interface{} {
		total := res.Merged.Len()
		// pages past the end are empty; page may be near MaxInt, so compare before multiplying
		start := total
		if page-1 <= total/limit {
			start = min((page-1)*limit, total)
		}
		end := start + limit
		if end > total {
			end = total
		}

		rows := make([]models.Record, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, res.Merged.Record(i))
		}

		return PaginatedResponse{
			Data:       rows,
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
		}
	})
}

// Refresh handles POST /api/analysis/refresh
func (h *AnalysisHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := h.analyzer.Run(ctx)
	if err != nil {
		h.sendRunError(w, r, err)
		return
	}

	h.logger.Info(ctx, "[API_REFRESH] Analysis refreshed", logging.Fields{
		"run_id": res.RunID,
		"rows":   res.Rows,
	})
	h.sendJSON(w, summarize(res), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *AnalysisHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if res, err := h.analyzer.Latest(); err == nil {
		status["last_run_id"] = res.RunID
		status["last_run_at"] = res.CompletedAt.Format(time.RFC3339)
	}

	if h.store != nil {
		if err := h.store.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Store unreachable", logging.Fields{"error": err.Error()})
			status["status"] = "unhealthy"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	h.sendJSON(w, status, code)
}

func (h *AnalysisHandler) withResult(w http.ResponseWriter, r *http.Request, render func(*models.Result) interface{}) {
	res, err := h.analyzer.Latest()
	if errors.Is(err, services.ErrNoResult) {
		h.sendError(w, r, "no analysis has completed yet; POST /api/analysis/refresh to run one", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.Error(r.Context(), "[API_RESULT_ERROR] Failed to read latest result", logging.Fields{}, err)
		h.sendError(w, r, "failed to read analysis result", http.StatusInternalServerError)
		return
	}
	h.sendJSON(w, render(res), http.StatusOK)
}

func (h *AnalysisHandler) pagination(w http.ResponseWriter, r *http.Request, defaultLimit, maxLimit int) (page, limit int, ok bool) {
	page, limit = 1, defaultLimit

	if s := r.URL.Query().Get("page"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 1 {
			h.sendError(w, r, "invalid page, expected a positive integer", http.StatusBadRequest)
			return 0, 0, false
		}
		page = p
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 1 || l > maxLimit {
			h.sendError(w, r, "invalid limit, expected an integer between 1 and "+strconv.Itoa(maxLimit), http.StatusBadRequest)
			return 0, 0, false
		}
		limit = l
	}

	return page, limit, true
}

// sendRunError maps pipeline failures to 422 and everything else to 500
func (h *AnalysisHandler) sendRunError(w http.ResponseWriter, r *http.Request, err error) {
	kind := models.ErrorKind(err)
	if kind == "" {
		h.logger.Error(r.Context(), "[API_REFRESH_ERROR] Analysis run failed", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", routeName(r))
		h.sendError(w, r, "analysis run failed", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIError(kind, routeName(r))
	h.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(http.StatusUnprocessableEntity),
		Message: err.Error(),
		Code:    http.StatusUnprocessableEntity,
		Kind:    kind,
		Column:  models.ErrorColumn(err),
	}, http.StatusUnprocessableEntity)
}

func (h *AnalysisHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *AnalysisHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// instrument tags the request with an id and records duration and status per route
func (h *AnalysisHandler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(logging.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := routeName(r)
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(rec.status))
	})
}

// RegisterRoutes registers all analysis API routes
func (h *AnalysisHandler) RegisterRoutes(router *mux.Router) {
	router.Use(h.instrument)

	router.HandleFunc("/api/analysis", h.GetSummary).Methods(http.MethodGet)

	api := router.PathPrefix("/api/analysis").Subrouter()
	api.HandleFunc("/weekly", h.GetWeekly).Methods(http.MethodGet)
	api.HandleFunc("/monthly", h.GetMonthly).Methods(http.MethodGet)
	api.HandleFunc("/heatmap", h.GetHeatmap).Methods(http.MethodGet)
	api.HandleFunc("/distribution", h.GetDistribution).Methods(http.MethodGet)
	api.HandleFunc("/correlation", h.GetCorrelation).Methods(http.MethodGet)
	api.HandleFunc("/regression", h.GetRegression).Methods(http.MethodGet)
	api.HandleFunc("/missing", h.GetMissing).Methods(http.MethodGet)
	api.HandleFunc("/preview", h.GetPreview).Methods(http.MethodGet)
	api.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/docs", SwaggerUI).Methods(http.MethodGet)
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods(http.MethodGet)
}

var _ Analyzer = (*services.AnalysisService)(nil)

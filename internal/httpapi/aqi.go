package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/aqi"
	"github.com/ecp-air/airquality-backend/internal/auth"
	"github.com/ecp-air/airquality-backend/internal/middleware"
)

// nodeTokenHeader carries the node secret on ingestion requests.
const nodeTokenHeader = "X-Node-Token"

// AQIHandler exposes the air-quality ingestion and query endpoints.
type AQIHandler struct {
	svc     *aqi.Service
	limiter *middleware.RateLimiter
	logger  *zap.Logger
}

// NewAQIHandler creates the handler. The limiter bounds the ingestion
// endpoint only; queries are not rate limited.
func NewAQIHandler(svc *aqi.Service, limiter *middleware.RateLimiter, logger *zap.Logger) *AQIHandler {
	return &AQIHandler{svc: svc, limiter: limiter, logger: logger}
}

// RegisterRoutes mounts the air-quality routes on the router.
func (h *AQIHandler) RegisterRoutes(router *mux.Router) {
	router.Handle("/aqi/", h.limiter.Limit(http.HandlerFunc(h.Submit))).Methods(http.MethodPost)
	router.HandleFunc("/aqi/", h.Window).Methods(http.MethodGet)
	router.HandleFunc("/aqi/latest/{node_name}", h.Latest).Methods(http.MethodGet)
	router.HandleFunc("/aqi/months/{node_name}", h.Months).Methods(http.MethodGet)
	router.HandleFunc("/aqi/daily/{node_name}/{month}", h.DailySummary).Methods(http.MethodGet)
	router.HandleFunc("/aqi/hourly/{node_name}/{date}", h.HourlySummary).Methods(http.MethodGet)
	router.HandleFunc("/aqi/graph/{node_name}/{time_range}", h.Graph).Methods(http.MethodGet)
	router.HandleFunc("/aqi/aqi/{period}/{node_name}", h.AQISeries).Methods(http.MethodGet)
	router.HandleFunc("/aqi/summary/{period}/{node_name}", h.SummarySeries).Methods(http.MethodGet)
	router.HandleFunc("/aqi/aggregated/{node_name}", h.Aggregated).Methods(http.MethodGet)
}

// readingPayload uses pointer fields so a missing key is distinguishable
// from zero. A partial payload is rejected before anything is written.
type readingPayload struct {
	PM1         *float64 `json:"PM1"`
	PM25        *float64 `json:"PM2_5"`
	PM4         *float64 `json:"PM4"`
	PM10        *float64 `json:"PM10"`
	CO2         *float64 `json:"CO2"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

func (p *readingPayload) toReading() (aqi.Reading, error) {
	missing := ""
	switch {
	case p.PM1 == nil:
		missing = "PM1"
	case p.PM25 == nil:
		missing = "PM2_5"
	case p.PM4 == nil:
		missing = "PM4"
	case p.PM10 == nil:
		missing = "PM10"
	case p.CO2 == nil:
		missing = "CO2"
	case p.Temperature == nil:
		missing = "temperature"
	case p.Humidity == nil:
		missing = "humidity"
	}
	if missing != "" {
		return aqi.Reading{}, apperr.Newf(apperr.Validation, "missing required field %s", missing)
	}
	// Values are stored exactly as submitted; cleaning happens when they
	// cross back into a response, so store-side aggregates see raw data.
	return aqi.Reading{
		PM1:         *p.PM1,
		PM25:        *p.PM25,
		PM4:         *p.PM4,
		PM10:        *p.PM10,
		CO2:         *p.CO2,
		Temperature: *p.Temperature,
		Humidity:    *p.Humidity,
	}, nil
}

// Submit handles POST /aqi/ from nodes authenticated by secret token.
func (h *AQIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload readingPayload
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	reading, err := payload.toReading()
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	result, err := h.svc.SubmitReading(r.Context(), r.Header.Get(nodeTokenHeader), reading)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondCreated(w, "air quality data recorded", result)
}

func principalFrom(r *http.Request) *aqi.Principal {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		return nil
	}
	return &aqi.Principal{UserID: user.ID, Role: user.Role}
}

// Window handles GET /aqi/?node_name=...&hours=N.
func (h *AQIHandler) Window(w http.ResponseWriter, r *http.Request) {
	nodeName := r.URL.Query().Get("node_name")
	if nodeName == "" {
		respondError(w, h.logger, r, apperr.New(apperr.Validation, "node_name query parameter is required"))
		return
	}
	hours := 1
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, h.logger, r, apperr.New(apperr.Validation, "hours must be an integer"))
			return
		}
		hours = parsed
	}
	result, err := h.svc.Window(r.Context(), nodeName, hours, principalFrom(r))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "air quality data retrieved", result.Points, result.Metadata)
}

// Latest handles GET /aqi/latest/{node_name}.
func (h *AQIHandler) Latest(w http.ResponseWriter, r *http.Request) {
	nodeName := mux.Vars(r)["node_name"]
	result, err := h.svc.Latest(r.Context(), nodeName, principalFrom(r))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "latest readings retrieved", result.Points, result.Metadata)
}

// Months handles GET /aqi/months/{node_name}.
func (h *AQIHandler) Months(w http.ResponseWriter, r *http.Request) {
	nodeName := mux.Vars(r)["node_name"]
	result, err := h.svc.Months(r.Context(), nodeName)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "months with data retrieved", result.Months, map[string]interface{}{
		"node_name": nodeName,
		"count":     len(result.Months),
	})
}

// DailySummary handles GET /aqi/daily/{node_name}/{month}.
func (h *AQIHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.svc.DailySummary(r.Context(), vars["node_name"], vars["month"])
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "daily summary retrieved", result.Rows, result.Metadata)
}

// HourlySummary handles GET /aqi/hourly/{node_name}/{date}.
func (h *AQIHandler) HourlySummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.svc.HourlySummary(r.Context(), vars["node_name"], vars["date"])
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "hourly summary retrieved", result.Rows, result.Metadata)
}

// Graph handles GET /aqi/graph/{node_name}/{time_range}?data_type=FIELD.
func (h *AQIHandler) Graph(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	field := r.URL.Query().Get("data_type")
	if field == "" {
		field = aqi.FieldAQI
	}
	result, err := h.svc.Graph(r.Context(), vars["node_name"], vars["time_range"], field)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "graph data retrieved", result.Points, result.Metadata)
}

// AQISeries handles GET /aqi/aqi/{period}/{node_name}.
func (h *AQIHandler) AQISeries(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.svc.AQISeries(r.Context(), vars["node_name"], vars["period"], principalFrom(r))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "aqi data retrieved", result.Points, result.Metadata)
}

// SummarySeries handles GET /aqi/summary/{period}/{node_name}.
func (h *AQIHandler) SummarySeries(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.svc.SummarySeries(r.Context(), vars["node_name"], vars["period"], principalFrom(r))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "summary data retrieved", result.Points, result.Metadata)
}

// Aggregated handles GET /aqi/aggregated/{node_name}?timeframe=NAME.
func (h *AQIHandler) Aggregated(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "hourly"
	}
	result, err := h.svc.Aggregated(r.Context(), vars["node_name"], timeframe, principalFrom(r))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "aggregated data retrieved", result.Points, result.Metadata)
}

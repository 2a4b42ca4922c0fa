// Package http provides the HTTP surface of the prediction service.
package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"busdelay/ml"
)

// DefaultFeatureNames is the canonical input column list, used for the
// index documentation when the model has not loaded yet.
var DefaultFeatureNames = []string{
	"segment_id",
	"distance_km",
	"avg_speed_kmph",
	"traffic_mean",
	"traffic_std",
	"traffic_max",
	"traffic_p90",
	"rain_intensity",
	"temperature_celsius",
	"visibility_km",
	"num_signals",
	"num_stops",
	"is_holiday",
	"day_of_week",
	"hour_of_day",
}

// ExampleSingleRecord is the documented example request body.
var ExampleSingleRecord = map[string]interface{}{
	"segment_id":          3,
	"distance_km":         1.60,
	"avg_speed_kmph":      30.03,
	"traffic_mean":        1.48,
	"traffic_std":         0.14,
	"traffic_max":         1.82,
	"traffic_p90":         1.70,
	"rain_intensity":      2.53,
	"temperature_celsius": 28.52,
	"visibility_km":       6.07,
	"num_signals":         0,
	"num_stops":           2,
	"is_holiday":          1,
	"day_of_week":         6,
	"hour_of_day":         13,
}

// API holds the request handlers and the service objects they use. One
// instance is constructed at process start and registered on the mux.
type API struct {
	store  *ml.Store
	logger *zap.Logger
	cache  *lru.Cache[string, []float64]
}

// NewAPI creates the handler set. A positive cacheSize enables a bounded
// response cache over identical request bodies; inference is
// deterministic and the model is write-once, so cached entries never go
// stale.
func NewAPI(store *ml.Store, logger *zap.Logger, cacheSize int) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &API{store: store, logger: logger}
	if cacheSize > 0 {
		api.cache, _ = lru.New[string, []float64](cacheSize)
	}
	return api
}

// Register attaches all routes to the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("GET /ready", a.handleReady)
	mux.HandleFunc("GET /favicon.ico", a.handleFavicon)
	mux.HandleFunc("POST /predict", a.handlePredict)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

type indexResponse struct {
	Message             string                 `json:"message"`
	Endpoints           []string               `json:"endpoints"`
	RequiredFeatures    []string               `json:"required_features"`
	ExampleSingleRecord map[string]interface{} `json:"example_single_record"`
	Notes               []string               `json:"notes"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	features := DefaultFeatureNames
	if state, _ := a.store.Status(); state == ml.StateReady {
		if handle, err := a.store.Get(false); err == nil && handle.FeatureNames() != nil {
			features = handle.FeatureNames()
		}
	}
	writeJSON(w, http.StatusOK, indexResponse{
		Message:             "Bus delay API running",
		Endpoints:           []string{"/predict", "/ready"},
		RequiredFeatures:    features,
		ExampleSingleRecord: ExampleSingleRecord,
		Notes: []string{
			"POST JSON to /predict with Content-Type: application/json.",
			"Accepts either a single object (as shown) or a list of such objects for batch predictions.",
			"If the model exposes feature names, the server will reindex incoming data to that order; missing features become null (may cause prediction to fail).",
			"Numeric-like strings will be coerced where possible.",
		},
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	state, loadErr := a.store.Status()
	switch state {
	case ml.StateReady:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
	case ml.StateFailed:
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"ready": false,
			"error": loadErr,
		})
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"ready":   false,
			"message": "model loading",
		})
	}
}

func (a *API) handleFavicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	state, loadErr := a.store.Status()
	switch state {
	case ml.StateFailed:
		a.logger.Error("predict requested but model failed to load", zap.String("error", loadErr))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Model failed to load",
			Details: loadErr,
		})
		return
	case ml.StateLoading:
		a.logger.Info("predict requested while model is still loading")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "Model is still loading, try again shortly",
		})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Empty request body"})
		return
	}

	var cacheKey string
	if a.cache != nil {
		sum := sha256.Sum256(body)
		cacheKey = hex.EncodeToString(sum[:])
		if preds, ok := a.cache.Get(cacheKey); ok {
			writeJSON(w, http.StatusOK, predictResponse{Predictions: preds})
			return
		}
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON", Details: err.Error()})
		return
	}
	if payload == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Empty request body"})
		return
	}

	handle, err := a.store.Get(false)
	if err != nil {
		a.logger.Error("model unavailable", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Model failed to load",
			Details: err.Error(),
		})
		return
	}

	frame, err := ml.NormalizePayload(payload, handle)
	if err != nil {
		if errors.Is(err, ml.ErrUnsupportedFormat) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "Unsupported JSON format",
				Details: err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid payload", Details: err.Error()})
		return
	}

	preds, err := ml.Predict(handle, frame)
	if err != nil {
		// full detail stays server-side
		a.logger.Error("prediction failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Prediction failed",
			Details: "Internal server error",
		})
		return
	}
	if preds == nil {
		preds = []float64{}
	}

	if a.cache != nil {
		a.cache.Add(cacheKey, preds)
	}
	writeJSON(w, http.StatusOK, predictResponse{Predictions: preds})
}

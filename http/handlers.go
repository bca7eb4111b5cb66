package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"waterguard/features"
	"waterguard/predictor"
)

// API serves predictions from a Predictor loaded before the listener opens.
type API struct {
	predictor *predictor.Predictor
	logger    *zap.Logger
}

func NewAPI(p *predictor.Predictor, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{predictor: p, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", a.handlePredict)
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /model", a.handleModel)
}

type PredictResponse struct {
	Prediction string `json:"prediction"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	prediction, err := a.predictor.PredictJSON(body)
	if err != nil {
		var invalid *features.ValidationError
		if errors.As(err, &invalid) {
			a.logger.Debug("rejected prediction request",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("reason", invalid.Reason),
				zap.Strings("fields", invalid.Fields),
			)
			respondError(w, http.StatusBadRequest, invalid.Reason, invalid.Fields)
			return
		}
		a.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "prediction failed", nil)
		return
	}

	respondJSON(w, http.StatusOK, PredictResponse{Prediction: prediction.Verdict()})
}

func (a *API) handleModel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.predictor.Info())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, fields []string) {
	respondJSON(w, status, errorResponse{Error: message, Fields: fields})
}

package http

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"waterguard/features"
	"waterguard/ml"
	"waterguard/predictor"
)

const sampleBody = `{"ph":7.0,"Hardness":150,"Solids":20000,"Chloramines":7,"Sulfate":330,"Conductivity":420,"Organic_carbon":10,"Trihalomethanes":60,"Turbidity":4}`

func testPredictor(t *testing.T) *predictor.Predictor {
	t.Helper()
	schema := features.Default()
	var x [][]float64
	var y []int
	for i := 0; i < 20; i++ {
		row := []float64{6 + float64(i%4)*0.5, 150, 18000 + float64(i)*200, 7, 330, 420, 10, 60, float64(i%5) + 1}
		x = append(x, row)
		y = append(y, i%2)
	}
	forest := ml.NewRandomForest(ml.ForestParams{NTrees: 10, Bootstrap: true}, rand.New(rand.NewSource(9)))
	if err := forest.Train(context.Background(), x, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := predictor.New(ml.NewArtifact(schema, forest), 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewHandler(DefaultServerConfig(), testPredictor(t), nil)
}

func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(handleHealth)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := `{"status":"ok"}`
	if rr.Body.String() != expected+"\n" && rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestHandlePredict(t *testing.T) {
	handler := newTestHandler(t)

	var first string
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(sampleBody))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		body := strings.TrimSpace(w.Body.String())
		if body != `{"prediction":"Safe"}` && body != `{"prediction":"Unsafe"}` {
			t.Fatalf("unexpected body %s", body)
		}
		if first == "" {
			first = body
		} else if body != first {
			t.Fatalf("prediction changed between identical requests: %s vs %s", first, body)
		}
	}
}

func TestHandlePredictRejectsBadInput(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name   string
		body   string
		status int
		error  string
		fields []string
	}{
		{
			name:   "empty body",
			body:   "",
			status: http.StatusBadRequest,
			error:  "invalid JSON body",
		},
		{
			name:   "missing key",
			body:   strings.Replace(sampleBody, `"Sulfate":330,`, "", 1),
			status: http.StatusBadRequest,
			error:  "missing required fields",
			fields: []string{features.Sulfate},
		},
		{
			name:   "non-numeric",
			body:   strings.Replace(sampleBody, `"Turbidity":4`, `"Turbidity":"cloudy"`, 1),
			status: http.StatusBadRequest,
			error:  "non-numeric fields",
			fields: []string{features.Turbidity},
		},
		{
			name:   "too large",
			body:   `{"pad":"` + strings.Repeat("x", 2<<20) + `"}`,
			status: http.StatusRequestEntityTooLarge,
			error:  "request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			var payload errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if payload.Error != tt.error {
				t.Fatalf("unexpected error %q", payload.Error)
			}
			if len(payload.Fields) != len(tt.fields) || (len(tt.fields) > 0 && payload.Fields[0] != tt.fields[0]) {
				t.Fatalf("unexpected fields %v", payload.Fields)
			}
		})
	}

	// The server keeps serving after rejected requests.
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(sampleBody))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after rejections, got %d", w.Code)
	}
}

func TestHandlePredictMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestHandleModel(t *testing.T) {
	handler := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/model", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var info predictor.ModelInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if info.Trees != 10 || len(info.Features) != 9 || info.ModelType != ml.ModelTypeRandomForest {
		t.Fatalf("unexpected model info %+v", info)
	}
	if strings.Contains(w.Body.String(), "nodes") {
		t.Fatal("model info must not include tree nodes")
	}
}

package ui

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gasx/adapters/memory"
	"gasx/app"
	"gasx/internal"
	"gasx/internal/config"
)

func testServer() *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", GinMode: "test"},
		Model:  config.ModelConfig{Sims: 100, Seed: 1, Iterations: 100},
	}
	svc := app.NewFitService(memory.NewLedger(), internal.NewLogger(internal.LogLevelError))
	return NewServer(cfg, svc, internal.NewLogger(internal.LogLevelError))
}

func testData(n int) map[string]interface{} {
	rng := rand.New(rand.NewPCG(51, 53))
	y := make([]float64, n)
	for i := range y {
		y[i] = math.Floor(3 + 3*rng.Float64())
	}
	return map[string]interface{}{
		"names":   []string{"y"},
		"columns": [][]float64{y},
	}
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFitEndpoint(t *testing.T) {
	s := testServer()

	w := postJSON(t, s, "/api/fit", map[string]interface{}{
		"formula": "y ~ 1",
		"family":  "poisson",
		"ar":      1,
		"sc":      1,
		"method":  "MLE",
		"data":    testData(60),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Manifest struct {
			RunID  string `json:"run_id"`
			Method string `json:"method"`
		} `json:"manifest"`
		Latents struct {
			Names  []string  `json:"names"`
			Values []float64 `json:"values"`
		} `json:"latents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Manifest.RunID)
	assert.Equal(t, "MLE", resp.Manifest.Method)
	// intercept + ar + sc for an intercept-only poisson model
	assert.Len(t, resp.Latents.Names, 3)
	assert.Len(t, resp.Latents.Values, 3)
}

func TestFitEndpoint_BadRequests(t *testing.T) {
	s := testServer()

	w := postJSON(t, s, "/api/fit", map[string]interface{}{
		"formula": "y ~ 1",
		"family":  "cauchy",
		"method":  "MLE",
		"data":    testData(60),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, s, "/api/fit", map[string]interface{}{
		"formula": "y ~ 1",
		"family":  "poisson",
		"method":  "gibbs",
		"data":    testData(60),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, s, "/api/fit", map[string]interface{}{
		"formula": "y ~ 1",
		"family":  "poisson",
		"method":  "MLE",
		"data":    testData(4),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFitEndpoint_SeedDefaultsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", GinMode: "test"},
		Model:  config.ModelConfig{Sims: 100, Seed: 9, Iterations: 100},
	}
	svc := app.NewFitService(memory.NewLedger(), internal.NewLogger(internal.LogLevelError))
	s := NewServer(cfg, svc, internal.NewLogger(internal.LogLevelError))

	w := postJSON(t, s, "/api/fit", map[string]interface{}{
		"formula": "y ~ 1",
		"family":  "poisson",
		"ar":      1,
		"sc":      1,
		"method":  "MLE",
		"data":    testData(60),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Manifest struct {
			Seed uint64 `json:"seed"`
		} `json:"manifest"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(9), resp.Manifest.Seed)
}

func TestPredictISEndpoint(t *testing.T) {
	s := testServer()

	w := postJSON(t, s, "/api/fit", map[string]interface{}{
		"formula": "y ~ 1",
		"family":  "poisson",
		"ar":      1,
		"sc":      1,
		"method":  "Laplace",
		"data":    testData(60),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var fitResp struct {
		Manifest struct {
			RunID string `json:"run_id"`
		} `json:"manifest"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fitResp))

	w = postJSON(t, s, "/api/runs/"+fitResp.Manifest.RunID+"/predict-is", map[string]interface{}{
		"h":         5,
		"intervals": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var predResp struct {
		Columns []string    `json:"columns"`
		Values  [][]float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &predResp))
	assert.Len(t, predResp.Values, 5)
	assert.Len(t, predResp.Columns, 5)
}

func TestPredictEndpoint_UnknownRun(t *testing.T) {
	s := testServer()
	w := postJSON(t, s, "/api/runs/nope/predict-is", map[string]interface{}{"h": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRunEndpoint(t *testing.T) {
	s := testServer()

	w := postJSON(t, s, "/api/fit", map[string]interface{}{
		"formula": "y ~ 1",
		"family":  "poisson",
		"ar":      1,
		"sc":      1,
		"method":  "MLE",
		"data":    testData(60),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var fitResp struct {
		Manifest struct {
			RunID string `json:"run_id"`
		} `json:"manifest"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fitResp))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+fitResp.Manifest.RunID, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

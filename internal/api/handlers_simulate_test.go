package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/radioastro101/backend/internal/imaging"
	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/models"
)

type fakeSimulator struct {
	err  error
	last models.SimulationRequest
}

func (f *fakeSimulator) Run(_ context.Context, req models.SimulationRequest) (*models.SimulationResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	beam := imaging.NewGrid(2, 2)
	beam.Set(1, 1, 6)
	return &models.SimulationResult{
		Request:    req,
		Metadata:   models.SimulationMetadata{ID: "run-1", Antennas: 4, Baselines: 6, Samples: 12},
		DirtyImage: imaging.NewGrid(2, 2),
		DirtyBeam:  beam,
		SkyModel:   imaging.NewGrid(2, 2),
		UVW:        models.Points{X: []float64{1, -1}, Y: []float64{2, -2}},
	}, nil
}

type fakeRunHistory struct {
	runs      []models.RunSummary
	lastLimit int
}

func (f *fakeRunHistory) List(_ context.Context, limit int) ([]models.RunSummary, error) {
	f.lastLimit = limit
	return f.runs, nil
}

func (f *fakeRunHistory) Get(_ context.Context, id string) (*models.RunSummary, error) {
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, interferometry.Resourcef("get run", "run %s not found", id)
}

const simulateBody = `{"array":"kat-7","skyModel":"point_source","synthesisTime":1,"integrationTime":60,"wavelength":0.21,"declination":-30}`

func TestHandleSimulateJSON(t *testing.T) {
	sim := &fakeSimulator{}
	h := NewSimulationHandler(sim, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/simulate", strings.NewReader(simulateBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.HandleSimulate(echo.New().NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kat-7", sim.last.Array)
	assert.Equal(t, 0.21, sim.last.Wavelength)
	assert.Equal(t, -30.0, sim.last.Declination)

	var result models.SimulationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "run-1", result.Metadata.ID)
	assert.Equal(t, 6.0, result.DirtyBeam.Max())
	assert.Equal(t, []float64{1, -1}, result.UVW.X)
}

func TestHandleSimulateMsgpack(t *testing.T) {
	tests := []struct {
		name   string
		target string
		accept string
	}{
		{"query parameter", "/api/simulate?format=msgpack", ""},
		{"accept header", "/api/simulate", MIMEApplicationMsgpack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSimulationHandler(&fakeSimulator{}, nil, nil)
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(simulateBody))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tt.accept != "" {
				req.Header.Set(echo.HeaderAccept, tt.accept)
			}
			rec := httptest.NewRecorder()
			require.NoError(t, h.HandleSimulate(echo.New().NewContext(req, rec)))

			assert.Equal(t, MIMEApplicationMsgpack, rec.Header().Get(echo.HeaderContentType))
			var result models.SimulationResult
			require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, "run-1", result.Metadata.ID)
			assert.Equal(t, 12, result.Metadata.Samples)
			assert.Equal(t, 2, result.DirtyBeam.Rows)
		})
	}
}

func TestHandleSimulateMsgpackRequestBody(t *testing.T) {
	sim := &fakeSimulator{}
	h := NewSimulationHandler(sim, nil, nil)

	body, err := msgpack.Marshal(models.SimulationRequest{Array: "vla", SkyModel: "m31", SynthesisTime: 2, IntegrationTime: 30, Wavelength: 0.06, Zenith: true})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/simulate", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, MIMEApplicationMsgpack)
	rec := httptest.NewRecorder()
	require.NoError(t, h.HandleSimulate(echo.New().NewContext(req, rec)))

	assert.Equal(t, "vla", sim.last.Array)
	assert.True(t, sim.last.Zenith)
	assert.Equal(t, echo.MIMEApplicationJSON, strings.Split(rec.Header().Get(echo.HeaderContentType), ";")[0])
}

func TestHandleSimulateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"malformed body", `{"array":`, nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"validation", simulateBody, interferometry.Validationf("validate request", "integration time must be positive"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown preset", simulateBody, interferometry.Resourcef("resolve array", "unknown array %q", "x"), http.StatusNotFound, "RESOURCE_ERROR"},
		{"computation", simulateBody, interferometry.Computationf("baselines", "need at least two antennas"), http.StatusUnprocessableEntity, "COMPUTATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSimulationHandler(&fakeSimulator{err: tt.err}, nil, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/simulate", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			err := h.HandleSimulate(echo.New().NewContext(req, httptest.NewRecorder()))
			assertAPIError(t, err, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestHandleRuns(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := &fakeRunHistory{runs: []models.RunSummary{
		{ID: "b", CreatedAt: at.Add(time.Minute), Array: "vla"},
		{ID: "a", CreatedAt: at, Array: "kat-7"},
	}}
	h := NewSimulationHandler(&fakeSimulator{}, history, nil)
	e := echo.New()

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/runs?limit=10", nil), rec)
		require.NoError(t, h.HandleListRuns(c))

		var runs []models.RunSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		assert.Len(t, runs, 2)
		assert.Equal(t, "b", runs[0].ID)
		assert.Equal(t, 10, history.lastLimit)
	})

	t.Run("limit is capped", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/runs?limit=100000", nil), httptest.NewRecorder())
		require.NoError(t, h.HandleListRuns(c))
		assert.Equal(t, maxRunsLimit, history.lastLimit)
	})

	t.Run("bad limit", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/runs?limit=ten", nil), httptest.NewRecorder())
		assertAPIError(t, h.HandleListRuns(c), http.StatusBadRequest, "VALIDATION_ERROR")
	})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/runs/a", nil), rec)
		c.SetParamNames("id")
		c.SetParamValues("a")
		require.NoError(t, h.HandleGetRun(c))
		assert.Contains(t, rec.Body.String(), `"array":"kat-7"`)
	})

	t.Run("get unknown", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/runs/zzz", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues("zzz")
		assertAPIError(t, h.HandleGetRun(c), http.StatusNotFound, "RESOURCE_ERROR")
	})
}

func TestHandleRunsWithoutHistory(t *testing.T) {
	h := NewSimulationHandler(&fakeSimulator{}, nil, nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/runs", nil), rec)
	require.NoError(t, h.HandleListRuns(c))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

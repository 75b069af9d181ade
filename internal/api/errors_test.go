package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/storage"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantOp     string
	}{
		{"validation", interferometry.Validationf("validate request", "wavelength must be positive"), http.StatusBadRequest, "VALIDATION_ERROR", "validate request"},
		{"wrapped resource", fmt.Errorf("array kat-7: %w", interferometry.Resourcef("parse antennas", "missing")), http.StatusNotFound, "RESOURCE_ERROR", "parse antennas"},
		{"computation", interferometry.Computationf("psf", "no samples"), http.StatusUnprocessableEntity, "COMPUTATION_ERROR", "psf"},
		{"storage not found", fmt.Errorf("lookup: %w", storage.ErrNotFound), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
		{"api error passes through", NewForbiddenError("nope"), http.StatusForbidden, "FORBIDDEN", ""},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantOp, apiErr.Op)
		})
	}
}

func TestFromErrorHidesInternalMessage(t *testing.T) {
	apiErr := FromError(errors.New("db password rejected"))
	assert.Equal(t, "an unexpected error occurred", apiErr.Message)
	assert.Equal(t, "db password rejected", apiErr.Details)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", NewNotFoundError("file", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"kinded error", interferometry.Computationf("convolve", "shape mismatch"), http.StatusUnprocessableEntity, "COMPUTATION_ERROR"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	handler := ErrorHandler(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/x", nil), rec)
			handler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

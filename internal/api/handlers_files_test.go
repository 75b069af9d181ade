// handlers_files_test.go - Tests for upload handlers
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/radioastro101/backend/internal/models"
	"github.com/radioastro101/backend/internal/testutil"
)

const antennaTable = "NAME X Y Z\nA1 0 0 0\nA2 100 0 0\nA3 0 100 0\n"

var allowAll = FileOptions{AllowDeletion: true}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.SetGray(w/2, h/2, color.Gray{Y: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func newJSONContext(method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func assertAPIError(t *testing.T, err error, wantStatus int, wantCode string) {
	t.Helper()
	if err == nil {
		t.Errorf("expected error, got nil")
		return
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Errorf("expected APIError, got %T", err)
		return
	}
	if apiErr.Status != wantStatus {
		t.Errorf("expected status %d, got %d", wantStatus, apiErr.Status)
	}
	if apiErr.Code != wantCode {
		t.Errorf("expected error code %s, got %s", wantCode, apiErr.Code)
	}
}

func TestFileHandler_HandleUploadAntennas(t *testing.T) {
	tests := []struct {
		name        string
		request     uploadFileRequest
		opts        FileOptions
		wantStatus  int
		wantErr     bool
		errCode     string
		wantSummary string
	}{
		{
			name:        "valid table",
			request:     uploadFileRequest{Name: "square.itrf", Data: encode([]byte(antennaTable))},
			opts:        allowAll,
			wantStatus:  http.StatusCreated,
			wantSummary: "3 antennas",
		},
		{
			name:       "empty name",
			request:    uploadFileRequest{Data: encode([]byte(antennaTable))},
			opts:       allowAll,
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "empty data",
			request:    uploadFileRequest{Name: "square.itrf"},
			opts:       allowAll,
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "invalid base64",
			request:    uploadFileRequest{Name: "square.itrf", Data: "not-valid-base64!!!"},
			opts:       allowAll,
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "BAD_REQUEST",
		},
		{
			name:       "unparseable table",
			request:    uploadFileRequest{Name: "broken.itrf", Data: encode([]byte("X Y Z\n1 2 three\n"))},
			opts:       allowAll,
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "extension not allowed",
			request:    uploadFileRequest{Name: "square.csv", Data: encode([]byte(antennaTable))},
			opts:       FileOptions{AllowedExtensions: map[string]bool{".itrf": true}},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:        "extension check is case insensitive",
			request:     uploadFileRequest{Name: "SQUARE.ITRF", Data: encode([]byte(antennaTable))},
			opts:        FileOptions{AllowedExtensions: map[string]bool{".itrf": true}},
			wantStatus:  http.StatusCreated,
			wantSummary: "3 antennas",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage()
			handler := NewFileHandler(store, tt.opts, nil)
			c, rec := newJSONContext(http.MethodPost, "/api/files/antennas", tt.request)

			err := handler.HandleUploadAntennas(c)

			if tt.wantErr {
				assertAPIError(t, err, tt.wantStatus, tt.errCode)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var response models.FileInfo
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.ID == "" {
				t.Error("expected non-empty ID in response")
			}
			if response.Kind != models.FileKindAntennas {
				t.Errorf("expected kind %s, got %s", models.FileKindAntennas, response.Kind)
			}
			if response.Summary != tt.wantSummary {
				t.Errorf("expected summary %q, got %q", tt.wantSummary, response.Summary)
			}
			if response.Status != "validated" {
				t.Errorf("expected status validated, got %s", response.Status)
			}
		})
	}
}

func TestFileHandler_HandleUploadSkyModel(t *testing.T) {
	store := testutil.NewMockStorage()
	handler := NewFileHandler(store, allowAll, nil)

	// Odd dimensions are trimmed to even ones.
	c, rec := newJSONContext(http.MethodPost, "/api/files/skymodels",
		uploadFileRequest{Name: "galaxy.png", Data: encode(pngBytes(t, 33, 20))})
	if err := handler.HandleUploadSkyModel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	var response models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Summary != "20x32" {
		t.Errorf("expected summary 20x32, got %q", response.Summary)
	}
	if response.Kind != models.FileKindSkyModel {
		t.Errorf("expected kind %s, got %s", models.FileKindSkyModel, response.Kind)
	}

	// Not an image
	c, _ = newJSONContext(http.MethodPost, "/api/files/skymodels",
		uploadFileRequest{Name: "notes.png", Data: encode([]byte("plain text"))})
	assertAPIError(t, handler.HandleUploadSkyModel(c), http.StatusBadRequest, "VALIDATION_ERROR")

	files, _ := store.List("", 0)
	if len(files) != 1 {
		t.Errorf("expected only the valid upload to be stored, got %d files", len(files))
	}
}

func TestFileHandler_HandleUploadSkyModelTooLarge(t *testing.T) {
	store := testutil.NewMockStorage()
	handler := NewFileHandler(store, FileOptions{MaxSkySize: 64}, nil)

	// A blank image compresses to a few hundred bytes whatever its size.
	c, _ := newJSONContext(http.MethodPost, "/api/files/skymodels",
		uploadFileRequest{Name: "huge.png", Data: encode(pngBytes(t, 4000, 8))})
	assertAPIError(t, handler.HandleUploadSkyModel(c), http.StatusBadRequest, "VALIDATION_ERROR")

	c, _ = newJSONContext(http.MethodPost, "/api/files/skymodels",
		uploadFileRequest{Name: "fits.png", Data: encode(pngBytes(t, 64, 64))})
	if err := handler.HandleUploadSkyModel(c); err != nil {
		t.Fatalf("unexpected error at the size limit: %v", err)
	}

	files, _ := store.List("", 0)
	if len(files) != 1 {
		t.Errorf("expected only the image within the limit to be stored, got %d files", len(files))
	}
}

func TestFileHandler_HandleGetRecentFiles(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*testutil.MockStorage)
		query      string
		wantCount  int
		wantStatus int
		wantErr    bool
	}{
		{
			name:       "empty storage",
			setup:      func(*testutil.MockStorage) {},
			wantCount:  0,
			wantStatus: http.StatusOK,
		},
		{
			name: "kind filter",
			setup: func(m *testutil.MockStorage) {
				m.AddFile("a1", "a1.itrf", models.FileKindAntennas, []byte(antennaTable))
				m.AddFile("s1", "s1.png", models.FileKindSkyModel, nil)
				m.AddFile("s2", "s2.png", models.FileKindSkyModel, nil)
			},
			query:      "?kind=skymodel",
			wantCount:  2,
			wantStatus: http.StatusOK,
		},
		{
			name: "many files limited to 20",
			setup: func(m *testutil.MockStorage) {
				for i := 0; i < 30; i++ {
					m.AddFile(fmt.Sprintf("id-%d", i), fmt.Sprintf("file%d.itrf", i), models.FileKindAntennas, nil)
				}
			},
			wantCount:  20,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown kind",
			setup:      func(*testutil.MockStorage) {},
			query:      "?kind=logs",
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage()
			tt.setup(store)
			handler := NewFileHandler(store, allowAll, nil)

			c, rec := newJSONContext(http.MethodGet, "/api/files/recent"+tt.query, nil)
			err := handler.HandleGetRecentFiles(c)
			if tt.wantErr {
				assertAPIError(t, err, tt.wantStatus, "VALIDATION_ERROR")
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var files []models.FileInfo
			if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if len(files) != tt.wantCount {
				t.Errorf("expected %d files, got %d", tt.wantCount, len(files))
			}
		})
	}
}

func TestFileHandler_FileOperations(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("ant-1", "array.itrf", models.FileKindAntennas, []byte(antennaTable))
	handler := NewFileHandler(store, allowAll, nil)
	e := echo.New()

	// Get existing file
	req := httptest.NewRequest(http.MethodGet, "/api/files/ant-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ant-1")
	if err := handler.HandleGetFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"name":"array.itrf"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	// Rename
	req = httptest.NewRequest(http.MethodPut, "/api/files/ant-1", strings.NewReader(`{"name":" renamed.itrf "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ant-1")
	if err := handler.HandleRenameFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, _ := store.Get("ant-1")
	if info.Name != "renamed.itrf" {
		t.Errorf("expected renamed.itrf, got %s", info.Name)
	}

	// Rename with blank name
	req = httptest.NewRequest(http.MethodPut, "/api/files/ant-1", strings.NewReader(`{"name":"  "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("ant-1")
	assertAPIError(t, handler.HandleRenameFile(c), http.StatusBadRequest, "VALIDATION_ERROR")

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/api/files/ant-1", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ant-1")
	if err := handler.HandleDeleteFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}

	// Get after delete
	req = httptest.NewRequest(http.MethodGet, "/api/files/ant-1", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("ant-1")
	assertAPIError(t, handler.HandleGetFile(c), http.StatusNotFound, "NOT_FOUND")
}

func TestFileHandler_DeletionDisabled(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("ant-1", "array.itrf", models.FileKindAntennas, []byte(antennaTable))
	handler := NewFileHandler(store, FileOptions{AllowDeletion: false}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/files/ant-1", nil)
	c := echo.New().NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("ant-1")

	assertAPIError(t, handler.HandleDeleteFile(c), http.StatusForbidden, "FORBIDDEN")
	if _, err := store.Get("ant-1"); err != nil {
		t.Errorf("file should still exist: %v", err)
	}
}

// handlers_files.go - Antenna table and sky image upload handlers
package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/models"
	"github.com/radioastro101/backend/internal/parser"
	"github.com/radioastro101/backend/internal/skymodel"
	"github.com/radioastro101/backend/internal/storage"
)

const recentFilesLimit = 20

// FileOptions holds the upload policy from the security config.
type FileOptions struct {
	AllowDeletion bool
	// AllowedExtensions are lower-case with the leading dot. Empty allows any.
	AllowedExtensions map[string]bool
	// MaxSkySize bounds each edge of an uploaded sky image. Zero means
	// skymodel.DefaultMaxSize.
	MaxSkySize int
}

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store storage.Store
	opts  FileOptions
	log   logging.Logger
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store storage.Store, opts FileOptions, log logging.Logger) FileHandler {
	if log == nil {
		log = logging.Noop()
	}
	return &FileHandlerImpl{store: store, opts: opts, log: log}
}

// validator checks uploaded content and summarises it.
type validator func(data []byte) (string, error)

func validateAntennas(data []byte) (string, error) {
	table, err := parser.ParseAntennaTable(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d antennas", table.Len()), nil
}

func (h *FileHandlerImpl) validateSkyModel(data []byte) (string, error) {
	g, err := skymodel.LoadBytes(data, h.opts.MaxSkySize)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%dx%d", g.Rows, g.Cols), nil
}

// HandleUploadAntennas accepts an antenna position table as base64 JSON
func (h *FileHandlerImpl) HandleUploadAntennas(c echo.Context) error {
	return h.upload(c, models.FileKindAntennas, validateAntennas)
}

// HandleUploadSkyModel accepts a sky model image as base64 JSON
func (h *FileHandlerImpl) HandleUploadSkyModel(c echo.Context) error {
	return h.upload(c, models.FileKindSkyModel, h.validateSkyModel)
}

func (h *FileHandlerImpl) upload(c echo.Context, kind models.FileKind, validate validator) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(h.opts.AllowedExtensions); err != nil {
		return err
	}

	// Decode base64 content
	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	summary, err := validate(decoded)
	if err != nil {
		return FromError(err)
	}

	info, err := h.store.Save(storage.Upload{Name: req.Name, Kind: kind, Summary: summary}, bytes.NewReader(decoded))
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	ctx := c.Request().Context()
	logging.FromContext(ctx, h.log).Info(ctx, "file uploaded",
		logging.String("id", info.ID),
		logging.String("kind", string(kind)),
		logging.String("summary", summary),
	)
	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns recently uploaded files, optionally of one kind
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	kind := models.FileKind(c.QueryParam("kind"))
	switch kind {
	case "", models.FileKindAntennas, models.FileKindSkyModel:
	default:
		return NewValidationError("kind")
	}

	files, err := h.store.List(kind, recentFilesLimit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	if files == nil {
		files = []*models.FileInfo{}
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return storeError(err, id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes an uploaded file
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	if !h.opts.AllowDeletion {
		return NewForbiddenError("file deletion is disabled")
	}
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return storeError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the name of a file
func (h *FileHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, strings.TrimSpace(req.Name))
	if err != nil {
		return storeError(err, id)
	}
	return c.JSON(http.StatusOK, info)
}

func storeError(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("file", id)
	}
	return NewInternalError("file storage failed", err)
}

// Request/Response types

type uploadFileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate(allowed map[string]bool) error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	if len(allowed) > 0 {
		ext := strings.ToLower(filepath.Ext(r.Name))
		if !allowed[ext] {
			return &APIError{
				Status:  http.StatusBadRequest,
				Code:    "VALIDATION_ERROR",
				Message: fmt.Sprintf("file type %q is not allowed", ext),
			}
		}
	}
	return nil
}

type renameFileRequest struct {
	Name string `json:"name"`
}

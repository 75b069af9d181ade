// handlers_simulate.go - Simulation and run history handlers
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/models"
)

// MIMEApplicationMsgpack is the content type of MessagePack bodies.
const MIMEApplicationMsgpack = "application/msgpack"

const maxRunsLimit = 500

// SimulationHandlerImpl implements the SimulationHandler interface
type SimulationHandlerImpl struct {
	sim     Simulator
	history RunHistory
	log     logging.Logger
}

// NewSimulationHandler creates a new simulation handler. history may be nil.
func NewSimulationHandler(sim Simulator, history RunHistory, log logging.Logger) SimulationHandler {
	if log == nil {
		log = logging.Noop()
	}
	return &SimulationHandlerImpl{sim: sim, history: history, log: log}
}

// HandleSimulate runs the pipeline for a JSON or MessagePack request
func (h *SimulationHandlerImpl) HandleSimulate(c echo.Context) error {
	var req models.SimulationRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	result, err := h.sim.Run(c.Request().Context(), req)
	if err != nil {
		return FromError(err)
	}
	return respond(c, http.StatusOK, result)
}

// HandleListRuns returns the most recent runs, newest first
func (h *SimulationHandlerImpl) HandleListRuns(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewValidationError("limit")
		}
		limit = min(n, maxRunsLimit)
	}
	if h.history == nil {
		return c.JSON(http.StatusOK, []models.RunSummary{})
	}

	runs, err := h.history.List(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to list runs", err)
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	return c.JSON(http.StatusOK, runs)
}

// HandleGetRun returns one stored run
func (h *SimulationHandlerImpl) HandleGetRun(c echo.Context) error {
	id := c.Param("id")
	if h.history == nil {
		return NewNotFoundError("run", id)
	}
	run, err := h.history.Get(c.Request().Context(), id)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, run)
}

// bindRequest decodes a MessagePack body when the client sends one and
// falls back to echo's binder otherwise.
func bindRequest(c echo.Context, v any) error {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, MIMEApplicationMsgpack) {
		if err := msgpack.NewDecoder(c.Request().Body).Decode(v); err != nil {
			return NewBadRequestError("invalid msgpack body", err)
		}
		return nil
	}
	if err := c.Bind(v); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	return nil
}

// wantsMsgpack reports whether the client asked for a MessagePack response.
func wantsMsgpack(c echo.Context) bool {
	if strings.EqualFold(c.QueryParam("format"), "msgpack") {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack)
}

func respond(c echo.Context, status int, v any) error {
	if !wantsMsgpack(c) {
		return c.JSON(status, v)
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(status, MIMEApplicationMsgpack, data)
}

package http

import (
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	pkgerrors "github.com/Conte777/NewsFlow/services/migration-service/pkg/errors"
	"github.com/Conte777/NewsFlow/services/migration-service/pkg/httputil"
)

// StateResponse is returned by the pause, resume, cancel and speed commands
type StateResponse struct {
	State entities.State `json:"state"`
	Speed entities.Speed `json:"speed"`
}

// Handler handles migration command HTTP requests
type Handler struct {
	useCase deps.MigrationService
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewHandler creates a new migration handler
func NewHandler(useCase deps.MigrationService, logger zerolog.Logger) *Handler {
	return &Handler{
		useCase: useCase,
		mapper:  pkgerrors.NewMapper(logger),
		logger:  logger.With().Str("handler", "migration").Logger(),
	}
}

// Start handles POST /api/v1/migration/start
func (h *Handler) Start(ctx *fasthttp.RequestCtx) {
	var req entities.StartRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	run, err := h.useCase.Start(ctx, req)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("source", req.Source).
			Str("target", req.Target).
			Msg("failed to start migration")
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponseWithStatus(ctx, run, fasthttp.StatusAccepted)
}

// Pause handles POST /api/v1/migration/pause
func (h *Handler) Pause(ctx *fasthttp.RequestCtx) {
	h.command(ctx, h.useCase.Pause)
}

// Resume handles POST /api/v1/migration/resume
func (h *Handler) Resume(ctx *fasthttp.RequestCtx) {
	h.command(ctx, h.useCase.Resume)
}

// Cancel handles POST /api/v1/migration/cancel
func (h *Handler) Cancel(ctx *fasthttp.RequestCtx) {
	h.command(ctx, h.useCase.Cancel)
}

// SetSpeed handles PUT /api/v1/migration/speed/{name}
func (h *Handler) SetSpeed(ctx *fasthttp.RequestCtx) {
	name, ok := ctx.UserValue("name").(string)
	if !ok || name == "" {
		httputil.WriteErrorResponse(ctx, "speed name is required", fasthttp.StatusBadRequest)
		return
	}

	h.command(ctx, func() error {
		return h.useCase.SetSpeed(name)
	})
}

func (h *Handler) command(ctx *fasthttp.RequestCtx, fn func() error) {
	if err := fn(); err != nil {
		h.handleError(ctx, err)
		return
	}

	stats := h.useCase.Statistics()
	httputil.WriteResponse(ctx, StateResponse{State: stats.State, Speed: stats.Speed})
}

// Statistics handles GET /api/v1/migration/statistics
func (h *Handler) Statistics(ctx *fasthttp.RequestCtx) {
	httputil.WriteResponse(ctx, h.useCase.Statistics())
}

// Status handles GET /api/v1/migration/status
func (h *Handler) Status(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(h.useCase.DetailedStatus())
}

// ListRuns handles GET /api/v1/migration/runs?limit=N
func (h *Handler) ListRuns(ctx *fasthttp.RequestCtx) {
	limit := ctx.QueryArgs().GetUintOrZero("limit")

	runs, err := h.useCase.ListRuns(ctx, limit)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, runs)
}

// GetRun handles GET /api/v1/migration/runs/{id}
func (h *Handler) GetRun(ctx *fasthttp.RequestCtx) {
	id, ok := ctx.UserValue("id").(string)
	if !ok || id == "" {
		httputil.WriteErrorResponse(ctx, "run id is required", fasthttp.StatusBadRequest)
		return
	}

	run, err := h.useCase.GetRun(ctx, id)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, run)
}

func (h *Handler) handleError(ctx *fasthttp.RequestCtx, err error) {
	status, message := h.mapper.MapErrorToHTTP(err)
	httputil.WriteErrorResponse(ctx, message, status)
}

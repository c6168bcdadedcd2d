package http

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	migrationerrors "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/errors"
	"github.com/Conte777/NewsFlow/services/migration-service/pkg/httputil"
)

type fakeService struct {
	startReq  entities.StartRequest
	startErr  error
	pauseErr  error
	speed     string
	runsLimit int
	state     entities.State
}

func (s *fakeService) Start(ctx context.Context, req entities.StartRequest) (*entities.Run, error) {
	s.startReq = req
	if s.startErr != nil {
		return nil, s.startErr
	}
	return &entities.Run{ID: "run-1", Source: req.Source, Target: req.Target, State: entities.StateRunning}, nil
}

func (s *fakeService) Pause() error { return s.pauseErr }

func (s *fakeService) Resume() error { return nil }

func (s *fakeService) Cancel() error { return migrationerrors.ErrNotActive }

func (s *fakeService) SetSpeed(name string) error {
	if name != "slow" && name != "normal" && name != "fast" {
		return migrationerrors.ErrUnknownSpeed
	}
	s.speed = name
	return nil
}

func (s *fakeService) Statistics() entities.Statistics {
	return entities.Statistics{State: s.state, Speed: entities.Speed(s.speed)}
}

func (s *fakeService) DetailedStatus() string { return "No migration has been started." }

func (s *fakeService) ListRuns(ctx context.Context, limit int) ([]entities.Run, error) {
	s.runsLimit = limit
	return []entities.Run{{ID: "run-1"}}, nil
}

func (s *fakeService) GetRun(ctx context.Context, id string) (*entities.Run, error) {
	if id != "run-1" {
		return nil, migrationerrors.ErrRunNotFound
	}
	return &entities.Run{ID: id}, nil
}

func serve(t *testing.T, svc *fakeService, method, uri, body string) (*fasthttp.RequestCtx, httputil.Response) {
	t.Helper()

	rt := router.New()
	NewRouter(NewHandler(svc, zerolog.Nop()), zerolog.Nop()).RegisterRoutes(rt)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	rt.Handler(ctx)

	var resp httputil.Response
	if string(ctx.Response.Header.ContentType()) == "application/json" {
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	}
	return ctx, resp
}

func TestHandler_Start(t *testing.T) {
	svc := &fakeService{}
	ctx, resp := serve(t, svc, fasthttp.MethodPost, "/api/v1/migration/start",
		`{"source":"@src","target":"@dst","mode":"simple","strategy":"advanced","speed":"fast"}`)

	assert.Equal(t, fasthttp.StatusAccepted, ctx.Response.StatusCode())
	assert.True(t, resp.Success)
	assert.Equal(t, "@src", svc.startReq.Source)
	assert.Equal(t, "advanced", svc.startReq.Strategy)
	assert.Equal(t, "fast", svc.startReq.Speed)
}

func TestHandler_StartErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"bad json", `{"source":`, nil, fasthttp.StatusBadRequest},
		{"validation", `{}`, migrationerrors.ErrMissingSource, fasthttp.StatusBadRequest},
		{"conflict", `{"source":"a","target":"b"}`, migrationerrors.ErrMigrationRunning, fasthttp.StatusConflict},
		{"no accounts", `{"source":"a","target":"b"}`, migrationerrors.ErrNoAccounts, fasthttp.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, resp := serve(t, &fakeService{startErr: tt.err}, fasthttp.MethodPost, "/api/v1/migration/start", tt.body)
			assert.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandler_Commands(t *testing.T) {
	svc := &fakeService{state: entities.StatePaused, speed: "normal"}

	ctx, resp := serve(t, svc, fasthttp.MethodPost, "/api/v1/migration/pause", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.True(t, resp.Success)

	svc.pauseErr = migrationerrors.ErrNotRunning
	ctx, resp = serve(t, svc, fasthttp.MethodPost, "/api/v1/migration/pause", "")
	assert.Equal(t, fasthttp.StatusConflict, ctx.Response.StatusCode())
	assert.Equal(t, migrationerrors.ErrNotRunning.Error(), resp.Error)

	ctx, _ = serve(t, svc, fasthttp.MethodPost, "/api/v1/migration/cancel", "")
	assert.Equal(t, fasthttp.StatusConflict, ctx.Response.StatusCode())
}

func TestHandler_SetSpeed(t *testing.T) {
	svc := &fakeService{}

	ctx, _ := serve(t, svc, fasthttp.MethodPut, "/api/v1/migration/speed/fast", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "fast", svc.speed)

	ctx, _ = serve(t, svc, fasthttp.MethodPut, "/api/v1/migration/speed/warp", "")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestHandler_Status(t *testing.T) {
	ctx, _ := serve(t, &fakeService{}, fasthttp.MethodGet, "/api/v1/migration/status", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "No migration has been started.", string(ctx.Response.Body()))
}

func TestHandler_Runs(t *testing.T) {
	svc := &fakeService{}

	ctx, resp := serve(t, svc, fasthttp.MethodGet, "/api/v1/migration/runs?limit=5", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.True(t, resp.Success)
	assert.Equal(t, 5, svc.runsLimit)

	ctx, _ = serve(t, svc, fasthttp.MethodGet, "/api/v1/migration/runs/run-1", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx, resp = serve(t, svc, fasthttp.MethodGet, "/api/v1/migration/runs/other", "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, migrationerrors.ErrRunNotFound.Error(), resp.Error)
}

package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/pool"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/utils"
	"github.com/Conte777/NewsFlow/services/migration-service/pkg/httputil"
)

const dbPingTimeout = 2 * time.Second

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// AccountsResponse lists pooled accounts with masked identities
type AccountsResponse struct {
	Total     int                      `json:"total"`
	Available int                      `json:"available"`
	Accounts  []entities.AccountStatus `json:"accounts"`
}

type healthChecker interface {
	IsHealthy() bool
}

// Handler serves health and account status requests
type Handler struct {
	accountManager domain.AccountManager
	pool           *pool.Pool
	publisher      deps.EventPublisher
	db             *gorm.DB
	logger         zerolog.Logger
}

// HandlerParams defines parameters for Handler with optional dependencies
type HandlerParams struct {
	fx.In

	AccountManager domain.AccountManager
	Pool           *pool.Pool
	Publisher      deps.EventPublisher `optional:"true"`
	DB             *gorm.DB            `optional:"true"`
	Logger         zerolog.Logger
}

// NewHandler creates a new account handler
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		accountManager: params.AccountManager,
		pool:           params.Pool,
		publisher:      params.Publisher,
		db:             params.DB,
		logger:         params.Logger.With().Str("component", "account_handler").Logger(),
	}
}

// Health handles GET /health
func (h *Handler) Health(ctx *fasthttp.RequestCtx) {
	components := h.checkComponents(ctx)
	status := determineOverallStatus(components)

	response := HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	}

	statusCode := fasthttp.StatusOK
	if status == HealthStatusUnhealthy {
		statusCode = fasthttp.StatusServiceUnavailable
	}

	logEvent := h.logger.Debug()
	if status == HealthStatusUnhealthy {
		logEvent = h.logger.Warn()
	}
	logEvent.
		Str("status", string(status)).
		Int("status_code", statusCode).
		Msg("Health check completed")

	body, err := json.Marshal(response)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode health check response")
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(statusCode)
	ctx.SetBody(body)
}

// Accounts handles GET /accounts
func (h *Handler) Accounts(ctx *fasthttp.RequestCtx) {
	statuses := h.pool.Statuses()
	available := 0
	for i := range statuses {
		statuses[i].ID = utils.MaskPhoneNumber(statuses[i].ID)
		if statuses[i].Available {
			available++
		}
	}

	httputil.WriteResponse(ctx, AccountsResponse{
		Total:     len(statuses),
		Available: available,
		Accounts:  statuses,
	})
}

func (h *Handler) checkComponents(ctx context.Context) []ComponentHealth {
	components := make([]ComponentHealth, 0, 4)

	connected := h.accountManager.GetActiveAccountCount()
	accounts := ComponentHealth{Name: "telegram_accounts", Healthy: connected > 0}
	if !accounts.Healthy {
		accounts.Message = "No connected Telegram accounts"
	}
	components = append(components, accounts)

	available := ComponentHealth{Name: "account_pool", Healthy: len(h.pool.Available()) > 0}
	if !available.Healthy {
		available.Message = "All accounts are blocked or at their invite cap"
	}
	components = append(components, available)

	if checker, ok := h.publisher.(healthChecker); ok {
		producer := ComponentHealth{Name: "kafka_producer", Healthy: checker.IsHealthy()}
		if !producer.Healthy {
			producer.Message = "Kafka producer is not healthy"
		}
		components = append(components, producer)
	}

	if h.db != nil {
		components = append(components, h.checkDatabase(ctx))
	}

	return components
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentHealth {
	component := ComponentHealth{Name: "database", Healthy: true}

	sqlDB, err := h.db.DB()
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
		defer cancel()
		err = sqlDB.PingContext(pingCtx)
	}
	if err != nil {
		component.Healthy = false
		component.Message = err.Error()
	}

	return component
}

// determineOverallStatus: unhealthy without a usable account, degraded when anything else fails
func determineOverallStatus(components []ComponentHealth) HealthStatus {
	status := HealthStatusHealthy
	for _, component := range components {
		if component.Healthy {
			continue
		}
		if component.Name == "telegram_accounts" {
			return HealthStatusUnhealthy
		}
		status = HealthStatusDegraded
	}
	return status
}

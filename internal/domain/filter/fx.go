package filter

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/usecase/business"
)

// Module provides the activity filter factory for fx DI
var Module = fx.Module("filter",
	fx.Provide(business.NewFactory),
)

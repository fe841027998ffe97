package fallback

import (
	"github.com/smallbiznis/pricewatch/internal/fallback/repository"
	"github.com/smallbiznis/pricewatch/internal/fallback/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fallback.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package candidate

import (
	"github.com/smallbiznis/pricewatch/internal/candidate/repository"
	"github.com/smallbiznis/pricewatch/internal/candidate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("candidate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

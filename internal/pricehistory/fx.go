package pricehistory

import (
	"github.com/smallbiznis/pricewatch/internal/pricehistory/repository"
	"github.com/smallbiznis/pricewatch/internal/pricehistory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricehistory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

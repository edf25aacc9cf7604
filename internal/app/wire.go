//go:build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/gowvp/sentinel/internal/conf"
	"github.com/gowvp/sentinel/internal/data"
	"github.com/gowvp/sentinel/internal/web/api"
)

func wireApp(bc *conf.Bootstrap) (*api.Usecase, func(), error) {
	panic(wire.Build(data.ProviderSet, api.ProviderSet))
}

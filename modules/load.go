package modules

import (
	"github.com/forcetrack/readiness/modules/readiness"
	"github.com/forcetrack/readiness/pkg/application"
)

var BuiltInModules = []application.Module{
	readiness.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}

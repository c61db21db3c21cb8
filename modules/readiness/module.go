package readiness

import (
	"embed"

	"github.com/forcetrack/readiness/modules/readiness/infrastructure/persistence"
	"github.com/forcetrack/readiness/modules/readiness/services"
	"github.com/forcetrack/readiness/pkg/application"
)

//go:embed infrastructure/persistence/schema/readiness-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.RegisterSchema(&migrationFiles)

	unitRepo := persistence.NewUnitRepository()
	personRepo := persistence.NewPersonRepository()
	flagRepo := persistence.NewFlagRepository()
	ledgerRepo := persistence.NewPersonnelEventRepository()

	hierarchy := services.NewHierarchyService(unitRepo, app.EventPublisher())

	app.RegisterServices(
		hierarchy,
		services.NewFlagService(flagRepo, app.EventPublisher()),
		services.NewAvailabilityService(personRepo, flagRepo, hierarchy),
		services.NewTransferService(personRepo, flagRepo, ledgerRepo, hierarchy, app.EventPublisher()),
	)

	return nil
}

func (m *Module) Name() string {
	return "readiness"
}

package services

import (
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/repositories"
)

// Services is the set of service objects built once at startup
type Services struct {
	Audit        *AuditService
	Allocation   *AllocationService
	Periods      *PeriodService
	Projects     *ProjectService
	Signing      *SigningService
	Applications *ApplicationService
	Minutes      *MinutesService
	Selection    *SelectionService
	Results      *ResultsService
	Auth         *AuthService
}

// New wires every service over the same store and collaborators
func New(store repositories.Store, archive *DocumentArchive, dispatcher Dispatcher, auth *AuthService, log *logger.Logger) *Services {
	audit := NewAuditService(store, log)
	allocation := NewAllocationService(store, log)
	minutes := NewMinutesService(store, audit, archive, log)

	return &Services{
		Audit:        audit,
		Allocation:   allocation,
		Periods:      NewPeriodService(store, audit, log),
		Projects:     NewProjectService(store, audit, allocation, archive, log),
		Signing:      NewSigningService(store, audit, archive, log),
		Applications: NewApplicationService(store, audit, log),
		Minutes:      minutes,
		Selection:    NewSelectionService(store, audit, minutes, log),
		Results:      NewResultsService(store, audit, dispatcher, log),
		Auth:         auth,
	}
}

package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/internal/config"
	"github.com/jakechorley/race-roster/pkg/clients/sheetsclient"
	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/core/services"
	"github.com/jakechorley/race-roster/pkg/core/templates"
	"github.com/jakechorley/race-roster/pkg/db"
	"github.com/jakechorley/race-roster/pkg/metrics"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Service  *services.RaceService
	Database db.Database
	Catalog  *templates.Catalog
	Roster   services.MemberDirectory
	Sheets   *sheetsclient.Client // nil unless a spreadsheet is configured
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Ctx      context.Context

	// Actor is the member ID commands act as
	Actor string
}

// Auth returns the capabilities of the current actor
func (app *AppContext) Auth() allocator.AuthorizationContext {
	return app.Cfg.AuthorizationFor(app.Actor)
}

package app

import (
	"github.com/adamkim-dev/tripsaver/internal/audit"
	"github.com/adamkim-dev/tripsaver/internal/config"
	"github.com/adamkim-dev/tripsaver/internal/event_bus"
	"github.com/adamkim-dev/tripsaver/internal/metrics"
	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/adamkim-dev/tripsaver/pkg/allowance"
	"github.com/adamkim-dev/tripsaver/pkg/finance"
	"github.com/adamkim-dev/tripsaver/pkg/planner"
	"github.com/adamkim-dev/tripsaver/pkg/spending"
	"github.com/adamkim-dev/tripsaver/pkg/trip"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Metrics  *metrics.Metrics
	Clock    utils.Clock

	UserService *user.UserServiceImpl
	UserHandler *user.Handler

	TripRepo    trip.Repository
	TripService *trip.ServiceImpl
	TripHandler *trip.Handler

	FinanceRepo    finance.Repository
	FinanceService *finance.ServiceImpl
	FinanceHandler *finance.Handler

	SpendingRepo    spending.Repository
	SpendingService *spending.ServiceImpl
	SpendingHandler *spending.Handler

	PlannerService *planner.ServiceImpl
	PlannerHandler *planner.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	audit.Subscribe(deps.EventBus, log.StandardLogger())
	deps.Clock = &utils.SystemClock{}
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New()
	}

	deps.UserService = user.NewUserService(user.NewUserRepo(db), deps.EventBus)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.TripRepo = trip.NewRepository(db)
	deps.TripService = trip.NewTripService(deps.TripRepo, deps.UserService, deps.EventBus, deps.Metrics, deps.Clock)
	deps.TripHandler = trip.NewHandler(deps.TripService)

	deps.FinanceRepo = finance.NewRepository(db)
	deps.FinanceService = finance.NewFinanceService(deps.FinanceRepo, deps.EventBus)
	deps.FinanceHandler = finance.NewHandler(deps.FinanceService)

	deps.SpendingRepo = spending.NewRepository(db)
	deps.SpendingService = spending.NewSpendingService(deps.SpendingRepo, deps.Clock)
	deps.SpendingHandler = spending.NewHandler(deps.SpendingService, deps.Clock)

	deps.PlannerService = planner.NewPlannerService(
		deps.UserService,
		deps.FinanceRepo,
		deps.SpendingRepo,
		allowance.NewEngine(cfg.Planner.WeeksPerMonth),
		deps.EventBus,
		deps.Metrics,
		deps.Clock,
	)
	deps.PlannerHandler = planner.NewHandler(deps.PlannerService, deps.UserService)

	return deps
}

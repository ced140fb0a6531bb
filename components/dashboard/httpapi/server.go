package httpapi

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-logdash/components/dashboard"
	"github.com/goliatone/go-logdash/components/dashboard/commands"
	"github.com/goliatone/go-logdash/components/dashboard/queries"
	"github.com/rs/zerolog"
)

// ServerOptions wires a session and its upload flow into a fiber app.
type ServerOptions struct {
	Session   *dashboard.Session
	Upload    *dashboard.UploadFlow
	Pages     PageRenderer
	Events    EventSource
	Telemetry commands.Telemetry
	Logger    zerolog.Logger
	// Metrics is mounted at /metrics when set.
	Metrics   http.Handler
	AccessLog bool
}

// NewHandlers builds the command and query handlers for a session.
func NewHandlers(opts ServerOptions) *Handlers {
	h := &Handlers{
		Bootstrap:      commands.NewBootstrapCommand(opts.Session, opts.Telemetry),
		SelectCategory: commands.NewSelectCategoryCommand(opts.Session, opts.Telemetry),
		SelectItem:     commands.NewSelectItemCommand(opts.Session, opts.Telemetry),
		SetDates:       commands.NewSetDateRangeCommand(opts.Session, opts.Telemetry),
		SetGranularity: commands.NewSetGranularityCommand(opts.Session, opts.Telemetry),
		Trigger:        commands.NewTriggerReportCommand(opts.Session, opts.Telemetry),
		Upload:         commands.NewUploadLogsCommand(opts.Upload, opts.Telemetry),
		ViewState:      queries.NewViewStateQuery(opts.Session),
		Gates:          queries.NewGatesQuery(opts.Session),
		Report:         queries.NewReportQuery(opts.Session),
		Pages:          opts.Pages,
		Events:         opts.Events,
		Logger:         opts.Logger,
	}
	if opts.Upload != nil {
		h.UploadFlow = opts.Upload
		h.UploadState = queries.NewUploadStateQuery(opts.Upload)
	}
	return h
}

// NewApp returns a fiber app serving the upload and dashboard views.
func NewApp(opts ServerOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "logdash",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics))
	}
	NewHandlers(opts).Register(app)
	return app
}

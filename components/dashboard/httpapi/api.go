package httpapi

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-logdash/components/dashboard"
	"github.com/goliatone/go-logdash/components/dashboard/commands"
	"github.com/goliatone/go-logdash/components/dashboard/queries"
	"github.com/rs/zerolog"
)

// PageRenderer renders the HTML views.
type PageRenderer interface {
	RenderDashboard(ctx context.Context, out io.Writer) error
	RenderUpload(ctx context.Context, out io.Writer) error
}

// EventSource streams state events to websocket clients.
type EventSource interface {
	Subscribe() (<-chan dashboard.StateEvent, func())
}

// UploadResetter returns the upload view to idle when it is entered again.
type UploadResetter interface {
	Reset()
}

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Bootstrap      gocommand.Commander[commands.BootstrapInput]
	SelectCategory gocommand.Commander[commands.SelectCategoryInput]
	SelectItem     gocommand.Commander[commands.SelectItemInput]
	SetDates       gocommand.Commander[commands.SetDateRangeInput]
	SetGranularity gocommand.Commander[commands.SetGranularityInput]
	Trigger        gocommand.Commander[commands.TriggerReportInput]
	Upload         gocommand.Commander[dashboard.UploadFile]
	ViewState      gocommand.Querier[queries.ViewStateInput, dashboard.ViewState]
	Gates          gocommand.Querier[queries.GatesInput, dashboard.Gates]
	Report         gocommand.Querier[queries.ReportInput, dashboard.ReportState]
	UploadState    gocommand.Querier[queries.UploadStateInput, dashboard.UploadState]
	UploadFlow     UploadResetter
	Pages          PageRenderer
	Events         EventSource
	Logger         zerolog.Logger
}

var validate = validator.New()

type categoryRequest struct {
	Index string `json:"index" form:"index" validate:"omitempty,numeric"`
	Name  string `json:"name" form:"name" validate:"omitempty,max=256"`
}

type itemRequest struct {
	Item string `json:"item" form:"item" validate:"required,max=256"`
}

type datesRequest struct {
	From string `json:"from" form:"from" validate:"max=64"`
	To   string `json:"to" form:"to" validate:"max=64"`
}

type granularityRequest struct {
	K int `json:"k" form:"k" validate:"oneof=0 1 2 3 4 6 8 12 24"`
}

// Register mounts every route on router.
func (h *Handlers) Register(router fiber.Router) {
	router.Get("/", h.HandleUploadPage)
	router.Post("/upload", h.HandleUpload)
	if h.UploadState != nil {
		router.Get("/upload/_state", h.HandleUploadState)
	}
	router.Get("/dashboard", h.HandleDashboard)
	router.Get("/dashboard/_state", h.HandleState)
	if h.Gates != nil {
		router.Get("/dashboard/gates", h.HandleGates)
	}
	if h.Report != nil {
		router.Get("/dashboard/reports/:report", h.HandleReport)
	}
	router.Post("/dashboard/category", h.HandleSelectCategory)
	router.Post("/dashboard/item", h.HandleSelectItem)
	router.Post("/dashboard/dates/:report", h.HandleSetDates)
	router.Post("/dashboard/granularity", h.HandleSetGranularity)
	router.Post("/dashboard/reports/:report", h.HandleTrigger)
	if h.Events != nil {
		router.Use("/dashboard/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		router.Get("/dashboard/ws", websocket.New(h.streamEvents))
	}
}

// HandleUploadPage renders the upload view.
func (h *Handlers) HandleUploadPage(c *fiber.Ctx) error {
	if h.UploadFlow != nil {
		h.UploadFlow.Reset()
	}
	return h.renderUpload(c, fiber.StatusOK)
}

// HandleUpload accepts the multipart "file" field and forwards it to the
// backend. A request without a readable file goes through the flow with no
// content and is rejected like a wrong format.
func (h *Handlers) HandleUpload(c *fiber.Ctx) error {
	upload := dashboard.UploadFile{}
	if header, err := c.FormFile("file"); err == nil {
		upload.Name = header.Filename
		if file, err := header.Open(); err == nil {
			defer file.Close()
			upload.Content = file
		}
	}

	err := h.Upload.Execute(c.UserContext(), upload)
	switch {
	case err == nil:
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	case errors.Is(err, dashboard.ErrWrongFormat):
		return h.renderUpload(c, fiber.StatusUnprocessableEntity)
	case errors.Is(err, dashboard.ErrUploadInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return h.fail(c, err)
	}
}

// HandleDashboard activates the dashboard and renders it, or redirects to the
// upload view when no dataset is loaded.
func (h *Handlers) HandleDashboard(c *fiber.Ctx) error {
	if err := h.Bootstrap.Execute(c.UserContext(), commands.BootstrapInput{}); err != nil {
		if errors.Is(err, dashboard.ErrNoDataset) {
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		return h.fail(c, err)
	}
	return h.renderDashboard(c, fiber.StatusOK)
}

// HandleState returns the view snapshot as JSON.
func (h *Handlers) HandleState(c *fiber.Ctx) error {
	view, err := h.ViewState.Query(c.UserContext(), queries.ViewStateInput{})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

// HandleGates returns which controls are enabled.
func (h *Handlers) HandleGates(c *fiber.Ctx) error {
	gates, err := h.Gates.Query(c.UserContext(), queries.GatesInput{})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(gates)
}

// HandleReport returns one report's state without fetching it.
func (h *Handlers) HandleReport(c *fiber.Ctx) error {
	kind, err := dashboard.ParseReportKind(c.Params("report"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	state, err := h.Report.Query(c.UserContext(), queries.ReportInput{Report: kind})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(state)
}

// HandleUploadState returns the upload view state.
func (h *Handlers) HandleUploadState(c *fiber.Ctx) error {
	state, err := h.UploadState.Query(c.UserContext(), queries.UploadStateInput{})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(state)
}

func (h *Handlers) HandleSelectCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	input := commands.SelectCategoryInput{Name: req.Name}
	if req.Name == "" {
		if req.Index == "" {
			return fiber.NewError(fiber.StatusBadRequest, "index or name is required")
		}
		input.Index, _ = strconv.Atoi(req.Index)
	}
	return h.respond(c, h.SelectCategory.Execute(c.UserContext(), input))
}

func (h *Handlers) HandleSelectItem(c *fiber.Ctx) error {
	var req itemRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	return h.respond(c, h.SelectItem.Execute(c.UserContext(), commands.SelectItemInput{Item: req.Item}))
}

func (h *Handlers) HandleSetDates(c *fiber.Ctx) error {
	kind, err := dashboard.ParseReportKind(c.Params("report"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	var req datesRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	input := commands.SetDateRangeInput{Report: kind, Dates: dashboard.DateRange{From: req.From, To: req.To}}
	return h.respond(c, h.SetDates.Execute(c.UserContext(), input))
}

func (h *Handlers) HandleSetGranularity(c *fiber.Ctx) error {
	var req granularityRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	return h.respond(c, h.SetGranularity.Execute(c.UserContext(), commands.SetGranularityInput{K: req.K}))
}

// HandleTrigger fetches a single report with the current selections.
func (h *Handlers) HandleTrigger(c *fiber.Ctx) error {
	kind, err := dashboard.ParseReportKind(c.Params("report"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return h.respond(c, h.Trigger.Execute(c.UserContext(), commands.TriggerReportInput{Report: kind}))
}

func (h *Handlers) streamEvents(conn *websocket.Conn) {
	events, cancel := h.Events.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.Logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

// respond answers a control edit: HTML clients get the re-rendered dashboard,
// API clients the JSON snapshot.
func (h *Handlers) respond(c *fiber.Ctx, err error) error {
	if err != nil {
		return h.fail(c, err)
	}
	if wantsHTML(c) {
		return h.renderDashboard(c, fiber.StatusOK)
	}
	return h.HandleState(c)
}

func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.Logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return fiber.NewError(status, err.Error())
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, dashboard.ErrUnknownReport):
		return fiber.StatusNotFound
	case errors.Is(err, dashboard.ErrUnknownCategory),
		errors.Is(err, dashboard.ErrItemNotInCategory),
		errors.Is(err, dashboard.ErrInvalidGranularity),
		errors.Is(err, dashboard.ErrNotDateGated):
		return fiber.StatusBadRequest
	case errors.Is(err, dashboard.ErrGateClosed),
		errors.Is(err, dashboard.ErrSuperseded),
		errors.Is(err, dashboard.ErrTaxonomyNotLoaded),
		errors.Is(err, dashboard.ErrNoDataset):
		return fiber.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}

func parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return fiber.NewError(fiber.StatusBadRequest, "invalid "+strings.Join(fields, ", "))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func wantsHTML(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML
}

func (h *Handlers) renderDashboard(c *fiber.Ctx, status int) error {
	if h.Pages == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "pages not configured")
	}
	c.Status(status).Type("html")
	return h.Pages.RenderDashboard(c.UserContext(), c.Response().BodyWriter())
}

func (h *Handlers) renderUpload(c *fiber.Ctx, status int) error {
	if h.Pages == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "pages not configured")
	}
	c.Status(status).Type("html")
	return h.Pages.RenderUpload(c.UserContext(), c.Response().BodyWriter())
}

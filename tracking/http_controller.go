package tracking

import (
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	punchcard "github.com/punchcard-app/punchcard"
)

const dateLayout = "2006-01-02"

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// Controller serves the tracking REST endpoints. Every route sits behind the
// authenticated gate; the decision routes additionally behind the admin gate.
type Controller struct {
	Service      *Service
	Logger       punchcard.Logger
	ErrorHandler router.ErrorHandler
}

func NewController(service *Service) *Controller {
	if service == nil {
		panic("Missing Service in tracking controller...")
	}

	return &Controller{
		Service:      service,
		ErrorHandler: punchcard.RenderJSONError,
	}
}

func (c *Controller) WithLogger(logger punchcard.Logger) *Controller {
	if logger != nil {
		c.Logger = logger
	}
	return c
}

// RegisterRoutes mounts the tracking endpoints. The authed middleware guards
// every route; admin additionally guards the decision routes.
func (c *Controller) RegisterRoutes(app RouteRegistrar, authed, admin router.MiddlewareFunc) {
	app.Get("/api/time-entries", c.ListTimeEntries, authed)
	app.Post("/api/time-entries", c.CreateTimeEntry, authed)
	app.Get("/api/time-entries/:id", c.GetTimeEntry, authed)
	app.Patch("/api/time-entries/:id", c.UpdateTimeEntry, authed)
	app.Delete("/api/time-entries/:id", c.DeleteTimeEntry, authed)

	app.Get("/api/expenses", c.ListExpenses, authed)
	app.Post("/api/expenses", c.CreateExpense, authed)
	app.Get("/api/expenses/:id", c.GetExpense, authed)
	app.Patch("/api/expenses/:id", c.UpdateExpense, authed)
	app.Delete("/api/expenses/:id", c.DeleteExpense, authed)
	app.Post("/api/expenses/:id/decision", c.DecideExpense, admin)

	app.Get("/api/leave-requests", c.ListLeaveRequests, authed)
	app.Post("/api/leave-requests", c.CreateLeaveRequest, authed)
	app.Get("/api/leave-requests/:id", c.GetLeaveRequest, authed)
	app.Patch("/api/leave-requests/:id", c.UpdateLeaveRequest, authed)
	app.Delete("/api/leave-requests/:id", c.DeleteLeaveRequest, authed)
	app.Post("/api/leave-requests/:id/decision", c.DecideLeaveRequest, admin)

	app.Get("/api/trips", c.ListTrips, authed)
	app.Post("/api/trips", c.CreateTrip, authed)
	app.Get("/api/trips/:id", c.GetTrip, authed)
	app.Patch("/api/trips/:id", c.UpdateTrip, authed)
	app.Delete("/api/trips/:id", c.DeleteTrip, authed)
}

func actorFromContext(ctx router.Context) (Actor, error) {
	claims, ok := punchcard.GetClaims(ctx.Context())
	if !ok {
		return Actor{}, punchcard.ErrUnableToFindSession
	}

	id, err := strconv.ParseInt(claims.UserID(), 10, 64)
	if err != nil {
		return Actor{}, punchcard.ErrUnableToMapClaims
	}

	return Actor{
		UserID: id,
		Admin:  claims.IsAtLeast(punchcard.RoleAdmin),
	}, nil
}

// paramUUID parses the :id route parameter. An unparseable id cannot name any
// record, so it fails like a missing one.
func paramUUID(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.New("record not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithMetadata(map[string]any{"id": raw})
	}
	return id, nil
}

func (c *Controller) badPayload(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error":      "Invalid payload",
		"validation": punchcard.FormatValidationErrorToMap(err),
	})
}

// TimeEntryPayload is the create/replace body for time entries.
type TimeEntryPayload struct {
	Date    string  `form:"date" json:"date"`
	Hours   float64 `form:"hours" json:"hours"`
	Project string  `form:"project" json:"project"`
	Notes   string  `form:"notes" json:"notes"`
}

// Validate will run validation rules
func (p TimeEntryPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Date, validation.Required, validation.Date(dateLayout)),
		validation.Field(&p.Hours, validation.Required, validation.Min(0.25), validation.Max(24.0)),
		validation.Field(&p.Project, validation.Length(0, 200)),
		validation.Field(&p.Notes, validation.Length(0, 2000)),
	)
}

func (p TimeEntryPayload) apply(r *TimeEntry) {
	date, _ := time.Parse(dateLayout, p.Date)
	r.Date = date
	r.Hours = p.Hours
	r.Project = p.Project
	r.Notes = p.Notes
}

func (c *Controller) ListTimeEntries(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	records, err := c.Service.ListTimeEntries(ctx.Context(), actor)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, records)
}

func (c *Controller) GetTimeEntry(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	record, err := c.Service.GetTimeEntry(ctx.Context(), actor, id)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, record)
}

func (c *Controller) CreateTimeEntry(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(TimeEntryPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	record := &TimeEntry{}
	payload.apply(record)

	created, err := c.Service.CreateTimeEntry(ctx.Context(), actor, record)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, created)
}

func (c *Controller) UpdateTimeEntry(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(TimeEntryPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	updated, err := c.Service.UpdateTimeEntry(ctx.Context(), actor, id, payload.apply)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated)
}

func (c *Controller) DeleteTimeEntry(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := c.Service.DeleteTimeEntry(ctx.Context(), actor, id); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

// ExpensePayload is the create/replace body for expenses.
type ExpensePayload struct {
	Date        string  `form:"date" json:"date"`
	Amount      float64 `form:"amount" json:"amount"`
	Currency    string  `form:"currency" json:"currency"`
	Category    string  `form:"category" json:"category"`
	Description string  `form:"description" json:"description"`
}

// Validate will run validation rules
func (p ExpensePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Date, validation.Required, validation.Date(dateLayout)),
		validation.Field(&p.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&p.Currency, validation.Length(3, 3)),
		validation.Field(&p.Category, validation.Length(0, 100)),
		validation.Field(&p.Description, validation.Length(0, 2000)),
	)
}

func (p ExpensePayload) apply(r *Expense) {
	date, _ := time.Parse(dateLayout, p.Date)
	r.Date = date
	r.Amount = p.Amount
	if p.Currency != "" {
		r.Currency = p.Currency
	}
	r.Category = p.Category
	r.Description = p.Description
}

func (c *Controller) ListExpenses(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	records, err := c.Service.ListExpenses(ctx.Context(), actor)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, records)
}

func (c *Controller) GetExpense(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	record, err := c.Service.GetExpense(ctx.Context(), actor, id)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, record)
}

func (c *Controller) CreateExpense(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(ExpensePayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	record := &Expense{}
	payload.apply(record)

	created, err := c.Service.CreateExpense(ctx.Context(), actor, record)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, created)
}

func (c *Controller) UpdateExpense(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(ExpensePayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	updated, err := c.Service.UpdateExpense(ctx.Context(), actor, id, payload.apply)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated)
}

func (c *Controller) DeleteExpense(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := c.Service.DeleteExpense(ctx.Context(), actor, id); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

// DecisionPayload is the admin approve/reject body.
type DecisionPayload struct {
	Decision string `form:"decision" json:"decision"`
}

// Validate will run validation rules
func (p DecisionPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(
			&p.Decision,
			validation.Required,
			validation.In("approve", "reject"),
		),
	)
}

func (c *Controller) DecideExpense(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(DecisionPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	updated, err := c.Service.DecideExpense(ctx.Context(), actor, id, payload.Decision == "approve")
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated)
}

// LeaveRequestPayload is the create/replace body for leave requests.
type LeaveRequestPayload struct {
	StartDate string `form:"startDate" json:"startDate"`
	EndDate   string `form:"endDate" json:"endDate"`
	Kind      string `form:"kind" json:"kind"`
	Reason    string `form:"reason" json:"reason"`
}

// Validate will run validation rules
func (p LeaveRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.StartDate, validation.Required, validation.Date(dateLayout)),
		validation.Field(&p.EndDate, validation.Required, validation.Date(dateLayout)),
		validation.Field(
			&p.Kind,
			validation.Required,
			validation.In(LeaveVacation, LeaveSick, LeavePersonal, LeaveUnpaid),
		),
		validation.Field(&p.Reason, validation.Length(0, 2000)),
	)
}

func (p LeaveRequestPayload) apply(r *LeaveRequest) {
	start, _ := time.Parse(dateLayout, p.StartDate)
	end, _ := time.Parse(dateLayout, p.EndDate)
	r.StartDate = start
	r.EndDate = end
	r.Kind = p.Kind
	r.Reason = p.Reason
}

func (c *Controller) ListLeaveRequests(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	records, err := c.Service.ListLeaveRequests(ctx.Context(), actor)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, records)
}

func (c *Controller) GetLeaveRequest(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	record, err := c.Service.GetLeaveRequest(ctx.Context(), actor, id)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, record)
}

func (c *Controller) CreateLeaveRequest(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(LeaveRequestPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	record := &LeaveRequest{}
	payload.apply(record)

	created, err := c.Service.CreateLeaveRequest(ctx.Context(), actor, record)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, created)
}

func (c *Controller) UpdateLeaveRequest(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(LeaveRequestPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	updated, err := c.Service.UpdateLeaveRequest(ctx.Context(), actor, id, payload.apply)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated)
}

func (c *Controller) DeleteLeaveRequest(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := c.Service.DeleteLeaveRequest(ctx.Context(), actor, id); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

func (c *Controller) DecideLeaveRequest(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(DecisionPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	updated, err := c.Service.DecideLeaveRequest(ctx.Context(), actor, id, payload.Decision == "approve")
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated)
}

// TripPayload is the create/replace body for trips.
type TripPayload struct {
	StartDate   string `form:"startDate" json:"startDate"`
	EndDate     string `form:"endDate" json:"endDate"`
	Destination string `form:"destination" json:"destination"`
	Purpose     string `form:"purpose" json:"purpose"`
}

// Validate will run validation rules
func (p TripPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.StartDate, validation.Required, validation.Date(dateLayout)),
		validation.Field(&p.EndDate, validation.Required, validation.Date(dateLayout)),
		validation.Field(&p.Destination, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Purpose, validation.Length(0, 2000)),
	)
}

func (p TripPayload) apply(r *Trip) {
	start, _ := time.Parse(dateLayout, p.StartDate)
	end, _ := time.Parse(dateLayout, p.EndDate)
	r.StartDate = start
	r.EndDate = end
	r.Destination = p.Destination
	r.Purpose = p.Purpose
}

func (c *Controller) ListTrips(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	records, err := c.Service.ListTrips(ctx.Context(), actor)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, records)
}

func (c *Controller) GetTrip(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	record, err := c.Service.GetTrip(ctx.Context(), actor, id)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, record)
}

func (c *Controller) CreateTrip(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(TripPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	record := &Trip{}
	payload.apply(record)

	created, err := c.Service.CreateTrip(ctx.Context(), actor, record)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, created)
}

func (c *Controller) UpdateTrip(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(TripPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return c.badPayload(ctx, err)
	}

	updated, err := c.Service.UpdateTrip(ctx.Context(), actor, id, payload.apply)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated)
}

func (c *Controller) DeleteTrip(ctx router.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := paramUUID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := c.Service.DeleteTrip(ctx.Context(), actor, id); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

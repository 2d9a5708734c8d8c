package tracking

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	punchcard "github.com/punchcard-app/punchcard"
)

// Actor identifies who is making the call. Admins operate on every record,
// everyone else only on rows they own.
type Actor struct {
	UserID int64
	Admin  bool
}

// Service applies ownership rules on top of the repositories. A record that
// exists but belongs to someone else surfaces as not found, so the API never
// leaks whether a given id exists.
type Service struct {
	repo   RepositoryManager
	logger punchcard.Logger
	now    func() time.Time
}

type ServiceOption func(*Service)

func WithServiceLogger(l punchcard.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceClock injects a custom clock (useful for tests).
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewService(repo RepositoryManager, opts ...ServiceOption) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func errRecordNotFound(id uuid.UUID) error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"id": id.String()})
}

var errAdminOnly = goerrors.New("admin role required", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden)

func ensureOwned[T Owned](actor Actor, id uuid.UUID, record T) error {
	if actor.Admin || record.GetOwnerID() == actor.UserID {
		return nil
	}
	return errRecordNotFound(id)
}

func fetchOwned[T Owned](ctx context.Context, repo repository.Repository[T], actor Actor, id uuid.UUID) (T, error) {
	var zero T

	record, err := repo.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return zero, errRecordNotFound(id)
		}
		return zero, err
	}

	if err := ensureOwned(actor, id, record); err != nil {
		return zero, err
	}

	return record, nil
}

func listOwned[T any](ctx context.Context, db bun.IDB, actor Actor) ([]*T, error) {
	var records []*T

	q := db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at DESC")

	if !actor.Admin {
		q = q.Where("?TableAlias.owner_id = ?", actor.UserID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func deleteByID[T any](ctx context.Context, db bun.IDB, id uuid.UUID) error {
	_, err := db.NewDelete().
		Model((*T)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// --- time entries ---

func (s *Service) ListTimeEntries(ctx context.Context, actor Actor) ([]*TimeEntry, error) {
	return listOwned[TimeEntry](ctx, s.repo.DB(), actor)
}

func (s *Service) GetTimeEntry(ctx context.Context, actor Actor, id uuid.UUID) (*TimeEntry, error) {
	return fetchOwned(ctx, s.repo.TimeEntries(), actor, id)
}

func (s *Service) CreateTimeEntry(ctx context.Context, actor Actor, record *TimeEntry) (*TimeEntry, error) {
	record.ID = uuid.New()
	record.OwnerID = actor.UserID
	record.CreatedAt = s.now()
	record.UpdatedAt = record.CreatedAt
	return s.repo.TimeEntries().Create(ctx, record)
}

func (s *Service) UpdateTimeEntry(ctx context.Context, actor Actor, id uuid.UUID, apply func(*TimeEntry)) (*TimeEntry, error) {
	record, err := s.GetTimeEntry(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	apply(record)
	record.UpdatedAt = s.now()

	return s.repo.TimeEntries().Update(ctx, record, repository.UpdateByID(id.String()))
}

func (s *Service) DeleteTimeEntry(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.GetTimeEntry(ctx, actor, id); err != nil {
		return err
	}
	return deleteByID[TimeEntry](ctx, s.repo.DB(), id)
}

// --- expenses ---

func (s *Service) ListExpenses(ctx context.Context, actor Actor) ([]*Expense, error) {
	return listOwned[Expense](ctx, s.repo.DB(), actor)
}

func (s *Service) GetExpense(ctx context.Context, actor Actor, id uuid.UUID) (*Expense, error) {
	return fetchOwned(ctx, s.repo.Expenses(), actor, id)
}

func (s *Service) CreateExpense(ctx context.Context, actor Actor, record *Expense) (*Expense, error) {
	record.ID = uuid.New()
	record.OwnerID = actor.UserID
	record.Status = StatusPending
	if record.Currency == "" {
		record.Currency = "USD"
	}
	record.CreatedAt = s.now()
	record.UpdatedAt = record.CreatedAt
	return s.repo.Expenses().Create(ctx, record)
}

// UpdateExpense edits the submitted fields; review status only moves through
// DecideExpense.
func (s *Service) UpdateExpense(ctx context.Context, actor Actor, id uuid.UUID, apply func(*Expense)) (*Expense, error) {
	record, err := s.GetExpense(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	status := record.Status
	apply(record)
	record.Status = status
	record.UpdatedAt = s.now()

	return s.repo.Expenses().Update(ctx, record, repository.UpdateByID(id.String()))
}

func (s *Service) DeleteExpense(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.GetExpense(ctx, actor, id); err != nil {
		return err
	}
	return deleteByID[Expense](ctx, s.repo.DB(), id)
}

func (s *Service) DecideExpense(ctx context.Context, actor Actor, id uuid.UUID, approve bool) (*Expense, error) {
	if !actor.Admin {
		return nil, errAdminOnly
	}

	record, err := fetchOwned(ctx, s.repo.Expenses(), actor, id)
	if err != nil {
		return nil, err
	}

	record.Status = StatusRejected
	if approve {
		record.Status = StatusApproved
	}
	record.UpdatedAt = s.now()

	return s.repo.Expenses().Update(ctx, record, repository.UpdateByID(id.String()))
}

// --- leave requests ---

func (s *Service) ListLeaveRequests(ctx context.Context, actor Actor) ([]*LeaveRequest, error) {
	return listOwned[LeaveRequest](ctx, s.repo.DB(), actor)
}

func (s *Service) GetLeaveRequest(ctx context.Context, actor Actor, id uuid.UUID) (*LeaveRequest, error) {
	return fetchOwned(ctx, s.repo.LeaveRequests(), actor, id)
}

func (s *Service) CreateLeaveRequest(ctx context.Context, actor Actor, record *LeaveRequest) (*LeaveRequest, error) {
	record.ID = uuid.New()
	record.OwnerID = actor.UserID
	record.Status = StatusPending
	record.CreatedAt = s.now()
	record.UpdatedAt = record.CreatedAt
	return s.repo.LeaveRequests().Create(ctx, record)
}

func (s *Service) UpdateLeaveRequest(ctx context.Context, actor Actor, id uuid.UUID, apply func(*LeaveRequest)) (*LeaveRequest, error) {
	record, err := s.GetLeaveRequest(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	status := record.Status
	apply(record)
	record.Status = status
	record.UpdatedAt = s.now()

	return s.repo.LeaveRequests().Update(ctx, record, repository.UpdateByID(id.String()))
}

func (s *Service) DeleteLeaveRequest(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.GetLeaveRequest(ctx, actor, id); err != nil {
		return err
	}
	return deleteByID[LeaveRequest](ctx, s.repo.DB(), id)
}

func (s *Service) DecideLeaveRequest(ctx context.Context, actor Actor, id uuid.UUID, approve bool) (*LeaveRequest, error) {
	if !actor.Admin {
		return nil, errAdminOnly
	}

	record, err := fetchOwned(ctx, s.repo.LeaveRequests(), actor, id)
	if err != nil {
		return nil, err
	}

	record.Status = StatusRejected
	if approve {
		record.Status = StatusApproved
	}
	record.UpdatedAt = s.now()

	return s.repo.LeaveRequests().Update(ctx, record, repository.UpdateByID(id.String()))
}

// --- trips ---

func (s *Service) ListTrips(ctx context.Context, actor Actor) ([]*Trip, error) {
	return listOwned[Trip](ctx, s.repo.DB(), actor)
}

func (s *Service) GetTrip(ctx context.Context, actor Actor, id uuid.UUID) (*Trip, error) {
	return fetchOwned(ctx, s.repo.Trips(), actor, id)
}

func (s *Service) CreateTrip(ctx context.Context, actor Actor, record *Trip) (*Trip, error) {
	record.ID = uuid.New()
	record.OwnerID = actor.UserID
	record.CreatedAt = s.now()
	record.UpdatedAt = record.CreatedAt
	return s.repo.Trips().Create(ctx, record)
}

func (s *Service) UpdateTrip(ctx context.Context, actor Actor, id uuid.UUID, apply func(*Trip)) (*Trip, error) {
	record, err := s.GetTrip(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	apply(record)
	record.UpdatedAt = s.now()

	return s.repo.Trips().Update(ctx, record, repository.UpdateByID(id.String()))
}

func (s *Service) DeleteTrip(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.GetTrip(ctx, actor, id); err != nil {
		return err
	}
	return deleteByID[Trip](ctx, s.repo.DB(), id)
}

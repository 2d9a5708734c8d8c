package tracking

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager bundles the tracking repositories behind one handle.
type RepositoryManager interface {
	TimeEntries() repository.Repository[*TimeEntry]
	Expenses() repository.Repository[*Expense]
	LeaveRequests() repository.Repository[*LeaveRequest]
	Trips() repository.Repository[*Trip]
	DB() *bun.DB
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
}

type mngr struct {
	db            *bun.DB
	timeEntries   repository.Repository[*TimeEntry]
	expenses      repository.Repository[*Expense]
	leaveRequests repository.Repository[*LeaveRequest]
	trips         repository.Repository[*Trip]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		timeEntries:   NewTimeEntriesRepository(db),
		expenses:      NewExpensesRepository(db),
		leaveRequests: NewLeaveRequestsRepository(db),
		trips:         NewTripsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.timeEntries == nil {
		return errors.New("repository timeEntries should be initialized")
	}

	if m.expenses == nil {
		return errors.New("repository expenses should be initialized")
	}

	if m.leaveRequests == nil {
		return errors.New("repository leaveRequests should be initialized")
	}

	if m.trips == nil {
		return errors.New("repository trips should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) DB() *bun.DB {
	return m.db
}

func (m mngr) TimeEntries() repository.Repository[*TimeEntry] {
	return m.timeEntries
}

func (m mngr) Expenses() repository.Repository[*Expense] {
	return m.expenses
}

func (m mngr) LeaveRequests() repository.Repository[*LeaveRequest] {
	return m.leaveRequests
}

func (m mngr) Trips() repository.Repository[*Trip] {
	return m.trips
}

func NewTimeEntriesRepository(db *bun.DB) repository.Repository[*TimeEntry] {
	return repository.NewRepository[*TimeEntry](db, repository.ModelHandlers[*TimeEntry]{
		NewRecord: func() *TimeEntry { return &TimeEntry{} },
		GetID: func(r *TimeEntry) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *TimeEntry, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})
}

func NewExpensesRepository(db *bun.DB) repository.Repository[*Expense] {
	return repository.NewRepository[*Expense](db, repository.ModelHandlers[*Expense]{
		NewRecord: func() *Expense { return &Expense{} },
		GetID: func(r *Expense) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Expense, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})
}

func NewLeaveRequestsRepository(db *bun.DB) repository.Repository[*LeaveRequest] {
	return repository.NewRepository[*LeaveRequest](db, repository.ModelHandlers[*LeaveRequest]{
		NewRecord: func() *LeaveRequest { return &LeaveRequest{} },
		GetID: func(r *LeaveRequest) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *LeaveRequest, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})
}

func NewTripsRepository(db *bun.DB) repository.Repository[*Trip] {
	return repository.NewRepository[*Trip](db, repository.ModelHandlers[*Trip]{
		NewRecord: func() *Trip { return &Trip{} },
		GetID: func(r *Trip) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Trip, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})
}

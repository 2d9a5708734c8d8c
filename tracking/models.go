// Package tracking holds the employee activity records behind the
// authenticated API: time entries, expenses, leave requests, and trips.
// Records are owned by the user that created them; employees operate on
// their own rows, admins on all of them.
package tracking

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Review states for records that go through an admin decision.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Owned is implemented by every tracking record.
type Owned interface {
	GetOwnerID() int64
}

// TimeEntry is a single day's logged work.
type TimeEntry struct {
	bun.BaseModel `bun:"table:time_entries,alias:ten"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	OwnerID   int64     `bun:"owner_id,notnull" json:"ownerId"`
	Date      time.Time `bun:"date,notnull" json:"date"`
	Hours     float64   `bun:"hours,notnull" json:"hours"`
	Project   string    `bun:"project" json:"project,omitempty"`
	Notes     string    `bun:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

func (t *TimeEntry) GetOwnerID() int64 { return t.OwnerID }

// Expense is a reimbursable cost, reviewed by an admin.
type Expense struct {
	bun.BaseModel `bun:"table:expenses,alias:exp"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	OwnerID     int64     `bun:"owner_id,notnull" json:"ownerId"`
	Date        time.Time `bun:"date,notnull" json:"date"`
	Amount      float64   `bun:"amount,notnull" json:"amount"`
	Currency    string    `bun:"currency,notnull,default:'USD'" json:"currency"`
	Category    string    `bun:"category" json:"category,omitempty"`
	Description string    `bun:"description" json:"description,omitempty"`
	Status      string    `bun:"status,notnull,default:'pending'" json:"status"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

func (e *Expense) GetOwnerID() int64 { return e.OwnerID }

// LeaveRequest is a span of time off, reviewed by an admin.
type LeaveRequest struct {
	bun.BaseModel `bun:"table:leave_requests,alias:lvr"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	OwnerID   int64     `bun:"owner_id,notnull" json:"ownerId"`
	StartDate time.Time `bun:"start_date,notnull" json:"startDate"`
	EndDate   time.Time `bun:"end_date,notnull" json:"endDate"`
	Kind      string    `bun:"kind,notnull" json:"kind"`
	Reason    string    `bun:"reason" json:"reason,omitempty"`
	Status    string    `bun:"status,notnull,default:'pending'" json:"status"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

func (l *LeaveRequest) GetOwnerID() int64 { return l.OwnerID }

// Leave kinds accepted by the API.
const (
	LeaveVacation = "vacation"
	LeaveSick     = "sick"
	LeavePersonal = "personal"
	LeaveUnpaid   = "unpaid"
)

// Trip is a business travel record.
type Trip struct {
	bun.BaseModel `bun:"table:trips,alias:trp"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	OwnerID     int64     `bun:"owner_id,notnull" json:"ownerId"`
	StartDate   time.Time `bun:"start_date,notnull" json:"startDate"`
	EndDate     time.Time `bun:"end_date,notnull" json:"endDate"`
	Destination string    `bun:"destination,notnull" json:"destination"`
	Purpose     string    `bun:"purpose" json:"purpose,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

func (t *Trip) GetOwnerID() int64 { return t.OwnerID }

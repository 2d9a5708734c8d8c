package punchcard

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Users is the user directory consumed by the invitation manager and the
// authenticator. Lookups are case-sensitive exact matches. There is no
// delete: accounts outlive their credentials.
type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByInvitationToken(ctx context.Context, token string) (*User, error)
	// GetByIdentifier resolves a login identifier: username first, email as
	// fallback.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	// Update applies the non-nil fields of upd in a single statement and
	// returns the updated record. Concurrent readers never observe a
	// partially applied update.
	Update(ctx context.Context, id int64, upd *UserUpdate) (*User, error)
}

type users struct {
	db bun.IDB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun-backed user directory.
func NewUsersRepository(db bun.IDB) Users {
	return &users{db: db}
}

func (r *users) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *users) GetByInvitationToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, notFoundError("invitation_token", token)
	}
	return r.getBy(ctx, "invitation_token", token)
}

func (r *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	user, err := r.GetByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}
	return r.GetByEmail(ctx, identifier)
}

func (r *users) getBy(ctx context.Context, column string, value any) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError(column, value)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to query user")
	}
	return record, nil
}

func (r *users) Create(ctx context.Context, record *User) (*User, error) {
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}
	return record, nil
}

func (r *users) Update(ctx context.Context, id int64, upd *UserUpdate) (*User, error) {
	q := r.db.NewUpdate().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Set("updated_at = CURRENT_TIMESTAMP")

	if upd.FullName != nil {
		q = q.Set("full_name = ?", *upd.FullName)
	}
	if upd.Phone != nil {
		q = q.Set("phone_number = ?", *upd.Phone)
	}
	if upd.Role != nil {
		q = q.Set("user_role = ?", *upd.Role)
	}
	if upd.PasswordHash != nil {
		q = q.Set("password_hash = ?", *upd.PasswordHash)
	}
	if upd.NeedsPassword != nil {
		q = q.Set("needs_password_change = ?", *upd.NeedsPassword)
	}
	if upd.ClearInvitation {
		q = q.Set("invitation_token = NULL").
			Set("invitation_expires = NULL")
	} else {
		if upd.InvitationToken != nil {
			q = q.Set("invitation_token = ?", *upd.InvitationToken)
		}
		if upd.InvitationExpires != nil {
			q = q.Set("invitation_expires = ?", *upd.InvitationExpires)
		}
	}
	if upd.InvitationSent != nil {
		q = q.Set("invitation_sent = ?", *upd.InvitationSent)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, notFoundError("id", id)
	}

	return r.GetByID(ctx, id)
}

func notFoundError(column string, value any) error {
	return errors.New("user not found", errors.CategoryNotFound).
		WithTextCode(TextCodeUserNotFound).
		WithCode(errors.CodeNotFound).
		WithMetadata(map[string]any{column: value})
}

package enroll

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AcceptInvitationSQL flips a pending invitation to accepted while recording
// the consuming registrant. The status predicate makes a lost race surface as
// not-found instead of a silent second acceptance.
var AcceptInvitationSQL = `UPDATE "invitations" AS "inv"
SET
	"status" = 'accepted',
	"accepted_by" = ?,
	"accepted_email" = ?,
	"accepted_name" = ?,
	"accepted_at" = ?
WHERE
	"inv"."id" = ?
AND
	"inv"."status" = 'pending'
RETURNING *;`

type Invitations interface {
	repository.Repository[*Invitation]

	Accept(ctx context.Context, id uuid.UUID, uid, email, name string) error
	AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, uid, email, name string) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
	MarkExpiredTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type invitations struct {
	repository.Repository[*Invitation]
	db  *bun.DB
	now func() time.Time
}

type InvitationsOption func(*invitations)

// WithInvitationsClock injects a custom clock (useful for tests).
func WithInvitationsClock(clock func() time.Time) InvitationsOption {
	return func(r *invitations) {
		if clock != nil {
			r.now = clock
		}
	}
}

var (
	_ Invitations                        = (*invitations)(nil)
	_ repository.Repository[*Invitation] = (*invitations)(nil)
)

func NewInvitationsRepository(db *bun.DB, opts ...InvitationsOption) Invitations {
	repo := repository.NewRepository[*Invitation](db, repository.ModelHandlers[*Invitation]{
		NewRecord: func() *Invitation { return &Invitation{} },
		GetID: func(i *Invitation) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Invitation, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	r := &invitations{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *invitations) Accept(ctx context.Context, id uuid.UUID, uid, email, name string) error {
	return r.AcceptTx(ctx, r.db, id, uid, email, name)
}

func (r *invitations) AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, uid, email, name string) error {
	res, err := r.Repository.RawTx(ctx, tx, AcceptInvitationSQL, uid, email, name, r.now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return ErrInvitationConsumed.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return nil
}

func (r *invitations) MarkExpired(ctx context.Context, id uuid.UUID) error {
	return r.MarkExpiredTx(ctx, r.db, id)
}

func (r *invitations) MarkExpiredTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	record := &Invitation{}
	record.ID = id
	record.Status = InviteStatusExpired

	_, err := r.Repository.UpdateTx(ctx, tx, record,
		repository.UpdateByID(id.String()),
		repository.UpdateSkipZeroValues(),
	)

	return err
}

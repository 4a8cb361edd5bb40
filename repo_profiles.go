package enroll

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Profiles interface {
	repository.Repository[*UserProfile]

	GetByEmail(ctx context.Context, email string) (*UserProfile, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserProfile, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*UserProfile, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*UserProfile, error)
}

// StatusUpdateOption customizes a status update.
type StatusUpdateOption func(*statusUpdate)

type statusUpdate struct {
	approvedAt *time.Time
}

// WithApprovalTime records when the reviewer approved the profile.
func WithApprovalTime(t time.Time) StatusUpdateOption {
	return func(u *statusUpdate) {
		u.approvedAt = &t
	}
}

type profiles struct {
	repository.Repository[*UserProfile]
	db *bun.DB
}

var (
	_ Profiles                            = (*profiles)(nil)
	_ repository.Repository[*UserProfile] = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*UserProfile](db, repository.ModelHandlers[*UserProfile]{
		NewRecord: func() *UserProfile { return &UserProfile{} },
		GetID: func(p *UserProfile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *UserProfile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (r *profiles) GetByEmail(ctx context.Context, email string) (*UserProfile, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *profiles) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserProfile, error) {
	record := &UserProfile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *profiles) UpdateStatus(ctx context.Context, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*UserProfile, error) {
	return r.UpdateStatusTx(ctx, r.db, id, status, opts...)
}

func (r *profiles) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*UserProfile, error) {
	update := &statusUpdate{}
	for _, opt := range opts {
		if opt != nil {
			opt(update)
		}
	}

	record := &UserProfile{}
	record.ID = id
	record.Status = status
	if update.approvedAt != nil {
		record.ApprovedAt = update.approvedAt
	}

	return r.Repository.UpdateTx(ctx, tx, record,
		repository.UpdateByID(id.String()),
		repository.UpdateSkipZeroValues(),
	)
}

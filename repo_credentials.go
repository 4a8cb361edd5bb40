package enroll

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credentials backs the reference account provider. Deployments that embed a
// managed auth service never touch this table.
type CredentialsRepo interface {
	repository.Repository[*Credential]

	GetByEmail(ctx context.Context, email string) (*Credential, error)
	GetByVerifyCode(ctx context.Context, code string) (*Credential, error)
}

type credentials struct {
	repository.Repository[*Credential]
	db *bun.DB
}

var (
	_ CredentialsRepo                    = (*credentials)(nil)
	_ repository.Repository[*Credential] = (*credentials)(nil)
)

func NewCredentialsRepository(db *bun.DB) CredentialsRepo {
	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &credentials{
		Repository: repo,
		db:         db,
	}
}

func (r *credentials) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	return r.getByColumn(ctx, "email", email)
}

func (r *credentials) GetByVerifyCode(ctx context.Context, code string) (*Credential, error) {
	return r.getByColumn(ctx, "verify_code", code)
}

func (r *credentials) getByColumn(ctx context.Context, column, value string) (*Credential, error) {
	record := &Credential{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, err
	}

	return record, nil
}

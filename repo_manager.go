package enroll

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes the document-store collections this workflow
// reads and writes.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Invitations() Invitations
	Profiles() Profiles
	Credentials() CredentialsRepo
}

type mngr struct {
	db          *bun.DB
	invitations Invitations
	profiles    Profiles
	credentials CredentialsRepo
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		invitations: NewInvitationsRepository(db),
		profiles:    NewProfilesRepository(db),
		credentials: NewCredentialsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.invitations == nil {
		return errors.New("repository invitations should be initialized")
	}

	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	if m.credentials == nil {
		return errors.New("repository credentials should be initialized")
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

func (m mngr) Invitations() Invitations {
	return m.invitations
}

func (m mngr) Profiles() Profiles {
	return m.profiles
}

func (m mngr) Credentials() CredentialsRepo {
	return m.credentials
}

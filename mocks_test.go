package enroll_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/goliatone/go-enroll"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAccountProvider implements enroll.AccountProvider
type MockAccountProvider struct {
	mock.Mock
}

func (m *MockAccountProvider) CreateAccount(ctx context.Context, email, password string) (uuid.UUID, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAccountProvider) VerifyEmailCode(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockAccountProvider) SessionFromToken(token string) (enroll.Session, error) {
	args := m.Called(token)
	session, _ := args.Get(0).(enroll.Session)
	return session, args.Error(1)
}

// recordingSink captures activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []enroll.ActivityEvent
	err    error
}

func (s *recordingSink) Record(ctx context.Context, event enroll.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []enroll.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]enroll.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) EventsOfType(t enroll.ActivityEventType) []enroll.ActivityEvent {
	var out []enroll.ActivityEvent
	for _, e := range s.Events() {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

type acceptCall struct {
	ID    uuid.UUID
	UID   string
	Email string
	Name  string
}

type stubInvitations struct {
	enroll.Invitations
	byID        map[string]*enroll.Invitation
	accepted    []acceptCall
	acceptErr   error
	expired     []uuid.UUID
	markExpErr  error
	getOverride func(id string) (*enroll.Invitation, error)
}

func (s *stubInvitations) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*enroll.Invitation, error) {
	if s.getOverride != nil {
		return s.getOverride(id)
	}
	if invite, ok := s.byID[id]; ok {
		return invite, nil
	}
	return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"id": id})
}

func (s *stubInvitations) Accept(ctx context.Context, id uuid.UUID, uid, email, name string) error {
	if s.acceptErr != nil {
		return s.acceptErr
	}
	invite, ok := s.byID[id.String()]
	if !ok || !invite.IsPending() {
		// mirrors the conditional update: no pending row matched
		return enroll.ErrInvitationConsumed.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}
	invite.MarkAccepted(uid, email, name, time.Now())
	s.accepted = append(s.accepted, acceptCall{ID: id, UID: uid, Email: email, Name: name})
	return nil
}

func (s *stubInvitations) AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, uid, email, name string) error {
	return s.Accept(ctx, id, uid, email, name)
}

func (s *stubInvitations) MarkExpired(ctx context.Context, id uuid.UUID) error {
	if s.markExpErr != nil {
		return s.markExpErr
	}
	if invite, ok := s.byID[id.String()]; ok {
		invite.Status = enroll.InviteStatusExpired
	}
	s.expired = append(s.expired, id)
	return nil
}

func (s *stubInvitations) MarkExpiredTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	return s.MarkExpired(ctx, id)
}

type statusChange struct {
	ID     uuid.UUID
	Status enroll.ProfileStatus
}

type stubProfiles struct {
	enroll.Profiles
	byID          map[string]*enroll.UserProfile
	created       []*enroll.UserProfile
	createErr     error
	statusChanges []statusChange
	updateErr     error
}

func (s *stubProfiles) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*enroll.UserProfile, error) {
	if profile, ok := s.byID[id]; ok {
		return profile, nil
	}
	return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"id": id})
}

func (s *stubProfiles) GetByEmail(ctx context.Context, email string) (*enroll.UserProfile, error) {
	for _, profile := range s.byID {
		if profile.Email == email {
			return profile, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubProfiles) Create(ctx context.Context, record *enroll.UserProfile, criteria ...repository.InsertCriteria) (*enroll.UserProfile, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if s.byID == nil {
		s.byID = map[string]*enroll.UserProfile{}
	}
	s.byID[record.ID.String()] = record
	s.created = append(s.created, record)
	return record, nil
}

func (s *stubProfiles) UpdateStatus(ctx context.Context, id uuid.UUID, status enroll.ProfileStatus, opts ...enroll.StatusUpdateOption) (*enroll.UserProfile, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.statusChanges = append(s.statusChanges, statusChange{ID: id, Status: status})
	profile, ok := s.byID[id.String()]
	if !ok {
		return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"id": id.String()})
	}
	profile.Status = status
	return profile, nil
}

func (s *stubProfiles) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status enroll.ProfileStatus, opts ...enroll.StatusUpdateOption) (*enroll.UserProfile, error) {
	return s.UpdateStatus(ctx, id, status, opts...)
}

type stubCredentials struct {
	enroll.CredentialsRepo
	byEmail map[string]*enroll.Credential
	byCode  map[string]*enroll.Credential
	updated []*enroll.Credential
}

func (s *stubCredentials) GetByEmail(ctx context.Context, email string) (*enroll.Credential, error) {
	if record, ok := s.byEmail[email]; ok {
		return record, nil
	}
	return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"email": email})
}

func (s *stubCredentials) GetByVerifyCode(ctx context.Context, code string) (*enroll.Credential, error) {
	if record, ok := s.byCode[code]; ok {
		return record, nil
	}
	return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"verify_code": code})
}

func (s *stubCredentials) Create(ctx context.Context, record *enroll.Credential, criteria ...repository.InsertCriteria) (*enroll.Credential, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if s.byEmail == nil {
		s.byEmail = map[string]*enroll.Credential{}
	}
	s.byEmail[record.Email] = record
	if record.VerifyCode != "" {
		if s.byCode == nil {
			s.byCode = map[string]*enroll.Credential{}
		}
		s.byCode[record.VerifyCode] = record
	}
	return record, nil
}

func (s *stubCredentials) Update(ctx context.Context, record *enroll.Credential, criteria ...repository.UpdateCriteria) (*enroll.Credential, error) {
	s.updated = append(s.updated, record)
	return record, nil
}

// stubRepoManager wires the stubs behind the RepositoryManager interface.
type stubRepoManager struct {
	invitations *stubInvitations
	profiles    *stubProfiles
	credentials *stubCredentials
}

func newStubRepoManager() *stubRepoManager {
	return &stubRepoManager{
		invitations: &stubInvitations{byID: map[string]*enroll.Invitation{}},
		profiles:    &stubProfiles{byID: map[string]*enroll.UserProfile{}},
		credentials: &stubCredentials{},
	}
}

func (m *stubRepoManager) Validate() error { return nil }
func (m *stubRepoManager) MustValidate()   {}

func (m *stubRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *stubRepoManager) Invitations() enroll.Invitations     { return m.invitations }
func (m *stubRepoManager) Profiles() enroll.Profiles           { return m.profiles }
func (m *stubRepoManager) Credentials() enroll.CredentialsRepo { return m.credentials }

func pendingInvitation(email, parish string) *enroll.Invitation {
	now := time.Now()
	return &enroll.Invitation{
		ID:         uuid.New(),
		Email:      email,
		Token:      uuid.New().String(),
		ParishName: parish,
		Diocese:    "Archdiocese of Springfield",
		Status:     enroll.InviteStatusPending,
		CreatedAt:  &now,
	}
}

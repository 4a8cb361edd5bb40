package enroll

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultVerifyCodeWindow is how long an emailed verification code stays valid.
var DefaultVerifyCodeWindow = "24h"

// LocalAccountProvider is the reference AccountProvider backed by the
// credentials table. It exists so examples and tests can exercise the
// provider boundary without a managed auth service behind it.
type LocalAccountProvider struct {
	repo         RepositoryManager
	signingKey   string
	verifyWindow string
	logger       Logger
	now          func() time.Time
	useHashid    bool
}

var _ AccountProvider = (*LocalAccountProvider)(nil)

// LocalProviderOption customizes the reference provider.
type LocalProviderOption func(*LocalAccountProvider)

// WithProviderLogger overrides the default logger.
func WithProviderLogger(l Logger) LocalProviderOption {
	return func(p *LocalAccountProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithProviderClock injects a custom clock (useful for tests).
func WithProviderClock(clock func() time.Time) LocalProviderOption {
	return func(p *LocalAccountProvider) {
		if clock != nil {
			p.now = clock
		}
	}
}

// WithVerifyCodeWindow overrides the verification-code validity window.
func WithVerifyCodeWindow(pattern string) LocalProviderOption {
	return func(p *LocalAccountProvider) {
		if pattern != "" {
			p.verifyWindow = pattern
		}
	}
}

// WithDeterministicIDs derives account ids from the email via hashid so
// repeated fixture loads stay stable.
func WithDeterministicIDs() LocalProviderOption {
	return func(p *LocalAccountProvider) {
		p.useHashid = true
	}
}

func NewLocalAccountProvider(repo RepositoryManager, signingKey string, opts ...LocalProviderOption) *LocalAccountProvider {
	p := &LocalAccountProvider{
		repo:         repo,
		signingKey:   signingKey,
		verifyWindow: DefaultVerifyCodeWindow,
		logger:       defLogger{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// CreateAccount stores a credential and hands back the account id. Failures
// map onto the duplicate-email / weak-credential / provider-failure taxonomy
// the registration saga expects from any provider.
func (p *LocalAccountProvider) CreateAccount(ctx context.Context, email, password string) (uuid.UUID, error) {
	if email == "" || password == "" {
		return uuid.Nil, ErrWeakCredential.WithMetadata(map[string]any{
			"reason": "empty email or password",
		})
	}

	if PasswordScore(password) < MinPasswordScore {
		return uuid.Nil, ErrWeakCredential
	}

	if _, err := p.repo.Credentials().GetByEmail(ctx, email); err == nil {
		return uuid.Nil, ErrDuplicateEmail.WithMetadata(map[string]any{
			"email": email,
		})
	} else if !goerrors.IsNotFound(err) {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to check existing credential")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	record := &Credential{
		Email:        email,
		PasswordHash: hash,
		VerifyCode:   uuid.New().String(),
	}

	if p.useHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			record.ID = id
		}
	}

	sentAt := p.now()
	record.VerifySentAt = &sentAt

	created, err := p.repo.Credentials().Create(ctx, record)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryOperation, "account provider rejected credential").
			WithTextCode(TextCodeProviderFailure)
	}

	// delivery of the verification email belongs to the hosting application
	p.logger.Debug("verification code issued", "email", email, "code", created.VerifyCode)

	return created.ID, nil
}

// VerifyEmailCode confirms the email behind a one-time code and returns the
// confirmed address.
func (p *LocalAccountProvider) VerifyEmailCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrVerifyCodeInvalid
	}

	record, err := p.repo.Credentials().GetByVerifyCode(ctx, code)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrVerifyCodeInvalid
		}
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to look up verification code")
	}

	if record.Disabled {
		return "", ErrVerifyUserDisabled
	}

	if record.VerifySentAt != nil {
		expired, err := IsOutsideThresholdPeriod(*record.VerifySentAt, p.verifyWindow)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check verification window")
		}
		if expired {
			return "", ErrVerifyCodeExpired
		}
	}

	record.EmailValidated = true
	record.VerifyCode = ""
	if _, err := p.repo.Credentials().Update(ctx, record, repository.UpdateByID(record.ID.String())); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to confirm email")
	}

	return record.Email, nil
}

// MintSessionToken issues the signed token the HTTP layer stores in the
// session cookie.
func (p *LocalAccountProvider) MintSessionToken(id uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"sub":   id.String(),
		"email": email,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(p.signingKey))
}

// SessionFromToken decodes a session token back into a Session.
func (p *LocalAccountProvider) SessionFromToken(tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(p.signingKey), nil
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "unable to decode session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, goerrors.New("unable to map session claims", goerrors.CategoryAuth)
	}

	session := &SessionObject{}
	if sub, err := claims.GetSubject(); err == nil {
		session.UserID = sub
	}
	if email, ok := claims["email"].(string); ok {
		session.Email = email
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		session.IssuedAt = &iat.Time
	}

	return session, nil
}

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("refusing to hash empty password")
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password
func ComparePasswordAndHash(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

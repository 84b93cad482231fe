// Package account owns the credential store: signup, login, session
// verification and the admin user-management operations.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"

	"github.com/go-playground/validator/v10"
)

const DefaultMinPasswordLength = 6

// Store is the persistence the service needs.
type Store interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateAccount(ctx context.Context, id string, mutate func(a *models.Account) error) (*models.Account, error)
	DeleteAccount(ctx context.Context, id string) (*models.Account, error)
	CreateDeleteLog(ctx context.Context, entry *models.DeleteLog) error
}

// CreateInput describes a new account.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     models.Role
}

// Session is the result of a successful signup or login.
type Session struct {
	Account   *models.Account `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type Service struct {
	store          Store
	tokens         *auth.TokenIssuer
	hasher         *auth.PasswordHasher
	validate       *validator.Validate
	minPasswordLen int
	log            logging.Logger
}

func NewService(store Store, tokens *auth.TokenIssuer, hasher *auth.PasswordHasher, minPasswordLen int, log logging.Logger) *Service {
	if minPasswordLen <= 0 {
		minPasswordLen = DefaultMinPasswordLength
	}
	return &Service{
		store:          store,
		tokens:         tokens,
		hasher:         hasher,
		validate:       validator.New(),
		minPasswordLen: minPasswordLen,
		log:            log,
	}
}

// TokenTTL reports how long issued tokens stay valid.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) checkCredentials(email, password string) error {
	fields := map[string]string{}
	if err := s.validate.Var(email, "required,email"); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if len(password) < s.minPasswordLen {
		fields["password"] = fmt.Sprintf("must be at least %d characters", s.minPasswordLen)
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid account details", fields)
	}
	return nil
}

// CreateAccount stores a new account with a bcrypt hash of the password.
func (s *Service) CreateAccount(ctx context.Context, in CreateInput) (*models.Account, error) {
	email := normalizeEmail(in.Email)
	if err := s.checkCredentials(email, in.Password); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.ValidationFields("invalid account details", map[string]string{"name": "is required"})
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.ValidationFields("invalid account details", map[string]string{"role": "must be admin or user"})
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	a := &models.Account{
		ID:           models.NewID(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         role,
		Status:       models.AccountStatusActive,
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal(err)
	}

	s.log.Info(ctx, "account created", "account_id", a.ID, "role", a.Role)
	return a, nil
}

// Signup creates a user account and opens a session. The role is always user.
func (s *Service) Signup(ctx context.Context, in CreateInput) (*Session, error) {
	in.Role = models.RoleUser
	a, err := s.CreateAccount(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.openSession(a)
}

// Login verifies credentials. Unknown email and wrong password give the
// same error.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	a, err := s.verifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.openSession(a)
}

// AdminLogin is Login restricted to admin accounts.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	a, err := s.verifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !a.IsAdmin() {
		s.log.Warn(ctx, "admin login refused", "account_id", a.ID)
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.openSession(a)
}

func (s *Service) verifyCredentials(ctx context.Context, email, password string) (*models.Account, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	a, err := s.store.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, apperr.Internal(err)
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if a.IsBlocked() {
		return nil, apperr.Forbidden("account_blocked")
	}
	return a, nil
}

func (s *Service) openSession(a *models.Account) (*Session, error) {
	token, exp, err := s.tokens.Issue(a.ID, string(a.Role), a.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{Account: a, Token: token, ExpiresAt: exp}, nil
}

// Authenticate verifies a bearer token and confirms the account still exists
// and is not blocked. The principal carries the role from the token.
func (s *Service) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Principal{}, err
	}
	a, err := s.store.GetAccountByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return auth.Principal{}, apperr.Unauthorized("invalid_or_expired")
		}
		return auth.Principal{}, apperr.Internal(err)
	}
	if a.IsBlocked() {
		return auth.Principal{}, apperr.Unauthorized("account_blocked")
	}
	return auth.PrincipalFromClaims(claims), nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.NotFound("account not found")
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return accounts, nil
}

// VerifyPassword reports whether candidate matches the account's hash.
func (s *Service) VerifyPassword(a *models.Account, candidate string) bool {
	return s.hasher.Verify(a.PasswordHash, candidate)
}

// ChangePassword re-hashes the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	if len(next) < s.minPasswordLen {
		return apperr.ValidationFields("invalid password", map[string]string{
			"new_password": fmt.Sprintf("must be at least %d characters", s.minPasswordLen),
		})
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Internal(err)
	}
	_, err = s.store.UpdateAccount(ctx, id, func(a *models.Account) error {
		if !s.hasher.Verify(a.PasswordHash, current) {
			return apperr.ValidationFields("invalid password", map[string]string{"current_password": "is incorrect"})
		}
		a.PasswordHash = hash
		return nil
	})
	if err != nil {
		return s.translate(err)
	}
	s.log.Info(ctx, "password changed", "account_id", id)
	return nil
}

// SetStatus blocks or re-activates an account. Admins cannot block themselves.
func (s *Service) SetStatus(ctx context.Context, actor auth.Principal, id string, status models.AccountStatus) (*models.Account, error) {
	if !status.Valid() {
		return nil, apperr.ValidationFields("invalid status", map[string]string{"status": "must be active or blocked"})
	}
	if id == actor.AccountID && status == models.AccountStatusBlocked {
		return nil, apperr.Validation("cannot block your own account")
	}
	a, err := s.store.UpdateAccount(ctx, id, func(a *models.Account) error {
		a.Status = status
		return nil
	})
	if err != nil {
		return nil, s.translate(err)
	}
	s.log.Info(ctx, "account status changed", "account_id", id, "status", status, "actor", actor.AccountID)
	return a, nil
}

// Delete removes an account. Self-deletion is rejected.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if id == actor.AccountID {
		return apperr.Validation("cannot delete your own account")
	}
	deleted, err := s.store.DeleteAccount(ctx, id)
	if err != nil {
		return s.translate(err)
	}
	entry := &models.DeleteLog{
		EntityType: models.EntityAccount,
		EntityID:   deleted.ID,
		Title:      deleted.Email,
		ActorID:    actor.AccountID,
		DeletedAt:  time.Now().UTC(),
		Reason:     models.DeleteReasonManual,
	}
	if err := s.store.CreateDeleteLog(ctx, entry); err != nil {
		s.log.Warn(ctx, "delete log not written", "account_id", id, "error", err)
	}
	s.log.Info(ctx, "account deleted", "account_id", id, "actor", actor.AccountID)
	return nil
}

// EnsureAdmin creates an admin account, or promotes and re-activates an
// existing account with that email and resets its password.
func (s *Service) EnsureAdmin(ctx context.Context, in CreateInput) (*models.Account, bool, error) {
	in.Role = models.RoleAdmin
	existing, err := s.store.GetAccountByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, database.ErrNotFound) {
		a, err := s.CreateAccount(ctx, in)
		return a, true, err
	}
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	if err := s.checkCredentials(existing.Email, in.Password); err != nil {
		return nil, false, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	a, err := s.store.UpdateAccount(ctx, existing.ID, func(a *models.Account) error {
		a.Role = models.RoleAdmin
		a.Status = models.AccountStatusActive
		a.PasswordHash = hash
		if name := strings.TrimSpace(in.Name); name != "" {
			a.Name = name
		}
		return nil
	})
	if err != nil {
		return nil, false, s.translate(err)
	}
	return a, false, nil
}

func (s *Service) translate(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound("account not found")
	case errors.Is(err, database.ErrDuplicate):
		return apperr.Conflict("email already registered")
	default:
		return apperr.Internal(err)
	}
}

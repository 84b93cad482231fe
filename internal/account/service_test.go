package account

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	svc := NewService(store, auth.NewTokenIssuer("test-secret", time.Hour), auth.NewPasswordHasher(4), DefaultMinPasswordLength, logging.Discard())
	return svc, store
}

func signup(t *testing.T, svc *Service, email string) *Session {
	t.Helper()
	sess, err := svc.Signup(context.Background(), CreateInput{Name: "Jane", Email: email, Password: "password123"})
	require.NoError(t, err)
	return sess
}

func TestSignup_ForcesUserRoleAndHashes(t *testing.T) {
	svc, store := newTestService(t)

	sess, err := svc.Signup(context.Background(), CreateInput{
		Name: "Jane", Email: "  Jane@Example.COM ", Password: "password123", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, sess.Account.Role)
	assert.Equal(t, "jane@example.com", sess.Account.Email)
	assert.NotEmpty(t, sess.Token)

	stored, err := store.GetAccountByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.True(t, svc.VerifyPassword(stored, "password123"))
	assert.False(t, svc.VerifyPassword(stored, "wrong"))
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), CreateInput{Name: "J", Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")

	sess, err := svc.Signup(context.Background(), CreateInput{Name: "Sam", Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err, "six characters is enough")
	assert.NotEmpty(t, sess.Token)
}

func TestSignup_DuplicateEmailConflict(t *testing.T) {
	svc, _ := newTestService(t)
	signup(t, svc, "dup@example.com")

	_, err := svc.Signup(context.Background(), CreateInput{Name: "X", Email: "DUP@example.com", Password: "password123"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestLogin(t *testing.T) {
	svc, store := newTestService(t)
	created := signup(t, svc, "jane@example.com")
	ctx := context.Background()

	sess, err := svc.Login(ctx, "JANE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.Account.ID, sess.Account.ID)

	_, err = svc.Login(ctx, "jane@example.com", "wrong-password")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Login(ctx, "", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = store.UpdateAccount(ctx, created.Account.ID, func(a *models.Account) error {
		a.Status = models.AccountStatusBlocked
		return nil
	})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "jane@example.com", "password123")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestAdminLogin_RejectsUsers(t *testing.T) {
	svc, _ := newTestService(t)
	signup(t, svc, "user@example.com")
	_, _, err := svc.EnsureAdmin(context.Background(), CreateInput{Name: "Root", Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.AdminLogin(context.Background(), "user@example.com", "password123")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	sess, err := svc.AdminLogin(context.Background(), "admin@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, sess.Account.Role)
}

func TestAuthenticate(t *testing.T) {
	svc, store := newTestService(t)
	sess := signup(t, svc, "jane@example.com")
	ctx := context.Background()

	p, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Account.ID, p.AccountID)
	assert.Equal(t, auth.RoleUser, p.Role)

	_, err = svc.Authenticate(ctx, sess.Token+"x")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = store.UpdateAccount(ctx, sess.Account.ID, func(a *models.Account) error {
		a.Status = models.AccountStatusBlocked
		return nil
	})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "blocked account token is rejected")

	_, err = store.DeleteAccount(ctx, sess.Account.ID)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "deleted account token is rejected")
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	sess := signup(t, svc, "jane@example.com")
	ctx := context.Background()

	err := svc.ChangePassword(ctx, sess.Account.ID, "wrong-current", "new-password-1")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.ChangePassword(ctx, sess.Account.ID, "password123", "short")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.ChangePassword(ctx, sess.Account.ID, "password123", "new-password-1"))
	_, err = svc.Login(ctx, "jane@example.com", "password123")
	assert.Error(t, err)
	_, err = svc.Login(ctx, "jane@example.com", "new-password-1")
	assert.NoError(t, err)
}

func TestSetStatusAndDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	admin, _, err := svc.EnsureAdmin(ctx, CreateInput{Name: "Root", Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	actor := auth.Principal{AccountID: admin.ID, Role: auth.RoleAdmin}
	user := signup(t, svc, "user@example.com")

	a, err := svc.SetStatus(ctx, actor, user.Account.ID, models.AccountStatusBlocked)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusBlocked, a.Status)

	_, err = svc.SetStatus(ctx, actor, user.Account.ID, "suspended")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SetStatus(ctx, actor, "missing", models.AccountStatusActive)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = svc.Delete(ctx, actor, admin.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "self-delete is rejected")
	_, err = store.GetAccountByID(ctx, admin.ID)
	assert.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actor, user.Account.ID))
	_, err = svc.Get(ctx, user.Account.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	logs, err := store.ListDeleteLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.EntityAccount, logs[0].EntityType)
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	svc, _ := newTestService(t)
	user := signup(t, svc, "promote@example.com")

	a, created, err := svc.EnsureAdmin(context.Background(), CreateInput{Email: "promote@example.com", Password: "another-pass"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.Account.ID, a.ID)
	assert.Equal(t, models.RoleAdmin, a.Role)

	_, err = svc.AdminLogin(context.Background(), "promote@example.com", "another-pass")
	assert.NoError(t, err)
}

func TestList_NeverLeaksHashInJSON(t *testing.T) {
	svc, _ := newTestService(t)
	signup(t, svc, "jane@example.com")

	accounts, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	raw, err := json.Marshal(accounts)
	require.NoError(t, err)
	body := string(raw)
	assert.False(t, strings.Contains(body, "password"), body)
	assert.False(t, strings.Contains(body, "$2a$"), body)
}

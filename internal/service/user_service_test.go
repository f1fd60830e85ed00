package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "service-test-secret-with-enough-length"

func newUserService(repo repository.UserRepository) (*UserService, *auth.Tokens) {
	tokens := auth.NewTokens(testSecret, time.Hour)
	return NewUserService(repo, tokens).WithBcryptCost(bcrypt.MinCost), tokens
}

func TestRegister_AccumulatesValidationIssues(t *testing.T) {
	svc, _ := newUserService(noopUserRepo())

	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: " abc ", Name: "x"})
	appErr := assertCode(t, err, models.CodeValidation)
	assert.Equal(t, "Invalid Input", appErr.Message)
	require.Len(t, appErr.Data, 2)
	assert.Equal(t, "email", appErr.Data[0].Param)
	assert.Equal(t, "password", appErr.Data[1].Param)
}

func TestRegister_TrimsAndHashes(t *testing.T) {
	repo := noopUserRepo()
	var stored *models.User
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 4
		stored = u
		return nil
	}
	svc, _ := newUserService(repo)

	user, err := svc.Register(context.Background(), RegisterInput{Email: "  ada@example.com ", Password: " secret ", Name: "Ada"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, uint(4), user.ID)
	assert.Equal(t, "ada@example.com", stored.Email)
	assert.Equal(t, models.DefaultStatus, stored.Status)
	assert.NotEqual(t, "secret", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret")))
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email}, nil
	}
	svc, _ := newUserService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "ada@example.com", Password: "secret"})
	appErr := assertCode(t, err, models.CodeConflict)
	assert.Equal(t, MsgUserExists, appErr.Message)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email != "ada@example.com" {
			return nil, nil
		}
		return &models.User{ID: 9, Email: email, Password: string(hash)}, nil
	}
	svc, tokens := newUserService(repo)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "nobody@example.com", "secret")
		appErr := assertCode(t, err, models.CodeUnauthorized)
		assert.Equal(t, MsgUserNotFound, appErr.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "ada@example.com", "secreT")
		appErr := assertCode(t, err, models.CodeUnauthorized)
		assert.Equal(t, MsgInvalidPassword, appErr.Message)
	})

	t.Run("token names the user", func(t *testing.T) {
		res, err := svc.Login(context.Background(), "ada@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, uint(9), res.UserID)

		id, err := tokens.Parse(res.Token)
		require.NoError(t, err)
		assert.True(t, id.Authenticated)
		assert.Equal(t, uint(9), id.UserID)
		assert.Equal(t, "ada@example.com", id.Email)
	})
}

func TestStatus_RequiresAuthentication(t *testing.T) {
	svc, _ := newUserService(noopUserRepo())

	_, err := svc.GetStatus(context.Background(), auth.Anonymous())
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.UpdateStatus(context.Background(), auth.Anonymous(), "busy")
	assertCode(t, err, models.CodeUnauthorized)
}

func TestStatus_MissingUser(t *testing.T) {
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, _ uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User not found")
	}
	repo.updateStatusFn = func(_ context.Context, _ uint, _ string) (*models.User, error) {
		return nil, models.NewNotFoundError("User not found")
	}
	svc, _ := newUserService(repo)

	_, err := svc.GetStatus(context.Background(), authed(3))
	appErr := assertCode(t, err, models.CodeUnauthorized)
	assert.Equal(t, MsgStatusUnavailable, appErr.Message)

	_, err = svc.UpdateStatus(context.Background(), authed(3), "busy")
	appErr = assertCode(t, err, models.CodeUnauthorized)
	assert.Equal(t, MsgStatusUnavailable, appErr.Message)
}

func TestStatus_PlainErrorsBecomeInternal(t *testing.T) {
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, _ uint) (*models.User, error) {
		return nil, errors.New("connection reset")
	}
	svc, _ := newUserService(repo)

	_, err := svc.GetStatus(context.Background(), authed(3))
	assertCode(t, err, models.CodeInternal)
}

func TestUserService_SQLiteRoundTrip(t *testing.T) {
	db := testutil.OpenSQLite(t)
	svc, _ := newUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "grace@example.com", Password: "hopper", Name: "Grace"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "grace@example.com", Password: "hopper", Name: "Grace"})
	assertCode(t, err, models.CodeConflict)

	res, err := svc.Login(ctx, "grace@example.com", "hopper")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.UserID)

	updated, err := svc.UpdateStatus(ctx, authed(user.ID), "Compiling")
	require.NoError(t, err)
	assert.Equal(t, "Compiling", updated.Status)

	got, err := svc.GetStatus(ctx, authed(user.ID))
	require.NoError(t, err)
	assert.Equal(t, "Compiling", got.Status)

	// Status updates must leave the password hash intact.
	_, err = svc.Login(ctx, "grace@example.com", "hopper")
	assert.NoError(t, err)
}

func TestUserService_LoginWithRegistrationInput(t *testing.T) {
	db := testutil.OpenSQLite(t)
	svc, _ := newUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Password: "  secret1  ", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	for _, creds := range [][2]string{
		{" Ada@Example.com ", "  secret1  "},
		{"ada@example.com", "secret1"},
		{"ADA@EXAMPLE.COM", "secret1 "},
	} {
		res, err := svc.Login(ctx, creds[0], creds[1])
		require.NoError(t, err, "login as %q", creds[0])
		assert.Equal(t, user.ID, res.UserID)
	}

	_, err = svc.Register(ctx, RegisterInput{Email: "ADA@example.com", Password: "another", Name: "Ada"})
	assertCode(t, err, models.CodeConflict)
}

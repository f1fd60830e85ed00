// Package service implements the account and post operations behind the API.
package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

// Messages returned to callers.
const (
	MsgNotAuthenticated  = "Not Authenticated"
	MsgInvalidUser       = "Invalid user"
	MsgUserNotFound      = "Authentication failed! User not found."
	MsgInvalidPassword   = "Invalid Password!"
	MsgUserExists        = "User already exists!"
	MsgStatusUnavailable = "Fetching status failed!"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uint, email string) (string, error)
}

type UserService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	cost     int
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	UserID uint   `json:"userId"`
	Token  string `json:"token"`
}

func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens, cost: BcryptCost}
}

// WithBcryptCost overrides the hash cost. Tests use bcrypt.MinCost.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Register")
	defer func() { observability.EndSpan(span, err) }()

	email, password, err := validation.Credentials(in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError(MsgUserExists)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Email:    email,
		Password: string(hashed),
		Name:     in.Name,
		Status:   models.DefaultStatus,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Login")
	defer func() { observability.EndSpan(span, err) }()

	// Same normalization as Register, so the registration input logs in as typed.
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError(MsgUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(strings.TrimSpace(password))); err != nil {
		return nil, models.NewUnauthorizedError(MsgInvalidPassword)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{UserID: user.ID, Token: token}, nil
}

// GetStatus returns the caller's account, including its status text.
func (s *UserService) GetStatus(ctx context.Context, id auth.Identity) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "GetStatus")
	defer func() { observability.EndSpan(span, err) }()

	if !id.Authenticated {
		return nil, models.NewUnauthorizedError(MsgNotAuthenticated)
	}
	user, err = s.userRepo.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, statusLookupError(err)
	}
	return user, nil
}

// UpdateStatus overwrites the caller's status text and returns the updated account.
func (s *UserService) UpdateStatus(ctx context.Context, id auth.Identity, status string) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "UpdateStatus")
	defer func() { observability.EndSpan(span, err) }()

	if !id.Authenticated {
		return nil, models.NewUnauthorizedError(MsgNotAuthenticated)
	}
	user, err = s.userRepo.UpdateStatus(ctx, id.UserID, status)
	if err != nil {
		return nil, statusLookupError(err)
	}
	return user, nil
}

// statusLookupError reports a caller whose account no longer exists as unauthenticated.
func statusLookupError(err error) error {
	if models.HasCode(err, models.CodeNotFound) {
		return models.NewUnauthorizedError(MsgStatusUnavailable)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}

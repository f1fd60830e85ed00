package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.User, error)
	getByIDsFn     func(context.Context, []uint) ([]models.User, error)
	getByEmailFn   func(context.Context, string) (*models.User, error)
	createFn       func(context.Context, *models.User) error
	updateStatusFn func(context.Context, uint, string) (*models.User, error)
	postIDsFn      func(context.Context, uint) ([]uint, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateStatus(ctx context.Context, id uint, status string) (*models.User, error) {
	return s.updateStatusFn(ctx, id, status)
}
func (s *userRepoStub) PostIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.postIDsFn(ctx, userID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "Writer"}, nil
		},
		getByIDsFn: func(_ context.Context, ids []uint) ([]models.User, error) {
			users := make([]models.User, 0, len(ids))
			for _, id := range ids {
				users = append(users, models.User{ID: id, Name: "Writer"})
			}
			return users, nil
		},
		getByEmailFn:   func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:       func(_ context.Context, _ *models.User) error { return nil },
		updateStatusFn: func(_ context.Context, id uint, status string) (*models.User, error) { return &models.User{ID: id, Status: status}, nil },
		postIDsFn:      func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, uint) (*models.Post, error)
	listFn    func(context.Context, int, int) ([]models.Post, error)
	countFn   func(context.Context) (int64, error)
	updateFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, uint) error
	imageFn   func(context.Context, string) ([]uint, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ImageCreators(ctx context.Context, imageURL string) ([]uint, error) {
	return s.imageFn(ctx, imageURL)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, _ uint) (*models.Post, error) {
			return nil, models.NewNotFoundError(MsgPostNotFound)
		},
		listFn:   func(_ context.Context, _, _ int) ([]models.Post, error) { return nil, nil },
		countFn:  func(_ context.Context) (int64, error) { return 0, nil },
		updateFn: func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		imageFn:  func(_ context.Context, _ string) ([]uint, error) { return nil, nil },
	}
}

// feedRecorder captures published events.
type feedRecorder struct {
	mu     sync.Mutex
	events []notifications.FeedEvent
	err    error
}

func (f *feedRecorder) Publish(_ context.Context, ev notifications.FeedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *feedRecorder) Events() []notifications.FeedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifications.FeedEvent, len(f.events))
	copy(out, f.events)
	return out
}

// blobRecorder captures released paths.
type blobRecorder struct {
	released []string
	err      error
}

func (b *blobRecorder) Release(_ context.Context, path string) error {
	b.released = append(b.released, path)
	return b.err
}

func authed(userID uint) auth.Identity {
	return auth.Identity{UserID: userID, Email: "writer@example.com", Authenticated: true}
}

func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

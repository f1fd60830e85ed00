package service

import (
	"context"
	"log/slog"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// PageSize is the fixed number of posts per feed page.
const PageSize = 3

const (
	MsgPostNotFound = "Post Not found"
	MsgForbidden    = "Action failed due to invalid authorization!"
)

// FeedPublisher pushes post mutations to live clients.
type FeedPublisher interface {
	Publish(ctx context.Context, ev notifications.FeedEvent) error
}

// BlobReleaser deletes a stored image by its public path.
type BlobReleaser interface {
	Release(ctx context.Context, path string) error
}

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	feed     FeedPublisher
	blobs    BlobReleaser
	logger   *slog.Logger
}

type CreatePostInput struct {
	Title    string
	Content  string
	ImageURL string
}

// UpdatePostInput replaces title and content. ImageURL is nil when the client kept the old image.
type UpdatePostInput struct {
	PostID   uint
	Title    string
	Content  string
	ImageURL *string
}

// NewPostService wires the post operations. feed is required; blobs may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	feed FeedPublisher,
	blobs BlobReleaser,
) *PostService {
	if feed == nil {
		panic("service: NewPostService requires a feed publisher")
	}
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		feed:     feed,
		blobs:    blobs,
		logger:   observability.GlobalLogger.With(slog.String("component", "post_service")),
	}
}

func (s *PostService) ListPosts(ctx context.Context, id auth.Identity, page int) (_ *models.PostPage, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "ListPosts")
	defer func() { observability.EndSpan(span, err) }()

	if !id.Authenticated {
		return nil, models.NewUnauthorizedError(MsgNotAuthenticated)
	}
	if page <= 0 {
		page = 1
	}

	total, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.List(ctx, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}
	if err := s.attachAuthors(ctx, posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return &models.PostPage{Posts: posts, TotalPosts: total}, nil
}

func (s *PostService) GetPost(ctx context.Context, id auth.Identity, postID uint) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "GetPost")
	defer func() { observability.EndSpan(span, err) }()

	if !id.Authenticated {
		return nil, models.NewUnauthorizedError(MsgNotAuthenticated)
	}
	post, err = s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.attachAuthor(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) CreatePost(ctx context.Context, id auth.Identity, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	if !id.Authenticated {
		return nil, models.NewUnauthorizedError(MsgNotAuthenticated)
	}
	title, content, err := validation.Post(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	creator, err := s.userRepo.GetByID(ctx, id.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError(MsgInvalidUser)
		}
		return nil, err
	}

	imageURL := imagePath(in.ImageURL)
	if err := s.checkImageOwner(ctx, creator.ID, imageURL); err != nil {
		return nil, err
	}

	post = &models.Post{
		Title:     title,
		Content:   content,
		ImageURL:  imageURL,
		CreatorID: creator.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Creator = creator.AsAuthor()

	s.emit(ctx, notifications.CreatedEvent(post))
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id auth.Identity, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "UpdatePost")
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.ownedPost(ctx, id, in.PostID)
	if err != nil {
		return nil, err
	}

	title, content, err := validation.Post(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	oldImage := post.ImageURL
	post.Title = title
	post.Content = content
	if in.ImageURL != nil {
		if next := imagePath(*in.ImageURL); next != oldImage {
			if err := s.checkImageOwner(ctx, id.UserID, next); err != nil {
				return nil, err
			}
			post.ImageURL = next
		}
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	if err := s.attachAuthor(ctx, post); err != nil {
		return nil, err
	}
	if oldImage != "" && oldImage != post.ImageURL {
		s.release(ctx, oldImage)
	}

	s.emit(ctx, notifications.UpdatedEvent(post))
	return post, nil
}

// DeletePost removes an owned post and its image. The owner's post set is derived
// from the post rows, so no separate reference cleanup is needed.
func (s *PostService) DeletePost(ctx context.Context, id auth.Identity, postID uint) (ok bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "DeletePost")
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.ownedPost(ctx, id, postID)
	if err != nil {
		return false, err
	}

	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return false, err
	}
	if post.ImageURL != "" {
		s.release(ctx, post.ImageURL)
	}

	s.emit(ctx, notifications.DeletedEvent(post.ID))
	return true, nil
}

// ReleaseImage deletes a stored image on behalf of the caller. The image is kept
// unless at least one post uses it and every such post belongs to the caller.
func (s *PostService) ReleaseImage(ctx context.Context, id auth.Identity, path string) (released bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "ReleaseImage")
	defer func() { observability.EndSpan(span, err) }()

	if !id.Authenticated {
		return false, models.NewUnauthorizedError(MsgNotAuthenticated)
	}
	path = imagePath(path)
	if path == "" || s.blobs == nil {
		return false, nil
	}

	creators, err := s.postRepo.ImageCreators(ctx, path)
	if err != nil {
		return false, err
	}
	if len(creators) == 0 || !onlyOwner(creators, id.UserID) {
		s.logger.WarnContext(ctx, "image release refused",
			slog.String("path", path),
			slog.Uint64("user_id", uint64(id.UserID)),
		)
		return false, nil
	}
	if err := s.blobs.Release(ctx, path); err != nil {
		return false, err
	}
	return true, nil
}

// checkImageOwner rejects an image that a post of another user already shows.
func (s *PostService) checkImageOwner(ctx context.Context, userID uint, path string) error {
	if path == "" {
		return nil
	}
	creators, err := s.postRepo.ImageCreators(ctx, path)
	if err != nil {
		return err
	}
	if !onlyOwner(creators, userID) {
		return models.NewForbiddenError(MsgForbidden)
	}
	return nil
}

func onlyOwner(creators []uint, userID uint) bool {
	for _, c := range creators {
		if c != userID {
			return false
		}
	}
	return true
}

// imagePath is the stored form of an image reference.
func imagePath(p string) string {
	return strings.TrimPrefix(strings.TrimSpace(p), "/")
}

func (s *PostService) ownedPost(ctx context.Context, id auth.Identity, postID uint) (*models.Post, error) {
	if !id.Authenticated {
		return nil, models.NewUnauthorizedError(MsgNotAuthenticated)
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.CreatorID != id.UserID {
		return nil, models.NewForbiddenError(MsgForbidden)
	}
	return post, nil
}

func (s *PostService) attachAuthor(ctx context.Context, post *models.Post) error {
	posts := []models.Post{*post}
	if err := s.attachAuthors(ctx, posts); err != nil {
		return err
	}
	post.Creator = posts[0].Creator
	return nil
}

// attachAuthors joins the owner projection onto each post with one batch lookup.
func (s *PostService) attachAuthors(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(posts))
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.CreatorID]; ok {
			continue
		}
		seen[p.CreatorID] = struct{}{}
		ids = append(ids, p.CreatorID)
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	authors := make(map[uint]*models.Author, len(users))
	for i := range users {
		authors[users[i].ID] = users[i].AsAuthor()
	}
	for i := range posts {
		posts[i].Creator = authors[posts[i].CreatorID]
	}
	return nil
}

func (s *PostService) emit(ctx context.Context, ev notifications.FeedEvent) {
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "feed event not published",
			slog.String("action", ev.Action),
			slog.String("error", err.Error()),
		)
	}
}

// release drops an image no post refers to any more. Failures are logged only.
func (s *PostService) release(ctx context.Context, path string) {
	if s.blobs == nil {
		return
	}
	creators, err := s.postRepo.ImageCreators(ctx, path)
	if err != nil {
		s.logger.WarnContext(ctx, "image reference lookup failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(creators) > 0 {
		return
	}
	if err := s.blobs.Release(ctx, path); err != nil {
		observability.BlobReleaseFailures.Inc()
		s.logger.WarnContext(ctx, "image release failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// Package feed keeps a client-side view of one feed page in sync with pulled
// pages and pushed post mutations.
package feed

import "inkwell/internal/models"

// DefaultPageSize matches the server's page size.
const DefaultPageSize = 3

// Direction selects the neighbouring page for Navigate.
type Direction int

const (
	Next Direction = iota + 1
	Previous
)

// State is an immutable snapshot of the feed view. Reduce never mutates its input.
type State struct {
	Posts      []models.Post
	TotalPosts int64
	Page       int
	PageSize   int
	Loading    bool
	Err        string
}

// NewState returns the initial view: page 1, loading.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize, Loading: true}
}

// LastPage is ceil(total / pageSize), never less than 1.
func LastPage(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// Event is one of PageLoaded, PageFailed, PushCreate, PushUpdate, PushDelete, Navigate.
type Event interface {
	isEvent()
}

// PageLoaded carries the result of a pull.
type PageLoaded struct {
	Page       int
	Posts      []models.Post
	TotalPosts int64
}

// PageFailed reports a pull that did not complete.
type PageFailed struct {
	Page int
	Err  error
}

type PushCreate struct{ Post models.Post }

type PushUpdate struct{ Post models.Post }

type PushDelete struct{ PostID uint }

type Navigate struct{ Direction Direction }

func (PageLoaded) isEvent() {}
func (PageFailed) isEvent() {}
func (PushCreate) isEvent() {}
func (PushUpdate) isEvent() {}
func (PushDelete) isEvent() {}
func (Navigate) isEvent()   {}

// Reload asks the driver to pull Page.
type Reload struct {
	Page int
}

// Reduce applies ev to s. The returned Reload is nil unless a pull is needed.
func Reduce(s State, ev Event) (State, *Reload) {
	switch e := ev.(type) {
	case PageLoaded:
		// Last completion wins, whichever page it was requested for.
		s.Posts = clonePosts(e.Posts)
		s.TotalPosts = e.TotalPosts
		s.Loading = false
		s.Err = ""
		return s, nil

	case PageFailed:
		s.Loading = false
		if e.Err != nil {
			s.Err = e.Err.Error()
		} else {
			s.Err = "loading posts failed"
		}
		return s, nil

	case PushCreate:
		return applyCreate(s, e.Post), nil

	case PushUpdate:
		idx := indexOf(s.Posts, e.Post.ID)
		if idx < 0 {
			return s, nil
		}
		posts := clonePosts(s.Posts)
		posts[idx] = e.Post
		s.Posts = posts
		return s, nil

	case PushDelete:
		s.Loading = true
		return s, &Reload{Page: s.Page}

	case Navigate:
		page := s.Page
		switch e.Direction {
		case Next:
			page++
		case Previous:
			page--
		}
		page = min(max(page, 1), LastPage(s.TotalPosts, s.PageSize))
		s.Page = page
		s.Posts = nil
		s.Loading = true
		return s, &Reload{Page: page}
	}
	return s, nil
}

// applyCreate prepends on page 1, evicting the tail only when the page is full.
// A post already on the page (a pull raced ahead of the push) is replaced, not counted twice.
func applyCreate(s State, post models.Post) State {
	if idx := indexOf(s.Posts, post.ID); idx >= 0 {
		posts := clonePosts(s.Posts)
		posts[idx] = post
		s.Posts = posts
		return s
	}

	s.TotalPosts++
	if s.Page != 1 {
		return s
	}

	keep := s.Posts
	if len(keep) >= s.PageSize {
		keep = keep[:s.PageSize-1]
	}
	posts := make([]models.Post, 0, len(keep)+1)
	posts = append(posts, post)
	posts = append(posts, keep...)
	s.Posts = posts
	return s
}

func indexOf(posts []models.Post, id uint) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}

func clonePosts(posts []models.Post) []models.Post {
	if posts == nil {
		return nil
	}
	out := make([]models.Post, len(posts))
	copy(out, posts)
	return out
}

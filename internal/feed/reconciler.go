package feed

import (
	"context"
	"sync"

	"inkwell/internal/models"
	"inkwell/internal/notifications"
)

// PageFetcher pulls one feed page.
type PageFetcher interface {
	ListPosts(ctx context.Context, page int) (*models.PostPage, error)
}

// Reconciler drives Reduce: it applies events in arrival order and runs the
// pulls Reduce asks for in the background. Superseded pulls are not cancelled;
// the last one to complete overwrites the view.
type Reconciler struct {
	mu       sync.Mutex
	state    State
	fetcher  PageFetcher
	onChange func(State)
	inflight sync.WaitGroup
}

// NewReconciler builds a driver. onChange runs under the driver's lock after
// every transition and must not call back into the Reconciler.
func NewReconciler(fetcher PageFetcher, pageSize int, onChange func(State)) *Reconciler {
	if onChange == nil {
		onChange = func(State) {}
	}
	return &Reconciler{
		state:    NewState(pageSize),
		fetcher:  fetcher,
		onChange: onChange,
	}
}

// Start pulls the current page. Calling it again refreshes the view, e.g. after
// a reconnect during which pushes were missed.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	page := r.state.Page
	r.mu.Unlock()
	r.load(ctx, page)
}

// Dispatch applies ev and starts a pull when one is requested.
func (r *Reconciler) Dispatch(ctx context.Context, ev Event) {
	r.mu.Lock()
	next, reload := Reduce(r.state, ev)
	r.state = next
	r.onChange(next)
	r.mu.Unlock()

	if reload != nil {
		r.load(ctx, reload.Page)
	}
}

// HandleFeedEvent translates a pushed event into a reducer event. Unknown actions are ignored.
func (r *Reconciler) HandleFeedEvent(ctx context.Context, ev notifications.FeedEvent) {
	switch ev.Action {
	case notifications.ActionCreate:
		if ev.Post != nil {
			r.Dispatch(ctx, PushCreate{Post: *ev.Post})
		}
	case notifications.ActionUpdate:
		if ev.Post != nil {
			r.Dispatch(ctx, PushUpdate{Post: *ev.Post})
		}
	case notifications.ActionDelete:
		r.Dispatch(ctx, PushDelete{PostID: ev.PostID})
	}
}

// State returns the current snapshot.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Wait blocks until every pull started so far has been applied.
func (r *Reconciler) Wait() {
	r.inflight.Wait()
}

func (r *Reconciler) load(ctx context.Context, page int) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		res, err := r.fetcher.ListPosts(ctx, page)
		if err != nil {
			r.Dispatch(ctx, PageFailed{Page: page, Err: err})
			return
		}
		r.Dispatch(ctx, PageLoaded{Page: page, Posts: res.Posts, TotalPosts: res.TotalPosts})
	}()
}

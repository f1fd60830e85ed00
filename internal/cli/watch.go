package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"inkwell/internal/feed"
	"inkwell/internal/notifications"

	"github.com/spf13/cobra"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Server   string
	Email    string
	Password string
	PageSize int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live feed of a server",
		Long: `Log in, load the first feed page and keep it current from live events.

Keys (followed by Enter):
  n  next page
  p  previous page
  r  reload the current page
  q  quit

The password may also be given through INKWELL_PASSWORD.

Examples:
  inkwellctl watch --server http://localhost:8080 --email ada@example.com`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	_ = cmd.MarkFlagRequired("email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", feed.DefaultPageSize, "posts per page, must match the server")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	password := opts.Password
	if password == "" {
		password = os.Getenv("INKWELL_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required (--password or INKWELL_PASSWORD)")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	client, err := feed.NewClient(opts.Server, nil)
	if err != nil {
		return err
	}
	if _, err := client.Login(ctx, opts.Email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	log := opts.logger()
	out := &syncWriter{w: cmd.OutOrStdout()}
	r := feed.NewReconciler(client, opts.PageSize, func(s feed.State) {
		renderState(out, s)
	})
	r.Start(ctx)

	go readKeys(ctx, cmd.InOrStdin(), r, cancel)

	err = client.StreamWithRetry(ctx, func(ev notifications.FeedEvent) {
		log.Debug("feed event", "action", ev.Action, "post_id", ev.PostID)
		r.HandleFeedEvent(ctx, ev)
	}, func() {
		log.Info("live feed reconnected, reloading page")
		r.Start(ctx)
	})
	r.Wait()
	return err
}

// command is one line of watch input.
type command int

const (
	cmdNone command = iota
	cmdNext
	cmdPrevious
	cmdReload
	cmdQuit
)

func parseCommand(line string) command {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "n", "next":
		return cmdNext
	case "p", "prev", "previous":
		return cmdPrevious
	case "r", "reload":
		return cmdReload
	case "q", "quit", "exit":
		return cmdQuit
	default:
		return cmdNone
	}
}

func readKeys(ctx context.Context, in io.Reader, r *feed.Reconciler, quit context.CancelFunc) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		switch parseCommand(sc.Text()) {
		case cmdNext:
			r.Dispatch(ctx, feed.Navigate{Direction: feed.Next})
		case cmdPrevious:
			r.Dispatch(ctx, feed.Navigate{Direction: feed.Previous})
		case cmdReload:
			r.Start(ctx)
		case cmdQuit:
			quit()
			return
		}
	}
}

// renderState prints one snapshot of the feed view.
func renderState(w io.Writer, s feed.State) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n== page %d of %d (%d posts) ==\n", s.Page, feed.LastPage(s.TotalPosts, s.PageSize), s.TotalPosts)
	switch {
	case s.Err != "":
		fmt.Fprintf(&b, "error: %s\n", s.Err)
	case s.Loading:
		b.WriteString("loading...\n")
	case len(s.Posts) == 0:
		b.WriteString("no posts yet\n")
	}
	for _, p := range s.Posts {
		author := "unknown"
		if p.Creator != nil {
			author = p.Creator.Name
		}
		fmt.Fprintf(&b, "#%d %s by %s (%s)\n", p.ID, p.Title, author, p.CreatedAt.Format("2006-01-02 15:04"))
		if p.ImageURL != "" {
			fmt.Fprintf(&b, "    image: %s\n", p.ImageURL)
		}
	}
	_, _ = io.WriteString(w, b.String())
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

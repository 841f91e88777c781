package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rpupo63/blog-cms-backend/autosave"
	"github.com/rpupo63/blog-cms-backend/client"
)

func newDraftSyncCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft-sync",
		Short: "Watch a local HTML file and auto-save it into a post",
		Long: `Watch a local HTML file and push its content into a post whenever the
file goes quiet for the auto-save delay. Stop with Ctrl-C; a pending edit is
saved before exiting.

Example:
  blog-cms draft-sync --api https://blog.example.com --post hello-world --file draft.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := draftSyncOptions{
				APIURL: v.GetString("BLOG_API_URL"),
				Token:  v.GetString("BLOG_API_TOKEN"),
				Post:   v.GetString("post"),
				File:   v.GetString("file"),
				Delay:  v.GetDuration("delay"),
			}
			if opts.Post == "" || opts.File == "" {
				return errors.New("--post and --file are required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := client.New(opts.APIURL, client.WithToken(opts.Token))
			return runDraftSync(ctx, c, opts, nil)
		},
	}
	cmd.Flags().String("api", "http://localhost:8080", "Base URL of the blog API")
	cmd.Flags().String("token", "", "Session token (or BLOG_API_TOKEN)")
	cmd.Flags().String("post", "", "Slug or ID of the post to update")
	cmd.Flags().String("file", "", "HTML file holding the post content")
	cmd.Flags().Duration("delay", autosave.DefaultDelay, "Quiet period before an edit is saved")
	_ = v.BindPFlag("BLOG_API_URL", cmd.Flags().Lookup("api"))
	_ = v.BindPFlag("BLOG_API_TOKEN", cmd.Flags().Lookup("token"))
	_ = v.BindPFlag("post", cmd.Flags().Lookup("post"))
	_ = v.BindPFlag("file", cmd.Flags().Lookup("file"))
	_ = v.BindPFlag("delay", cmd.Flags().Lookup("delay"))
	return cmd
}

type draftSyncOptions struct {
	APIURL string
	Token  string
	Post   string
	File   string
	Delay  time.Duration
}

// runDraftSync feeds every change of opts.File into an auto-saver bound to
// the post until ctx is done. ready, when non-nil, is closed once the file
// is being watched.
func runDraftSync(ctx context.Context, c *client.Client, opts draftSyncOptions, ready chan<- struct{}) error {
	logger := log.With().Str("command", "draft-sync").Str("post", opts.Post).Logger()

	post, err := c.Post(ctx, opts.Post)
	if err != nil {
		return fmt.Errorf("fetch post %s: %w", opts.Post, err)
	}

	saver := client.NewPostAutoSaver(c, opts.Post, client.DraftOf(post),
		autosave.WithDelay[client.PostDraft](opts.Delay),
		autosave.WithLogger[client.PostDraft](logger),
		autosave.OnSuccess[client.PostDraft](func(d client.PostDraft) {
			logger.Info().Int("bytes", len(d.Content)).Msg("draft saved")
		}),
		autosave.OnError[client.PostDraft](func(err error, _ client.PostDraft) {
			logger.Error().Err(err).Msg("draft not saved, edit the file again to retry")
		}),
	)
	defer saver.Close()

	path, err := filepath.Abs(opts.File)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing it, so the
	// directory is watched and events are filtered by name.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	logger.Info().Str("file", path).Msg("watching for changes")
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := saver.Flush(flushCtx); err != nil {
				return fmt.Errorf("save pending edit: %w", err)
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			loadDraft(logger, saver, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func loadDraft(logger zerolog.Logger, saver *autosave.Saver[client.PostDraft], path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read draft file")
		return
	}
	draft := saver.Value()
	if draft.Content == string(content) {
		return
	}
	draft.Content = string(content)
	saver.Set(draft)
}

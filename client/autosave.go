package client

import (
	"context"
	"time"

	"github.com/rpupo63/blog-cms-backend/autosave"
)

// PostDraft is the editable part of a post.
type PostDraft struct {
	Title       string
	Content     string
	Excerpt     *string
	ScheduledAt *time.Time
}

// DraftOf returns the editable fields of p.
func DraftOf(p *Post) PostDraft {
	return PostDraft{
		Title:       p.Title,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		ScheduledAt: p.ScheduledAt,
	}
}

// NewPostAutoSaver returns a saver that pushes drafts of the post through
// UpdatePost. ScheduledAt is always sent so an edit keeps the schedule.
func NewPostAutoSaver(c *Client, slugOrID string, initial PostDraft, opts ...autosave.Option[PostDraft]) *autosave.Saver[PostDraft] {
	mutate := func(ctx context.Context, d PostDraft) (PostDraft, error) {
		post, err := c.UpdatePost(ctx, slugOrID, PostUpdate{
			Title:       &d.Title,
			Content:     &d.Content,
			Excerpt:     d.Excerpt,
			ScheduledAt: d.ScheduledAt,
		})
		if err != nil {
			return d, err
		}
		if post == nil {
			return d, nil
		}
		return DraftOf(post), nil
	}
	return autosave.New(initial, mutate, opts...)
}

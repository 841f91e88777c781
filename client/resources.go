package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rpupo63/blog-cms-backend/models"
)

// Post is a post as the API returns it, tags included.
type Post struct {
	models.Post
	Tags []models.Tag `json:"tags"`
}

type Author struct {
	models.User
	PostCount int64 `json:"post_count"`
}

type CommentsOverview struct {
	Total        int64 `json:"total"`
	WeeklyGrowth int64 `json:"weeklyGrowth"`
	IsUp         bool  `json:"isUp"`
}

// PostList is one page of posts.
type PostList struct {
	Posts      []Post
	Pagination Pagination
}

// PostsParams filters a post listing. Zero values are not sent; page and
// limit are passed through as given.
type PostsParams struct {
	Status    string
	Category  string
	Author    string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

func (p PostsParams) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("status", p.Status)
	set("category", p.Category)
	set("author", p.Author)
	set("q", p.Search)
	set("sortBy", p.SortBy)
	set("sortOrder", p.SortOrder)
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

// PostUpdate is the body of a post update. Nil fields are omitted and left
// unchanged by the server, except ScheduledAt which is cleared when nil.
type PostUpdate struct {
	Title           *string            `json:"title,omitempty"`
	Slug            *string            `json:"slug,omitempty"`
	Content         *string            `json:"content,omitempty"`
	Excerpt         *string            `json:"excerpt,omitempty"`
	Status          *models.PostStatus `json:"status,omitempty"`
	CategoryID      *uuid.UUID         `json:"category_id,omitempty"`
	FeaturedImageID *uuid.UUID         `json:"featured_image_id,omitempty"`
	ScheduledAt     *time.Time         `json:"scheduled_at,omitempty"`
	Tags            []uuid.UUID        `json:"tags,omitempty"`
}

func (c *Client) Posts(ctx context.Context, params PostsParams) (PostList, error) {
	env, err := get[[]Post](ctx, c, resourcePosts, "", "/api/posts", params.values())
	if err != nil {
		return PostList{}, err
	}
	return toPostList(env), nil
}

// Post fetches a post by slug or ID.
func (c *Client) Post(ctx context.Context, slugOrID string) (*Post, error) {
	env, err := get[*Post](ctx, c, resourcePost, slugOrID, "/api/posts/"+url.PathEscape(slugOrID), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) Author(ctx context.Context, username string) (*Author, error) {
	env, err := get[*Author](ctx, c, resourceAuthor, username, "/api/authors/"+url.PathEscape(username), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// AuthorPostsParams filters an author's post listing. An empty Status lists
// published posts; other statuses need a token with posts:read.
type AuthorPostsParams struct {
	Status    string
	SortOrder string
	Page      int
	Limit     int
}

// AuthorPosts lists an author's posts.
func (c *Client) AuthorPosts(ctx context.Context, username string, params AuthorPostsParams) (PostList, error) {
	query := PostsParams{
		Status:    params.Status,
		SortOrder: params.SortOrder,
		Page:      params.Page,
		Limit:     params.Limit,
	}.values()
	env, err := get[[]Post](ctx, c, resourceAuthorPosts, username, "/api/authors/"+url.PathEscape(username)+"/posts", query)
	if err != nil {
		return PostList{}, err
	}
	return toPostList(env), nil
}

func (c *Client) Settings(ctx context.Context) (map[string]models.SettingValue, error) {
	env, err := get[map[string]models.SettingValue](ctx, c, resourceSettings, "", "/api/settings", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// SaveSettings upserts settings and returns the stored mapping.
func (c *Client) SaveSettings(ctx context.Context, settings map[string]models.SettingValue) (map[string]models.SettingValue, error) {
	env, err := send[map[string]models.SettingValue](ctx, c, http.MethodPost, "/api/settings", nil, settings)
	if err != nil {
		return nil, err
	}
	c.cache.invalidate(resourceSettings + ":")
	return env.Data, nil
}

func (c *Client) Roles(ctx context.Context) ([]models.Role, error) {
	env, err := get[[]models.Role](ctx, c, resourceRoles, "", "/api/roles", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// UpdatePost applies update to a post and drops every cached read the
// change can affect.
func (c *Client) UpdatePost(ctx context.Context, slugOrID string, update PostUpdate) (*Post, error) {
	env, err := send[*Post](ctx, c, http.MethodPut, "/api/posts/"+url.PathEscape(slugOrID), nil, update)
	if err != nil {
		return nil, err
	}

	stale := []string{
		resourcePosts + ":",
		resourceAuthorPosts + ":",
		cacheKey(resourcePost, slugOrID, nil),
	}
	if p := env.Data; p != nil {
		stale = append(stale, cacheKey(resourcePost, p.Slug, nil), cacheKey(resourcePost, p.ID.String(), nil))
	}
	c.cache.invalidate(stale...)
	return env.Data, nil
}

// ConfirmSubscription confirms a newsletter subscription and returns the
// server's message.
func (c *Client) ConfirmSubscription(ctx context.Context, token string) (string, error) {
	env, err := send[any](ctx, c, http.MethodGet, "/api/newsletters/confirmation", url.Values{"token": {token}}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) CommentsOverview(ctx context.Context) (CommentsOverview, error) {
	env, err := get[CommentsOverview](ctx, c, resourceComments, "", "/api/analytics/overview/comments", nil)
	if err != nil {
		return CommentsOverview{}, err
	}
	return env.Data, nil
}

func toPostList(env envelope[[]Post]) PostList {
	list := PostList{Posts: env.Data}
	if env.Pagination != nil {
		list.Pagination = *env.Pagination
	}
	return list
}

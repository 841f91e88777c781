package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
	"github.com/rpupo63/blog-cms-backend/services"
)

const testSecret = "test-secret"

type fakeMailer struct {
	mu   sync.Mutex
	sent []services.Email
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, email services.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

type testAPI struct {
	router   *chi.Mux
	db       database.Database
	clock    *clock.Mock
	mailer   *fakeMailer
	sessions sessionManager
	author   models.User
	category models.Category
	tags     map[string]models.Tag
}

func setupTestAPI(t *testing.T, overrides ...map[string]string) *testAPI {
	t.Helper()

	gdb, err := database.Open(map[string]string{
		"DB_TYPE":     "sqlite",
		"SQLITE_PATH": filepath.Join(t.TempDir(), "api.db"),
		"LOG_FORMAT":  "json",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, models.Migrate(gdb))
	require.NoError(t, models.SeedRoles(gdb))
	db := database.New(gdb)

	c := map[string]string{"JWT_SECRET": testSecret, "BASE_URL": "https://blog.test"}
	for _, o := range overrides {
		for k, v := range o {
			c[k] = v
		}
	}

	mock := clock.NewMock()
	mock.Set(time.Now().UTC().Truncate(time.Second))
	mailer := &fakeMailer{}

	api := &testAPI{
		router:   newRouter(db, withConfig(c), withMailer(mailer), withClock(mock)),
		db:       db,
		clock:    mock,
		mailer:   mailer,
		sessions: newSessionManager(testSecret, time.Hour, mock),
		tags:     map[string]models.Tag{},
	}

	ctx := context.Background()
	api.author = api.createUser(t, "ada", models.RoleAuthor)
	api.category = models.Category{Name: "Engineering", Slug: "engineering"}
	require.NoError(t, db.CategoryRepo().Create(ctx, &api.category))
	for _, name := range []string{"http", "go", "databases"} {
		tag := models.Tag{Name: name, Slug: name}
		require.NoError(t, db.TagRepo().Create(ctx, &tag))
		api.tags[name] = tag
	}
	return api
}

func (a *testAPI) createUser(t *testing.T, username, role string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Username: username, Name: username, RoleName: role, PasswordHash: string(hash)}
	require.NoError(t, a.db.UserRepo().Create(context.Background(), &user))
	return user
}

func (a *testAPI) token(t *testing.T, user models.User) string {
	t.Helper()
	token, _, err := a.sessions.issue(user)
	require.NoError(t, err)
	return token
}

func (a *testAPI) createPost(t *testing.T, slug string, status models.PostStatus, tagNames ...string) models.Post {
	t.Helper()
	post := models.Post{
		Slug:       slug,
		Title:      "Post " + slug,
		Content:    "<p>" + slug + "</p>",
		Status:     status,
		AuthorID:   a.author.ID,
		CategoryID: &a.category.ID,
	}
	var tagIDs []uuid.UUID
	for _, name := range tagNames {
		tagIDs = append(tagIDs, a.tags[name].ID)
	}
	require.NoError(t, a.db.PostRepo().Create(context.Background(), &post, tagIDs))
	return post
}

type apiResponse struct {
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Field      string          `json:"field"`
	Pagination *pagination     `json:"pagination"`
	LastUpdate int64           `json:"lastUpdate"`
}

func (a *testAPI) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

type postBody struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Status      models.PostStatus `json:"status"`
	PublishedAt *time.Time        `json:"published_at"`
	ScheduledAt *time.Time        `json:"scheduled_at"`
	Excerpt     *string           `json:"excerpt"`
	Author      *models.User      `json:"author"`
	Category    *models.Category  `json:"category"`
	Tags        []models.Tag      `json:"tags"`
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func tagNames(tags []models.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

func TestPermissionGuardNeverInvokesHandlerWhenDenied(t *testing.T) {
	api := setupTestAPI(t)
	guard := newPermissionGuard(api.db.RoleRepo(), api.db.UserRepo())
	subscriber := api.createUser(t, "reader", models.RoleSubscriber)
	admin := api.createUser(t, "root", models.RoleAdmin)

	tests := []struct {
		name       string
		session    *Session
		wantStatus int
		wantCalled bool
	}{
		{"anonymous", nil, http.StatusUnauthorized, false},
		{"insufficient role", &Session{UserID: subscriber.ID, Username: subscriber.Username}, http.StatusForbidden, false},
		{"unknown user", &Session{UserID: uuid.New(), Username: "ghost"}, http.StatusUnauthorized, false},
		{"granted", &Session{UserID: admin.ID, Username: admin.Username}, http.StatusTeapot, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := guard.require(models.PermSettingsWrite, func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusTeapot)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/settings", nil)
			if tt.session != nil {
				req = req.WithContext(ctxWithSession(req.Context(), tt.session))
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestPermissionGuardUsesPublicRoleForAnonymousCallers(t *testing.T) {
	api := setupTestAPI(t)
	guard := newPermissionGuard(api.db.RoleRepo(), api.db.UserRepo())

	called := false
	handler := guard.require(models.PermPostsView, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
}

func TestGetPostBySlugAndIDReturnsSameRecord(t *testing.T) {
	api := setupTestAPI(t)
	post := api.createPost(t, "hello-world", models.PostStatusPublished, "http", "go", "databases")

	rec, bySlug := api.do(t, http.MethodGet, "/api/posts/hello-world", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post retrieved successfully", bySlug.Message)

	rec, byID := api.do(t, http.MethodGet, "/api/posts/"+post.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	slugPost := decodeData[postBody](t, bySlug)
	idPost := decodeData[postBody](t, byID)
	assert.Equal(t, post.ID, slugPost.ID)
	assert.Equal(t, slugPost.ID, idPost.ID)
	assert.Equal(t, []string{"databases", "go", "http"}, tagNames(slugPost.Tags))
	assert.Equal(t, slugPost.Tags, idPost.Tags)
	require.NotNil(t, slugPost.Author)
	assert.Equal(t, "ada", slugPost.Author.Username)
	require.NotNil(t, slugPost.Category)
	assert.Equal(t, "engineering", slugPost.Category.Slug)
}

func TestGetPostNotFound(t *testing.T) {
	api := setupTestAPI(t)

	rec, resp := api.do(t, http.MethodGet, "/api/posts/missing", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found", resp.Error)
	assert.JSONEq(t, "null", string(resp.Data))
}

func TestGetDraftHiddenFromAnonymousCallers(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "secret-draft", models.PostStatusDraft)

	rec, _ := api.do(t, http.MethodGet, "/api/posts/secret-draft", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/api/posts/secret-draft", nil, api.token(t, api.author))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdatePostChecksExistenceBeforeWriting(t *testing.T) {
	api := setupTestAPI(t)
	editor := api.createUser(t, "eddie", models.RoleEditor)

	rec, resp := api.do(t, http.MethodPut, "/api/posts/does-not-exist", map[string]any{"title": "x"}, api.token(t, editor))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found", resp.Error)
}

func TestUpdatePostRejectsCallersWithoutPermission(t *testing.T) {
	api := setupTestAPI(t)
	post := api.createPost(t, "guarded", models.PostStatusDraft)
	subscriber := api.createUser(t, "reader", models.RoleSubscriber)

	rec, _ := api.do(t, http.MethodPut, "/api/posts/guarded", map[string]any{"title": "Hijacked"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := api.do(t, http.MethodPut, "/api/posts/guarded", map[string]any{"title": "Hijacked"}, api.token(t, subscriber))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, resp.Message, models.PermPostsEdit)

	stored, err := api.db.PostRepo().FindBySlugOrID(context.Background(), post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Post guarded", stored.Title)
}

func TestUpdatePostAppliesPartialFields(t *testing.T) {
	api := setupTestAPI(t)
	post := api.createPost(t, "draft-one", models.PostStatusDraft, "databases")
	scheduled := api.clock.Now().Add(24 * time.Hour)
	require.NoError(t, api.db.PostRepo().UpdateFields(context.Background(), post.ID, map[string]any{"scheduled_at": scheduled}))

	body := map[string]any{
		"title":   "Renamed",
		"excerpt": "Short",
		"tags":    []uuid.UUID{api.tags["http"].ID, api.tags["go"].ID},
	}
	rec, resp := api.do(t, http.MethodPut, "/api/posts/draft-one", body, api.token(t, api.author))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeData[postBody](t, resp)
	assert.Equal(t, "Post updated successfully", resp.Message)
	assert.Equal(t, api.clock.Now().UnixMilli(), resp.LastUpdate)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "draft-one", updated.Slug)
	require.NotNil(t, updated.Excerpt)
	assert.Equal(t, "Short", *updated.Excerpt)
	assert.Nil(t, updated.ScheduledAt, "absent scheduled_at clears the column")
	assert.Equal(t, []string{"go", "http"}, tagNames(updated.Tags))
	assert.Equal(t, models.PostStatusDraft, updated.Status)
}

func TestUpdatePostClearsNullableFields(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "with-category", models.PostStatusDraft)

	rec, resp := api.do(t, http.MethodPut, "/api/posts/with-category", `{"category_id": null}`, api.token(t, api.author))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeData[postBody](t, resp)
	assert.Nil(t, updated.Category)
}

func TestUpdatePostScheduling(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "later", models.PostStatusDraft)
	token := api.token(t, api.author)

	rec, resp := api.do(t, http.MethodPut, "/api/posts/later", map[string]any{"status": "scheduled"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "scheduled_at", resp.Field)

	rec, resp = api.do(t, http.MethodPut, "/api/posts/later", map[string]any{"status": "scheduled", "scheduled_at": "tomorrow"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "scheduled_at", resp.Field)

	when := api.clock.Now().Add(2 * time.Hour)
	rec, resp = api.do(t, http.MethodPut, "/api/posts/later", map[string]any{
		"status":       "scheduled",
		"scheduled_at": when.Format(time.RFC3339),
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[postBody](t, resp)
	assert.Equal(t, models.PostStatusScheduled, updated.Status)
	require.NotNil(t, updated.ScheduledAt)
	assert.True(t, when.Equal(*updated.ScheduledAt))
}

func TestUpdatePostStampsPublishedAtOnFirstPublish(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "going-live", models.PostStatusDraft)
	token := api.token(t, api.author)

	rec, resp := api.do(t, http.MethodPut, "/api/posts/going-live", map[string]any{"status": "published"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeData[postBody](t, resp)
	require.NotNil(t, first.PublishedAt)
	assert.True(t, api.clock.Now().Equal(*first.PublishedAt))

	api.clock.Add(30 * time.Minute)
	rec, resp = api.do(t, http.MethodPut, "/api/posts/going-live", map[string]any{"title": "Edited"}, api.token(t, api.author))
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeData[postBody](t, resp)
	require.NotNil(t, second.PublishedAt)
	assert.True(t, first.PublishedAt.Equal(*second.PublishedAt))
}

func TestContributorCannotPublish(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "needs-review", models.PostStatusDraft)
	contributor := api.createUser(t, "intern", models.RoleContributor)

	rec, _ := api.do(t, http.MethodPut, "/api/posts/needs-review", map[string]any{"status": "published"}, api.token(t, contributor))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdatePostRejectsUnknownTags(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "tagged", models.PostStatusDraft, "go")

	rec, resp := api.do(t, http.MethodPut, "/api/posts/tagged", map[string]any{"tags": []uuid.UUID{uuid.New()}}, api.token(t, api.author))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "tags", resp.Field)
}

func TestCreatePostDerivesUniqueSlug(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "hello-world", models.PostStatusPublished)
	token := api.token(t, api.author)

	rec, resp := api.do(t, http.MethodPost, "/api/posts", map[string]any{
		"title": "Hello, World!",
		"tags":  []uuid.UUID{api.tags["go"].ID},
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeData[postBody](t, resp)
	assert.Equal(t, "hello-world-2", created.Slug)
	assert.Equal(t, models.PostStatusDraft, created.Status)
	assert.Equal(t, []string{"go"}, tagNames(created.Tags))
	require.NotNil(t, created.Author)
	assert.Equal(t, "ada", created.Author.Username)

	rec, resp = api.do(t, http.MethodPost, "/api/posts", map[string]any{"content": "no title"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title", resp.Field)
}

func TestDeletePost(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "short-lived", models.PostStatusPublished, "go")
	editor := api.createUser(t, "eddie", models.RoleEditor)

	rec, _ := api.do(t, http.MethodDelete, "/api/posts/short-lived", nil, api.token(t, api.author))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = api.do(t, http.MethodDelete, "/api/posts/short-lived", nil, api.token(t, editor))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/api/posts/short-lived", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPosts(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "one", models.PostStatusPublished)
	api.createPost(t, "two", models.PostStatusPublished)
	api.createPost(t, "three", models.PostStatusDraft)

	rec, resp := api.do(t, http.MethodGet, "/api/posts?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, int64(2), resp.Pagination.Total)
	assert.Equal(t, int64(2), resp.Pagination.TotalPages)
	assert.Len(t, decodeData[[]postBody](t, resp), 1)

	rec, _ = api.do(t, http.MethodGet, "/api/posts?status=draft", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = api.do(t, http.MethodGet, "/api/posts?status=all", nil, api.token(t, api.author))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), resp.Pagination.Total)

	rec, _ = api.do(t, http.MethodGet, "/api/posts?status=archived", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginAndMe(t *testing.T) {
	api := setupTestAPI(t)

	rec, resp := api.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "ada", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = api.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "ada", "password": "correct horse"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decodeData[sessionResponse](t, resp)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ada", session.User.Username)
	assert.NotEmpty(t, rec.Result().Cookies())

	rec, resp = api.do(t, http.MethodGet, "/api/auth/me", nil, session.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", decodeData[models.User](t, resp).Username)

	rec, _ = api.do(t, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	api := setupTestAPI(t)
	token := api.token(t, api.author)

	api.clock.Add(2 * time.Hour)
	rec, resp := api.do(t, http.MethodGet, "/api/auth/me", nil, token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, resp.Error)
}

func TestRolesRequireRolesRead(t *testing.T) {
	api := setupTestAPI(t)
	admin := api.createUser(t, "root", models.RoleAdmin)

	rec, _ := api.do(t, http.MethodGet, "/api/roles", nil, api.token(t, api.author))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := api.do(t, http.MethodGet, "/api/roles", nil, api.token(t, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Roles fetched successfully", resp.Message)
	assert.Len(t, decodeData[[]models.Role](t, resp), len(models.DefaultRoles()))
}

func TestSettingsRoundTrip(t *testing.T) {
	api := setupTestAPI(t)
	admin := api.createUser(t, "root", models.RoleAdmin)
	settings := map[string]models.SettingValue{
		"site_title":  {Value: "Field Notes", Enabled: true},
		"maintenance": {Value: "", Enabled: false},
		"analytics":   {Value: "G-123", Enabled: true},
	}

	rec, _ := api.do(t, http.MethodPost, "/api/settings", settings, api.token(t, api.author))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := api.do(t, http.MethodPost, "/api/settings", settings, api.token(t, admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, settings, decodeData[map[string]models.SettingValue](t, resp))

	rec, resp = api.do(t, http.MethodGet, "/api/settings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, settings, decodeData[map[string]models.SettingValue](t, resp))
}

func TestCommentsOverview(t *testing.T) {
	api := setupTestAPI(t)
	post := api.createPost(t, "discussed", models.PostStatusPublished)
	now := api.clock.Now()

	for _, c := range []struct {
		age    time.Duration
		status models.CommentStatus
	}{
		{time.Hour, models.CommentStatusApproved},
		{2 * 24 * time.Hour, models.CommentStatusApproved},
		{6 * 24 * time.Hour, models.CommentStatusApproved},
		{3 * time.Hour, models.CommentStatusPending},
		{9 * 24 * time.Hour, models.CommentStatusApproved},
		{30 * 24 * time.Hour, models.CommentStatusApproved},
	} {
		comment := models.Comment{
			PostID:     post.ID,
			AuthorName: "reader",
			Content:    "nice",
			Status:     c.status,
			CreatedAt:  now.Add(-c.age),
		}
		require.NoError(t, api.db.CommentRepo().Create(context.Background(), &comment))
	}

	rec, resp := api.do(t, http.MethodGet, "/api/analytics/overview/comments", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	overview := decodeData[commentsOverview](t, resp)
	assert.Equal(t, int64(5), overview.Total)
	assert.Equal(t, int64(3), overview.WeeklyGrowth)
	assert.True(t, overview.IsUp)
}

func TestPostsOverviewRequiresAnalyticsView(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "a", models.PostStatusPublished)
	api.createPost(t, "b", models.PostStatusDraft)
	api.createPost(t, "c", models.PostStatusDraft)

	rec, _ := api.do(t, http.MethodGet, "/api/analytics/overview/posts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := api.do(t, http.MethodGet, "/api/analytics/overview/posts", nil, api.token(t, api.author))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, postsOverview{Total: 3, Published: 1, Drafts: 2}, decodeData[postsOverview](t, resp))
}

func TestNewsletterSubscriptionLifecycle(t *testing.T) {
	api := setupTestAPI(t)
	ctx := context.Background()
	email := "reader" + "@" + "example.com"

	rec, _ := api.do(t, http.MethodPost, "/api/newsletters", map[string]string{"email": "not-an-address"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/api/newsletters", map[string]string{"email": email, "name": "Reader"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, api.mailer.sent, 1)
	assert.Equal(t, []string{email}, api.mailer.sent[0].To)

	sub, err := api.db.NewsletterRepo().FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriberPending, sub.Status)
	assert.Contains(t, api.mailer.sent[0].Text, "https://blog.test/api/newsletters/confirmation?token="+sub.Token)

	rec, _ = api.do(t, http.MethodGet, "/api/newsletters/confirmation", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/api/newsletters/confirmation?token=unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp := api.do(t, http.MethodGet, "/api/newsletters/confirmation?token="+sub.Token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Subscription confirmed", resp.Message)

	rec, resp = api.do(t, http.MethodGet, "/api/newsletters/confirmation?token="+sub.Token, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Subscription already confirmed", resp.Message)

	rec, _ = api.do(t, http.MethodGet, "/api/newsletters/unsubscribe?token="+sub.Token, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	sub, err = api.db.NewsletterRepo().FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriberUnsubscribed, sub.Status)
}

func TestNewsletterConfirmationExpires(t *testing.T) {
	api := setupTestAPI(t)
	email := "late" + "@" + "example.com"

	rec, _ := api.do(t, http.MethodPost, "/api/newsletters", map[string]string{"email": email}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	sub, err := api.db.NewsletterRepo().FindByEmail(context.Background(), email)
	require.NoError(t, err)

	api.clock.Add(49 * time.Hour)
	rec, _ = api.do(t, http.MethodGet, "/api/newsletters/confirmation?token="+sub.Token, nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribeIsRateLimited(t *testing.T) {
	api := setupTestAPI(t, map[string]string{"SUBSCRIBE_RATE_PER_MINUTE": "2"})

	for i, want := range []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests} {
		email := "user" + string(rune('a'+i)) + "@" + "example.com"
		rec, _ := api.do(t, http.MethodPost, "/api/newsletters", map[string]string{"email": email}, "")
		assert.Equal(t, want, rec.Code, "request %d", i)
	}
}

func TestTaxonomyEndpoints(t *testing.T) {
	api := setupTestAPI(t)
	token := api.token(t, api.author)

	rec, _ := api.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Design"}, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := api.do(t, http.MethodPost, "/api/tags", map[string]string{"name": "Cloud Native"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "cloud-native", decodeData[models.Tag](t, resp).Slug)

	rec, resp = api.do(t, http.MethodPost, "/api/tags", map[string]string{"name": "cloud native"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Tag already exists", resp.Error)

	rec, resp = api.do(t, http.MethodGet, "/api/tags?limit=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), resp.Pagination.Total)
	assert.Equal(t, []string{"Cloud Native", "databases"}, tagNames(decodeData[[]models.Tag](t, resp)))
}

func TestAuthorProfile(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "mine", models.PostStatusPublished)
	api.createPost(t, "unfinished", models.PostStatusDraft)

	rec, resp := api.do(t, http.MethodGet, "/api/authors/ada", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeData[authorProfile](t, resp)
	assert.Equal(t, int64(1), profile.PostCount)

	rec, resp = api.do(t, http.MethodGet, "/api/authors/ada/posts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decodeData[[]postBody](t, resp)
	require.Len(t, posts, 1)
	assert.Equal(t, "mine", posts[0].Slug)

	rec, _ = api.do(t, http.MethodGet, "/api/authors/nobody", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookmarks(t *testing.T) {
	api := setupTestAPI(t)
	post := api.createPost(t, "keeper", models.PostStatusPublished)
	reader := api.createUser(t, "reader", models.RoleSubscriber)
	token := api.token(t, reader)

	rec, _ := api.do(t, http.MethodPost, "/api/bookmarks/keeper", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/api/bookmarks/keeper", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = api.do(t, http.MethodPost, "/api/bookmarks/"+post.ID.String(), nil, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := api.do(t, http.MethodGet, "/api/bookmarks", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]models.Bookmark](t, resp), 1)

	rec, _ = api.do(t, http.MethodDelete, "/api/bookmarks/keeper", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, resp = api.do(t, http.MethodGet, "/api/bookmarks", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]models.Bookmark](t, resp))
}

func TestCommentsFlow(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "talk", models.PostStatusPublished)
	moderator := api.createUser(t, "mod", models.RoleModerator)

	rec, resp := api.do(t, http.MethodPost, "/api/posts/talk/comments", map[string]string{"author_name": "Sam", "content": "Great read"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	comment := decodeData[models.Comment](t, resp)
	assert.Equal(t, models.CommentStatusPending, comment.Status)

	rec, resp = api.do(t, http.MethodGet, "/api/posts/talk/comments", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]models.Comment](t, resp))

	path := "/api/comments/" + comment.ID.String()
	rec, _ = api.do(t, http.MethodPatch, path, map[string]string{"status": "approved"}, api.token(t, api.author))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = api.do(t, http.MethodPatch, path, map[string]string{"status": "approved"}, api.token(t, moderator))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = api.do(t, http.MethodGet, "/api/posts/talk/comments", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]models.Comment](t, resp), 1)
}

func TestMalformedBody(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "broken", models.PostStatusDraft)

	rec, resp := api.do(t, http.MethodPut, "/api/posts/broken", `{"title":`, api.token(t, api.author))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, resp.Error)
}

func TestHealthAndMetrics(t *testing.T) {
	api := setupTestAPI(t)

	rec, resp := api.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeData[map[string]any](t, resp)["status"])

	api.do(t, http.MethodGet, "/api/posts/missing", nil, "")

	rec, _ = api.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `blog_cms_http_requests_total{method="GET",route="/api/posts/{slugOrId}`)
	assert.Contains(t, body, `status="404"`)
}

func TestUpdateScheduledPostWithoutStatus(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "later", models.PostStatusDraft)
	token := api.token(t, api.author)

	when := api.clock.Now().Add(2 * time.Hour)
	rec, _ := api.do(t, http.MethodPut, "/api/posts/later", map[string]any{
		"status":       "scheduled",
		"scheduled_at": when.Format(time.RFC3339),
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp := api.do(t, http.MethodPut, "/api/posts/later", map[string]any{"content": "<p>typo fix</p>"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[postBody](t, resp)
	assert.Equal(t, models.PostStatusScheduled, updated.Status)
	assert.Equal(t, "<p>typo fix</p>", updated.Content)
	assert.Nil(t, updated.ScheduledAt, "scheduled_at is cleared when absent")
}

func TestPostTitleMustNotBeBlank(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "titled", models.PostStatusDraft)
	token := api.token(t, api.author)

	rec, resp := api.do(t, http.MethodPut, "/api/posts/titled", map[string]any{"title": "   "}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title", resp.Field)

	rec, resp = api.do(t, http.MethodGet, "/api/posts/titled", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post titled", decodeData[postBody](t, resp).Title)

	rec, resp = api.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "  ", "slug": "blank"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title", resp.Field)
}

func TestSettingsRejectsBlankKey(t *testing.T) {
	api := setupTestAPI(t)
	admin := api.createUser(t, "root", models.RoleAdmin)

	rec, resp := api.do(t, http.MethodPost, "/api/settings", map[string]models.SettingValue{" ": {Value: "x"}}, api.token(t, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, resp.Error, "validator")
}

func TestValidateStructSkipsNonStructPayloads(t *testing.T) {
	settings := map[string]models.SettingValue{"site_title": {Value: "Notes"}}
	assert.NoError(t, validateStruct(&settings))

	var ids []uuid.UUID
	assert.NoError(t, validateStruct(&ids))

	err := validateStruct(&loginRequest{})
	assert.ErrorIs(t, err, errs.ErrMissingRequiredField)
}

func TestAuthorPostsStatusFilter(t *testing.T) {
	api := setupTestAPI(t)
	api.createPost(t, "mine", models.PostStatusPublished)
	api.createPost(t, "unfinished", models.PostStatusDraft)

	rec, _ := api.do(t, http.MethodGet, "/api/authors/ada/posts?status=draft", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	reader := api.createUser(t, "reader", models.RoleSubscriber)
	rec, _ = api.do(t, http.MethodGet, "/api/authors/ada/posts?status=draft", nil, api.token(t, reader))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := api.do(t, http.MethodGet, "/api/authors/ada/posts?status=draft", nil, api.token(t, api.author))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	posts := decodeData[[]postBody](t, resp)
	require.Len(t, posts, 1)
	assert.Equal(t, "unfinished", posts[0].Slug)

	rec, resp = api.do(t, http.MethodGet, "/api/authors/ada/posts?status=all", nil, api.token(t, api.author))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), resp.Pagination.Total)

	rec, resp = api.do(t, http.MethodGet, "/api/authors/ada/posts?status=published", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), resp.Pagination.Total)

	rec, resp = api.do(t, http.MethodGet, "/api/authors/ada/posts?status=archived", nil, api.token(t, api.author))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status", resp.Field)
}

func TestExpiredSessionCookieIsCleared(t *testing.T) {
	api := setupTestAPI(t)
	token := api.token(t, api.author)
	api.clock.Add(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)

	rec, _ = api.do(t, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "bearer callers have no cookie to clear")
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yatube/yatube-backend/internal/auth"
	"github.com/yatube/yatube-backend/internal/blog"
	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/web"
)

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t)
	p := env.post(env.author, env.group, "Test post")

	tests := []struct {
		path string
		page string
	}{
		{"/", web.PageIndex},
		{"/group/test_group/", web.PageGroupList},
		{"/profile/author/", web.PageProfile},
		{fmt.Sprintf("/posts/%d/", p.ID), web.PagePostDetail},
		{"/about/author/", web.PageAuthor},
		{"/about/tech/", web.PageTech},
		{"/auth/login/", web.PageLogin},
		{"/auth/signup/", web.PageSignup},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.get(tt.path, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			page, _ := env.renderer.last()
			assert.Equal(t, tt.page, page)
		})
	}
}

func TestUnknownPagesRender404(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/unexisting_page/",
		"/group/nope/",
		"/profile/nobody/",
		"/posts/9999/",
		"/posts/abc/",
		"/posts/0/edit/",
	} {
		t.Run(path, func(t *testing.T) {
			rec := env.get(path, env.author)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			page, _ := env.renderer.last()
			assert.Equal(t, web.PageNotFound, page)
		})
	}

	rec := env.get("/unexisting_page/", env.author)
	assert.Contains(t, rec.Body.String(), "/unexisting_page/")
	assert.Contains(t, rec.Body.String(), "author", "the 404 page still knows the viewer")
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	env := newTestEnv(t)
	p := env.post(env.author, nil, "Test post")

	for _, path := range []string{
		"/create/",
		"/follow/",
		fmt.Sprintf("/posts/%d/edit/", p.ID),
	} {
		t.Run(path, func(t *testing.T) {
			rec := env.get(path, nil)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/auth/login/?next="+path, rec.Header().Get("Location"))
		})
	}

	t.Run("follow", func(t *testing.T) {
		rec := env.postForm("/profile/author/follow/", nil, nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/login/?next=/profile/author/follow/", rec.Header().Get("Location"))
	})
}

func TestAnonymousWritesChangeNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.post(env.author, env.group, "Original text")
	before := env.postCount()

	rec := env.postMultipart("/create/", map[string]string{"text": "Sneaky post", "group": fmt.Sprint(env.group.ID)}, nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next=/create/", rec.Header().Get("Location"))
	assert.Equal(t, before, env.postCount())

	editPath := fmt.Sprintf("/posts/%d/edit/", p.ID)
	rec = env.postMultipart(editPath, map[string]string{"text": "Defaced"}, nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next="+editPath, rec.Header().Get("Location"))
	stored, err := env.db.Posts().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original text", stored.Text)
	require.NotNil(t, stored.GroupID)
	assert.Equal(t, env.group.ID, *stored.GroupID)
	assert.Equal(t, before, env.postCount())

	rec = env.postForm("/profile/author/follow/", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	for _, u := range []*entities.User{env.author, env.reader, env.staff} {
		n, err := env.db.Follows().CountByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Zero(t, n, u.Username)
	}
	ok, err := env.db.Follows().Exists(ctx, 0, env.author.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthorizedPages(t *testing.T) {
	env := newTestEnv(t)
	p := env.post(env.author, env.group, "Test post")

	rec := env.get("/create/", env.author)
	require.Equal(t, http.StatusOK, rec.Code)
	page, view := env.renderer.last()
	assert.Equal(t, web.PageCreatePost, page)
	form := view.(*blog.PostFormView)
	assert.False(t, form.IsEdit)
	assert.Len(t, form.Groups, 1)

	rec = env.get(fmt.Sprintf("/posts/%d/edit/", p.ID), env.author)
	require.Equal(t, http.StatusOK, rec.Code)
	page, view = env.renderer.last()
	assert.Equal(t, web.PageCreatePost, page)
	form = view.(*blog.PostFormView)
	assert.True(t, form.IsEdit)
	assert.Equal(t, "Test post", form.Form.Text)
	assert.Equal(t, fmt.Sprint(env.group.ID), form.Form.Group)

	rec = env.get("/follow/", env.reader)
	assert.Equal(t, http.StatusOK, rec.Code)
	page, _ = env.renderer.last()
	assert.Equal(t, web.PageFollow, page)
}

func TestCreatePostFlow(t *testing.T) {
	env := newTestEnv(t)
	before := env.postCount()

	rec := env.postMultipart("/create/", map[string]string{
		"text":  "Fresh post",
		"group": fmt.Sprint(env.group.ID),
	}, smallGIF(t), env.author)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))
	assert.Equal(t, before+1, env.postCount())

	posts, err := env.db.Posts().List(context.Background(), interfaces.PostFilter{}, interfaces.Window{Limit: 1})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	created := posts[0]
	assert.Equal(t, "Fresh post", created.Text)
	assert.Equal(t, env.author.ID, created.AuthorID)
	require.NotNil(t, created.GroupID)
	assert.Equal(t, env.group.ID, *created.GroupID)
	require.True(t, strings.HasPrefix(created.Image, "posts/"))

	exists, err := afero.Exists(env.fs, "/"+created.Image)
	require.NoError(t, err)
	assert.True(t, exists)

	// The picture shows up on every listing and on the post page.
	for _, path := range []string{"/", "/group/test_group/", "/profile/author/", fmt.Sprintf("/posts/%d/", created.ID)} {
		rec := env.get(path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "/media/"+created.Image, path)
	}

	media := env.get("/media/"+created.Image, nil)
	assert.Equal(t, http.StatusOK, media.Code)
	assert.Equal(t, "image/gif", media.Header().Get("Content-Type"))
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		fields map[string]string
		image  []byte
		check  func(t *testing.T, errs *blog.PostFormErrors)
	}{
		{
			name:   "empty text",
			fields: map[string]string{"text": "   "},
			check:  func(t *testing.T, errs *blog.PostFormErrors) { assert.NotEmpty(t, errs.Text) },
		},
		{
			name:   "unknown group",
			fields: map[string]string{"text": "Hello", "group": "424242"},
			check:  func(t *testing.T, errs *blog.PostFormErrors) { assert.NotEmpty(t, errs.Group) },
		},
		{
			name:   "not an image",
			fields: map[string]string{"text": "Hello"},
			image:  []byte("plain text, not a picture"),
			check:  func(t *testing.T, errs *blog.PostFormErrors) { assert.NotEmpty(t, errs.Image) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postMultipart("/create/", tt.fields, tt.image, env.author)
			require.Equal(t, http.StatusOK, rec.Code)

			page, view := env.renderer.last()
			assert.Equal(t, web.PageCreatePost, page)
			form := view.(*blog.PostFormView)
			require.NotNil(t, form.Errors)
			tt.check(t, form.Errors)
			assert.Equal(t, strings.TrimSpace(tt.fields["text"]), form.Form.Text)
			assert.Zero(t, env.postCount())
		})
	}

	t.Run("urlencoded body", func(t *testing.T) {
		rec := env.postForm("/create/", url.Values{"text": {"No picture"}}, env.author)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.EqualValues(t, 1, env.postCount())
	})
}

func TestEditPostFlow(t *testing.T) {
	env := newTestEnv(t)
	p := env.post(env.author, env.group, "Original")
	editURL := fmt.Sprintf("/posts/%d/edit/", p.ID)
	detail := fmt.Sprintf("/posts/%d/", p.ID)

	t.Run("non-author goes back to the post", func(t *testing.T) {
		rec := env.get(editURL, env.reader)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, detail, rec.Header().Get("Location"))

		rec = env.postForm(editURL, url.Values{"text": {"Hijacked"}}, env.reader)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, detail, rec.Header().Get("Location"))

		got, err := env.db.Posts().GetByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", got.Text)
	})

	t.Run("author saves", func(t *testing.T) {
		rec := env.postForm(editURL, url.Values{"text": {"Edited"}}, env.author)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, detail, rec.Header().Get("Location"))

		got, err := env.db.Posts().GetByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Edited", got.Text)
		assert.Nil(t, got.GroupID, "an empty group choice clears the group")
		assert.EqualValues(t, 1, env.postCount())
	})

	t.Run("author sees errors", func(t *testing.T) {
		rec := env.postForm(editURL, url.Values{"text": {""}}, env.author)
		require.Equal(t, http.StatusOK, rec.Code)
		_, view := env.renderer.last()
		form := view.(*blog.PostFormView)
		assert.True(t, form.IsEdit)
		assert.Equal(t, p.ID, form.PostID)
		assert.NotEmpty(t, form.Errors.Text)
	})
}

func TestCommentFlow(t *testing.T) {
	env := newTestEnv(t)
	p := env.post(env.author, nil, "Commentable")
	commentURL := fmt.Sprintf("/posts/%d/comment/", p.ID)
	detail := fmt.Sprintf("/posts/%d/", p.ID)

	count := func() int64 {
		n, err := env.db.Comments().CountByPost(context.Background(), p.ID)
		require.NoError(t, err)
		return n
	}

	rec := env.postForm(commentURL, url.Values{"text": {"Anonymous says hi"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, detail, rec.Header().Get("Location"))
	assert.Zero(t, count())

	rec = env.postForm(commentURL, url.Values{"text": {"  "}}, env.reader)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Zero(t, count())

	rec = env.postForm(commentURL, url.Values{"text": {"Nice post"}}, env.reader)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, detail, rec.Header().Get("Location"))
	assert.EqualValues(t, 1, count())

	rec = env.get(detail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, view := env.renderer.last()
	dv := view.(*blog.DetailView)
	require.Len(t, dv.Comments, 1)
	assert.Equal(t, "Nice post", dv.Comments[0].Text)
	assert.Equal(t, "reader", dv.Comments[0].Author.Username)
	assert.Contains(t, rec.Body.String(), "Nice post")

	rec = env.postForm("/posts/9999/comment/", url.Values{"text": {"Lost"}}, env.reader)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFollowFlow(t *testing.T) {
	env := newTestEnv(t)
	outsider := env.user("outsider", false)
	env.post(env.author, nil, "From the followed author")

	feed := func(u *entities.User) *blog.FollowView {
		rec := env.get("/follow/", u)
		require.Equal(t, http.StatusOK, rec.Code)
		_, view := env.renderer.last()
		return view.(*blog.FollowView)
	}

	rec := env.postForm("/profile/author/follow/", nil, env.reader)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))

	ok, err := env.db.Follows().Exists(context.Background(), env.reader.ID, env.author.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Following twice keeps a single edge.
	env.get("/profile/author/follow/", env.reader)
	n, err := env.db.Follows().CountByUser(context.Background(), env.reader.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Following yourself is ignored.
	env.postForm("/profile/author/follow/", nil, env.author)
	n, err = env.db.Follows().CountByUser(context.Background(), env.author.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.get("/profile/author/", env.reader)
	_, view := env.renderer.last()
	assert.True(t, view.(*blog.ProfileView).Following)

	env.post(env.author, nil, "Brand new")
	assert.Equal(t, "Brand new", feed(env.reader).Page.Items[0].Text)
	assert.Empty(t, feed(outsider).Page.Items)

	rec = env.postForm("/profile/author/unfollow/", nil, env.reader)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Empty(t, feed(env.reader).Page.Items)

	rec = env.postForm("/profile/nobody/follow/", nil, env.reader)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexPageIsCached(t *testing.T) {
	env := newTestEnv(t)
	p := env.post(env.author, nil, "Cached post")

	first := env.get("/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Contains(t, first.Body.String(), "Cached post")

	require.NoError(t, env.db.Posts().Delete(context.Background(), p.ID))

	stale := env.get("/", nil)
	assert.Equal(t, http.StatusOK, stale.Code)
	assert.Equal(t, first.Body.String(), stale.Body.String())

	// A different viewer has its own entry.
	other := env.get("/", env.reader)
	assert.NotContains(t, other.Body.String(), "Cached post")

	rec := env.postForm("/admin/cache/clear", nil, env.staff)
	require.Equal(t, http.StatusOK, rec.Code)
	var dto CacheClearDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.EqualValues(t, 2, dto.Cleared)

	fresh := env.get("/", nil)
	assert.NotContains(t, fresh.Body.String(), "Cached post")
}

func TestClearCacheIsStaffOnly(t *testing.T) {
	env := newTestEnv(t)

	for name, u := range map[string]*entities.User{"anonymous": nil, "regular": env.reader} {
		t.Run(name, func(t *testing.T) {
			rec := env.postForm("/admin/cache/clear", nil, u)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestPaginationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		env.post(env.author, env.group, fmt.Sprintf("Post %d", i))
	}
	env.post(env.reader, nil, "Ungrouped")

	tests := []struct {
		path  string
		items int
	}{
		{"/?page=1", 10},
		{"/?page=2", 3},
		{"/group/test_group/", 10},
		{"/group/test_group/?page=2", 2},
		{"/profile/author/?page=2", 2},
		{"/profile/author/?page=99", 2},
		{"/?page=abc", 10},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.get(tt.path, env.author)
			require.Equal(t, http.StatusOK, rec.Code)
			_, view := env.renderer.last()

			var page *blog.PostPage
			switch v := view.(type) {
			case *blog.IndexView:
				page = v.Page
			case *blog.GroupView:
				page = v.Page
			case *blog.ProfileView:
				page = v.Page
			default:
				t.Fatalf("unexpected view %T", view)
			}
			assert.Len(t, page.Items, tt.items)
		})
	}
}

func TestPanicsRenderServerError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/boom/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	page, _ := env.renderer.last()
	assert.Equal(t, web.PageServerErr, page)
}

func TestLoginPreservesNext(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/auth/login/?next=/create/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, view := env.renderer.last()
	assert.Equal(t, "/create/", view.(*LoginView).Next)

	rec = env.get("/auth/login/?next=//evil.example/", nil)
	_, view = env.renderer.last()
	assert.Empty(t, view.(*LoginView).Next)
	assert.NotContains(t, rec.Body.String(), "evil.example")
}

func TestSessionCookieIsHTTPOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/auth/login/", url.Values{
		"username": {"reader"},
		"password": {"pass-reader-word"},
	}, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := env.do(req, nil)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.get("/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yatube/yatube-backend/internal/auth"
	"github.com/yatube/yatube-backend/internal/blog"
	"github.com/yatube/yatube-backend/internal/db"
	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/media"
	"github.com/yatube/yatube-backend/internal/metrics"
	"github.com/yatube/yatube-backend/internal/store"
	"github.com/yatube/yatube-backend/internal/web"
	"github.com/yatube/yatube-backend/pkg/kv/memory"
)

// recordingRenderer remembers which page was rendered with which view and
// then renders it for real.
type recordingRenderer struct {
	Renderer

	mu    sync.Mutex
	pages []string
	views []any
}

func (rr *recordingRenderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, view any) error {
	rr.mu.Lock()
	rr.pages = append(rr.pages, name)
	rr.views = append(rr.views, view)
	rr.mu.Unlock()
	return rr.Renderer.Render(w, r, status, name, view)
}

func (rr *recordingRenderer) last() (string, any) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if len(rr.pages) == 0 {
		return "", nil
	}
	return rr.pages[len(rr.pages)-1], rr.views[len(rr.views)-1]
}

type testEnv struct {
	t        *testing.T
	db       interfaces.Database
	auth     *auth.Service
	cache    *store.Cache
	fs       afero.Fs
	renderer *recordingRenderer
	router   http.Handler

	author *entities.User
	reader *entities.User
	staff  *entities.User
	group  *entities.Group
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithMetrics(t, nil)
}

func newTestEnvWithMetrics(t *testing.T, mtr *metrics.Metrics) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop().Sugar()

	database := db.NewInMemoryDatabase()
	require.NoError(t, database.Connect(ctx))

	kvStore := memory.New(0)
	t.Cleanup(func() { kvStore.Close() })

	fs := afero.NewMemMapFs()
	images := media.NewStore(fs, 1<<20)
	renderer := &recordingRenderer{Renderer: web.MustNewRenderer(logger)}

	authSvc := auth.NewService(database.Users(), auth.NewSessions(kvStore, time.Hour), false, logger, nil)
	blogSvc := blog.NewService(database, images, 10, logger, nil)
	cache := store.NewCache(kvStore, time.Minute, logger, nil)

	h := NewHandler(blogSvc, authSvc, cache, images.Handler(), renderer, database, kvStore, 1<<20, logger, mtr)
	m := NewMiddleware(logger, mtr, renderer)
	router := h.Routes(m, []string{"https://embed.example"}, 1_000_000, 5*time.Second)
	router.Get("/boom/", func(http.ResponseWriter, *http.Request) { panic("boom") })

	env := &testEnv{
		t:        t,
		db:       database,
		auth:     authSvc,
		cache:    cache,
		fs:       fs,
		renderer: renderer,
		router:   router,
	}
	env.author = env.user("author", false)
	env.reader = env.user("reader", false)
	env.staff = env.user("admin", true)
	env.group = &entities.Group{Title: "Test group", Slug: "test_group", Description: "Group for tests"}
	require.NoError(t, database.Groups().Create(ctx, env.group))
	return env
}

func (e *testEnv) user(username string, staff bool) *entities.User {
	e.t.Helper()
	u, err := e.auth.CreateUser(context.Background(), &auth.SignupForm{
		Username:  username,
		Password1: "pass-" + username + "-word",
		Password2: "pass-" + username + "-word",
	}, staff)
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) post(author *entities.User, group *entities.Group, text string) *entities.Post {
	e.t.Helper()
	p := &entities.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(e.t, e.db.Posts().Create(context.Background(), p))
	return p
}

// session logs u in and returns the session cookie.
func (e *testEnv) session(u *entities.User) *http.Cookie {
	e.t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(e.t, e.auth.Login(context.Background(), rec, u))
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	e.t.Fatal("login did not set a session cookie")
	return nil
}

func (e *testEnv) do(req *http.Request, as *entities.User) *httptest.ResponseRecorder {
	e.t.Helper()
	if as != nil {
		req.AddCookie(e.session(as))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, as *entities.User) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), as)
}

func (e *testEnv) postForm(path string, values url.Values, as *entities.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, as)
}

func (e *testEnv) postMultipart(path string, fields map[string]string, image []byte, as *entities.User) *httptest.ResponseRecorder {
	e.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "small.gif")
		require.NoError(e.t, err)
		_, err = fw.Write(image)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req, as)
}

func (e *testEnv) postCount() int64 {
	e.t.Helper()
	n, err := e.db.Posts().Count(context.Background(), interfaces.PostFilter{})
	require.NoError(e.t, err)
	return n
}

func smallGIF(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

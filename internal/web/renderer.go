// Package web renders the site's HTML pages from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yatube/yatube-backend/internal/auth"
	"github.com/yatube/yatube-backend/internal/db/entities"
)

//go:embed templates
var templatesFS embed.FS

// Pages rendered by handlers.
const (
	PageIndex      = "posts/index.html"
	PageGroupList  = "posts/group_list.html"
	PageProfile    = "posts/profile.html"
	PagePostDetail = "posts/post_detail.html"
	PageCreatePost = "posts/create_post.html"
	PageFollow     = "posts/follow.html"
	PageLogin      = "users/login.html"
	PageSignup     = "users/signup.html"
	PageLoggedOut  = "users/logged_out.html"
	PageAuthor     = "about/author.html"
	PageTech       = "about/tech.html"
	PageNotFound   = "core/404.html"
	PageServerErr  = "core/500.html"
)

var shared = []string{"templates/base.html", "templates/includes/*.html"}

// Data is what every page template receives: the logged-in user (nil when
// anonymous), the request path and the page's own view.
type Data struct {
	User *entities.User
	Path string
	View any
}

// Renderer executes a page template into a buffer before touching the
// response, so a failed render never leaves half a page behind.
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.SugaredLogger
}

// NewRenderer parses every page against the shared layout.
func NewRenderer(logger *zap.SugaredLogger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	names, err := pageNames()
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		patterns := append(append([]string{}, shared...), "templates/"+name)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// MustNewRenderer is NewRenderer that panics on a broken template.
func MustNewRenderer(logger *zap.SugaredLogger) *Renderer {
	r, err := NewRenderer(logger)
	if err != nil {
		panic(err)
	}
	return r
}

func pageNames() ([]string, error) {
	var names []string
	err := fs.WalkDir(templatesFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".html") {
			return nil
		}
		name := strings.TrimPrefix(p, "templates/")
		if name == "base.html" || strings.HasPrefix(name, "includes/") {
			return nil
		}
		names = append(names, name)
		return nil
	})
	return names, err
}

// Has reports whether name is a known page.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render writes page name with the given status.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, view any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	data := Data{
		User: auth.UserFrom(req.Context()),
		Path: req.URL.Path,
		View: view,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		r.logger.Errorw("Failed to render template", "page", name, "error", err)
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

var funcs = template.FuncMap{
	"date":          formatDate,
	"mediaURL":      mediaURL,
	"linebreaks":    linebreaks,
	"truncatewords": truncateWords,
	"pageURL":       pageURL,
}

func formatDate(t time.Time) string {
	return t.Format("2 January 2006")
}

func mediaURL(name string) string {
	return "/media/" + strings.TrimPrefix(name, "/")
}

// linebreaks escapes text and turns newlines into <br>.
func linebreaks(text string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func truncateWords(n int, text string) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ") + " …"
}

func pageURL(n int) string {
	return "?page=" + strconv.Itoa(n)
}

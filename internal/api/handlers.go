package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yatube/yatube-backend/internal/auth"
	"github.com/yatube/yatube-backend/internal/blog"
	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/metrics"
	"github.com/yatube/yatube-backend/internal/store"
	"github.com/yatube/yatube-backend/internal/web"
	"github.com/yatube/yatube-backend/pkg/kv"
)

// LoginURL is where anonymous users are sent for protected pages.
const LoginURL = "/auth/login/"

// Renderer writes an HTML page.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, view any) error
}

type Handler struct {
	blog      *blog.Service
	auth      *auth.Service
	cache     *store.Cache
	media     http.Handler
	renderer  Renderer
	db        interfaces.Database
	kv        kv.Store
	maxUpload int64
	logger    *zap.SugaredLogger
	metrics   *metrics.Metrics
}

func NewHandler(
	blogSvc *blog.Service,
	authSvc *auth.Service,
	cache *store.Cache,
	media http.Handler,
	renderer Renderer,
	database interfaces.Database,
	kvStore kv.Store,
	maxUpload int64,
	logger *zap.SugaredLogger,
	metrics *metrics.Metrics,
) *Handler {
	return &Handler{
		blog:      blogSvc,
		auth:      authSvc,
		cache:     cache,
		media:     media,
		renderer:  renderer,
		db:        database,
		kv:        kvStore,
		maxUpload: maxUpload,
		logger:    logger,
		metrics:   metrics,
	}
}

// Health and ops endpoints
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz reports whether the database and the kv store answer.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := ReadinessDTO{Database: "ok", KV: "ok"}
	if !h.db.IsHealthy(ctx) {
		status.Database = "unavailable"
	}
	if err := h.kv.Ping(ctx); err != nil {
		status.KV = "unavailable"
	}
	if fs, ok := h.kv.(*kv.FailoverStore); ok {
		status.KVBackend = fs.ActiveBackend()
	}

	code := http.StatusOK
	if status.Database != "ok" || status.KV != "ok" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, status)
}

// NotFound renders the 404 page for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, web.PageNotFound, nil)
}

func (h *Handler) staticPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name, nil)
	}
}

// Utility methods
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, view any) {
	if err := h.renderer.Render(w, r, status, name, view); err != nil {
		h.logger.Errorw("Failed to render page", "page", name, "path", r.URL.Path, "error", err)
		if name != web.PageServerErr {
			h.render(w, r, http.StatusInternalServerError, web.PageServerErr, nil)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// fail maps a service error onto a response. Forbidden is not handled
// here since each view picks its own safe redirect.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blog.ErrNotFound):
		h.NotFound(w, r)
	case errors.Is(err, blog.ErrUnauthorized):
		redirectToLogin(w, r)
	default:
		h.logger.Errorw("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		h.render(w, r, http.StatusInternalServerError, web.PageServerErr, nil)
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	next := strings.ReplaceAll(url.QueryEscape(r.URL.RequestURI()), "%2F", "/")
	http.Redirect(w, r, LoginURL+"?next="+next, http.StatusFound)
}

// safeNext accepts only same-site absolute paths as redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsRune(next, '\\') {
		return ""
	}
	return next
}

func viewer(r *http.Request) *entities.User {
	return auth.UserFrom(r.Context())
}

// viewerKey varies cached pages by the logged-in user.
func viewerKey(r *http.Request) string {
	if u := viewer(r); u != nil {
		return strconv.FormatInt(u.ID, 10)
	}
	return "anon"
}

// postID reads the {postID} route parameter; ok is false for anything
// that is not a positive integer.
func postID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	return id, err == nil && id > 0
}

func detailURL(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10) + "/"
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusFound)
}

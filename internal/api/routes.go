package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yatube/yatube-backend/internal/web"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	r.Use(m.Timeout(timeout))
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(m.RateLimit(rateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	// Uploaded images
	r.Group(func(r chi.Router) {
		r.Use(m.CORS(corsOrigins))
		media := http.StripPrefix("/media", h.media)
		r.Method(http.MethodGet, "/media/*", media)
		r.Method(http.MethodHead, "/media/*", media)
		r.Options("/media/*", func(w http.ResponseWriter, r *http.Request) {})
	})

	// Site pages, all aware of the session user
	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.With(h.cache.Middleware(viewerKey)).Get("/", h.Index)
		r.Get("/group/{slug}/", h.GroupPosts)
		r.Get("/profile/{username}/", h.Profile)
		r.Get("/posts/{postID}/", h.PostDetail)
		r.Get("/follow/", h.FollowIndex)

		r.Get("/create/", h.PostCreate)
		r.Post("/create/", h.PostCreate)
		r.Get("/posts/{postID}/edit/", h.PostEdit)
		r.Post("/posts/{postID}/edit/", h.PostEdit)
		r.Post("/posts/{postID}/comment/", h.AddComment)

		// GET is kept for plain follow links.
		r.Get("/profile/{username}/follow/", h.ProfileFollow)
		r.Post("/profile/{username}/follow/", h.ProfileFollow)
		r.Get("/profile/{username}/unfollow/", h.ProfileUnfollow)
		r.Post("/profile/{username}/unfollow/", h.ProfileUnfollow)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login/", h.Login)
			r.Post("/login/", h.Login)
			r.Get("/logout/", h.Logout)
			r.Post("/logout/", h.Logout)
			r.Get("/signup/", h.Signup)
			r.Post("/signup/", h.Signup)
		})

		r.Get("/about/author/", h.staticPage(web.PageAuthor))
		r.Get("/about/tech/", h.staticPage(web.PageTech))

		r.Post("/admin/cache/clear", h.ClearCache)
	})

	r.NotFound(h.auth.Middleware(http.HandlerFunc(h.NotFound)).ServeHTTP)

	return r
}

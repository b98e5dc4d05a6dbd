package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yatube/yatube-backend/internal/blog"
	"github.com/yatube/yatube-backend/internal/web"
)

func pageParam(r *http.Request) string {
	return r.URL.Query().Get("page")
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	view, err := h.blog.Index(r.Context(), pageParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, web.PageIndex, view)
}

func (h *Handler) GroupPosts(w http.ResponseWriter, r *http.Request) {
	view, err := h.blog.Group(r.Context(), chi.URLParam(r, "slug"), pageParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, web.PageGroupList, view)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	view, err := h.blog.Profile(r.Context(), viewer(r), chi.URLParam(r, "username"), pageParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, web.PageProfile, view)
}

func (h *Handler) PostDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	view, err := h.blog.Detail(r.Context(), viewer(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, web.PagePostDetail, view)
}

func (h *Handler) FollowIndex(w http.ResponseWriter, r *http.Request) {
	view, err := h.blog.Feed(r.Context(), viewer(r), pageParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, web.PageFollow, view)
}

// PostCreate shows the empty form on GET and publishes on POST.
func (h *Handler) PostCreate(w http.ResponseWriter, r *http.Request) {
	u := viewer(r)
	if u == nil {
		redirectToLogin(w, r)
		return
	}

	if r.Method != http.MethodPost {
		view, err := h.blog.NewPostForm(r.Context(), u)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, web.PageCreatePost, view)
		return
	}

	form, cleanup, err := h.postForm(w, r)
	if err != nil {
		h.rejectPostForm(w, r, form, err, 0)
		return
	}
	defer cleanup()

	if _, err := h.blog.CreatePost(r.Context(), u, form); err != nil {
		h.rejectPostForm(w, r, form, err, 0)
		return
	}
	redirect(w, r, profileURL(u.Username))
}

// PostEdit lets the author change a post. Everyone else is sent back to
// the post page.
func (h *Handler) PostEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	u := viewer(r)
	if u == nil {
		redirectToLogin(w, r)
		return
	}

	if r.Method != http.MethodPost {
		view, err := h.blog.EditPostForm(r.Context(), u, id)
		if errors.Is(err, blog.ErrForbidden) {
			redirect(w, r, detailURL(id))
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, web.PageCreatePost, view)
		return
	}

	form, cleanup, err := h.postForm(w, r)
	if err != nil {
		h.rejectPostForm(w, r, form, err, id)
		return
	}
	defer cleanup()

	if _, err := h.blog.UpdatePost(r.Context(), u, id, form); err != nil {
		h.rejectPostForm(w, r, form, err, id)
		return
	}
	redirect(w, r, detailURL(id))
}

// postForm reads the multipart (or urlencoded) post form. cleanup closes
// the uploaded file.
func (h *Handler) postForm(w http.ResponseWriter, r *http.Request) (*blog.PostForm, func(), error) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	}

	form := &blog.PostForm{}
	err := r.ParseMultipartForm(1 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, nil, &blog.PostFormErrors{Image: "The uploaded image is too large."}
		}
		return form, nil, fmt.Errorf("parse post form: %w", err)
	}

	form.Text = r.PostFormValue("text")
	form.Group = r.PostFormValue("group")

	cleanup := func() {}
	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		form.Image = file
		cleanup = func() { file.Close() }
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		return form, nil, fmt.Errorf("read image: %w", err)
	}
	return form, cleanup, nil
}

// rejectPostForm re-renders the form for validation errors and handles
// everything else like any other failure.
func (h *Handler) rejectPostForm(w http.ResponseWriter, r *http.Request, form *blog.PostForm, err error, id int64) {
	var formErrs *blog.PostFormErrors
	switch {
	case errors.As(err, &formErrs):
		view, err := h.blog.FormView(r.Context(), form, formErrs, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, web.PageCreatePost, view)
	case errors.Is(err, blog.ErrForbidden):
		redirect(w, r, detailURL(id))
	default:
		h.fail(w, r, err)
	}
}

// AddComment stores a comment and always returns to the post. Anonymous
// and empty comments are dropped without a message.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	form := &blog.CommentForm{Text: r.PostFormValue("text")}
	_, err := h.blog.AddComment(r.Context(), viewer(r), id, form)

	var formErrs *blog.CommentFormErrors
	switch {
	case err == nil, errors.Is(err, blog.ErrUnauthorized), errors.As(err, &formErrs):
		redirect(w, r, detailURL(id))
	default:
		h.fail(w, r, err)
	}
}

func (h *Handler) ProfileFollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if _, err := h.blog.Follow(r.Context(), viewer(r), username); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, profileURL(username))
}

func (h *Handler) ProfileUnfollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if _, err := h.blog.Unfollow(r.Context(), viewer(r), username); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, profileURL(username))
}

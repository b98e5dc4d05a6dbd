package api

import (
	"errors"
	"net/http"

	"github.com/yatube/yatube-backend/internal/auth"
	"github.com/yatube/yatube-backend/internal/web"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, web.PageLogin, &LoginView{
			Form: &auth.LoginForm{},
			Next: safeNext(r.URL.Query().Get("next")),
		})
		return
	}

	form := &auth.LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.PostFormValue("next"))

	user, err := h.auth.Authenticate(r.Context(), form)
	var formErrs *auth.LoginFormErrors
	if errors.As(err, &formErrs) {
		h.render(w, r, http.StatusOK, web.PageLogin, &LoginView{Form: form, Errors: formErrs, Next: next})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.auth.Login(r.Context(), w, user); err != nil {
		h.fail(w, r, err)
		return
	}
	if next == "" {
		next = "/"
	}
	redirect(w, r, next)
}

// Logout ends the session and shows the logged-out page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	r = r.WithContext(auth.WithUser(r.Context(), nil))
	h.render(w, r, http.StatusOK, web.PageLoggedOut, nil)
}

// Signup creates the account and logs the new user in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, web.PageSignup, &SignupView{Form: &auth.SignupForm{}})
		return
	}

	form := &auth.SignupForm{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}

	user, err := h.auth.Signup(r.Context(), form)
	var formErrs *auth.SignupFormErrors
	if errors.As(err, &formErrs) {
		h.render(w, r, http.StatusOK, web.PageSignup, &SignupView{Form: form, Errors: formErrs})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.auth.Login(r.Context(), w, user); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, "/")
}

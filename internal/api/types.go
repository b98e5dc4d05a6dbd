package api

import "github.com/yatube/yatube-backend/internal/auth"

type ReadinessDTO struct {
	Database  string `json:"database"`
	KV        string `json:"kv"`
	KVBackend string `json:"kv_backend,omitempty"`
}

type CacheClearDTO struct {
	Cleared int64 `json:"cleared"`
}

// LoginView backs users/login.html.
type LoginView struct {
	Form   *auth.LoginForm
	Errors *auth.LoginFormErrors
	Next   string
}

// SignupView backs users/signup.html.
type SignupView struct {
	Form   *auth.SignupForm
	Errors *auth.SignupFormErrors
}

// Package auth provides accounts, password checks and cookie sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/metrics"
)

const invalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."

// Service signs users up, logs them in and resolves sessions to users.
type Service struct {
	users        interfaces.UserRepository
	sessions     *Sessions
	secureCookie bool
	logger       *zap.SugaredLogger
	metrics      *metrics.Metrics
}

// NewService wires the service. logger may be nil.
func NewService(users interfaces.UserRepository, sessions *Sessions, secureCookie bool, logger *zap.SugaredLogger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		users:        users,
		sessions:     sessions,
		secureCookie: secureCookie,
		logger:       logger,
		metrics:      m,
	}
}

// Signup validates the form and creates a regular account. A taken
// username is reported as a field error.
func (s *Service) Signup(ctx context.Context, form *SignupForm) (*entities.User, error) {
	user, err := s.CreateUser(ctx, form, false)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMutation(ctx, metrics.MutationSignup)
	return user, nil
}

// CreateUser validates the form and stores the account, optionally with
// staff rights.
func (s *Service) CreateUser(ctx context.Context, form *SignupForm, staff bool) (*entities.User, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(form.Password1)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entities.User{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: hash,
		IsStaff:      staff,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, interfaces.ErrUniqueConstraint) {
			return nil, &SignupFormErrors{Username: "A user with that username already exists."}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Infow("User created", "user_id", user.ID, "username", user.Username, "staff", staff)
	return user, nil
}

// DeleteUser removes the account together with its posts, comments and
// follow edges. Open sessions die on their next lookup.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("load user %s: %w", username, err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	s.logger.Infow("User deleted", "user_id", user.ID, "username", username)
	return nil
}

// Authenticate checks the credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, form *LoginForm) (*entities.User, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, form.Username)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, &LoginFormErrors{NonField: invalidLogin}
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, form.Password) {
		return nil, &LoginFormErrors{NonField: invalidLogin}
	}
	return user, nil
}

// Login starts a session for user and sets the cookie.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, user *entities.User) error {
	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return err
	}
	SetCookie(w, token, s.sessions.TTL(), s.secureCookie)
	s.logger.Debugw("User logged in", "user_id", user.ID)
	return nil
}

// Logout ends the request's session, if any, and clears the cookie.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) error {
	if token := TokenFromRequest(r); token != "" {
		if err := s.sessions.Destroy(r.Context(), token); err != nil {
			return err
		}
	}
	ClearCookie(w, s.secureCookie)
	return nil
}

// Middleware loads the session user into the request context. Requests
// with a missing, expired or dangling session continue anonymously; store
// failures are logged and also treated as anonymous.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.userForToken(r.Context(), token)
		switch {
		case err == nil:
			// Lookup slid the stored session; move the cookie expiry with it.
			SetCookie(w, token, s.sessions.TTL(), s.secureCookie)
			r = r.WithContext(WithUser(r.Context(), user))
		case errors.Is(err, ErrSessionNotFound):
			ClearCookie(w, s.secureCookie)
		default:
			s.logger.Warnw("Session lookup failed", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) userForToken(ctx context.Context, token string) (*entities.User, error) {
	userID, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, interfaces.ErrNotFound) {
		_ = s.sessions.Destroy(ctx, token)
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session user %d: %w", userID, err)
	}
	return user, nil
}

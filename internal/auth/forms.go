package auth

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxUsernameLength = 150
	minPasswordLength = 8
)

// SignupForm is the submitted registration form.
type SignupForm struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password1 string
	Password2 string
}

// SignupFormErrors holds per-field validation messages. An empty field
// means the value was accepted.
type SignupFormErrors struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

func (e *SignupFormErrors) Error() string { return "invalid signup form" }

func (e *SignupFormErrors) empty() bool {
	return *e == SignupFormErrors{}
}

// Validate trims the form and returns *SignupFormErrors when a field is
// rejected.
func (f *SignupForm) Validate() error {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	errs := &SignupFormErrors{}
	errs.Username = validateUsername(f.Username)

	if f.Email != "" {
		if addr, err := mail.ParseAddress(f.Email); err != nil || addr.Address != f.Email {
			errs.Email = "Enter a valid email address."
		}
	}

	errs.Password1 = validatePassword(f.Password1, f.Username)
	switch {
	case f.Password2 == "":
		errs.Password2 = "This field is required."
	case f.Password1 != f.Password2:
		errs.Password2 = "The two password fields didn't match."
	}

	if errs.empty() {
		return nil
	}
	return errs
}

func validateUsername(username string) string {
	if username == "" {
		return "This field is required."
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return "Ensure this value has at most 150 characters."
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}
	return ""
}

func validatePassword(password, username string) string {
	switch {
	case password == "":
		return "This field is required."
	case utf8.RuneCountInString(password) < minPasswordLength:
		return "This password is too short. It must contain at least 8 characters."
	case strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0:
		return "This password is entirely numeric."
	case username != "" && strings.EqualFold(password, username):
		return "The password is too similar to the username."
	}
	return ""
}

// LoginForm is the submitted login form.
type LoginForm struct {
	Username string
	Password string
}

// LoginFormErrors carries the login failure. Field errors are reported for
// blank inputs; wrong credentials are a single non-field message.
type LoginFormErrors struct {
	Username string
	Password string
	NonField string
}

func (e *LoginFormErrors) Error() string {
	if e.NonField != "" {
		return e.NonField
	}
	return "invalid login form"
}

// Validate checks that both fields are present.
func (f *LoginForm) Validate() error {
	f.Username = strings.TrimSpace(f.Username)

	errs := &LoginFormErrors{}
	if f.Username == "" {
		errs.Username = "This field is required."
	}
	if f.Password == "" {
		errs.Password = "This field is required."
	}
	if *errs == (LoginFormErrors{}) {
		return nil
	}
	return errs
}

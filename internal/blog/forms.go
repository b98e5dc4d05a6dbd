package blog

import (
	"io"
	"strconv"
	"strings"

	"github.com/yatube/yatube-backend/internal/db/entities"
)

// PostForm is a submitted create or edit form.
type PostForm struct {
	Text string
	// Group is the selected group id as posted; empty means no group.
	Group string
	// Image is the uploaded file, nil when none was sent.
	Image io.Reader
}

// PostFormErrors holds per-field messages for a rejected PostForm.
type PostFormErrors struct {
	Text  string
	Group string
	Image string
}

func (e *PostFormErrors) Error() string { return "invalid post form" }

// PostFormFrom prefills a form with the current state of p.
func PostFormFrom(p *entities.Post) *PostForm {
	f := &PostForm{Text: p.Text}
	if p.GroupID != nil {
		f.Group = strconv.FormatInt(*p.GroupID, 10)
	}
	return f
}

// SelectedGroup reports whether g is the group picked in the form.
func (f *PostForm) SelectedGroup(g entities.Group) bool {
	return f.Group == strconv.FormatInt(g.ID, 10)
}

// CommentForm is a submitted comment.
type CommentForm struct {
	Text string
}

// CommentFormErrors holds per-field messages for a rejected CommentForm.
type CommentFormErrors struct {
	Text string
}

func (e *CommentFormErrors) Error() string { return "invalid comment form" }

// Validate trims the comment and rejects blank text.
func (f *CommentForm) Validate() error {
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		return &CommentFormErrors{Text: requiredField}
	}
	return nil
}

const (
	requiredField = "This field is required."
	invalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

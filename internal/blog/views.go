package blog

import (
	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/paginate"
)

// PostPage is one page of a post listing.
type PostPage = paginate.Page[entities.Post]

type IndexView struct {
	Page *PostPage
}

type GroupView struct {
	Group *entities.Group
	Page  *PostPage
}

// ProfileView is an author's listing. Following is only meaningful when
// the viewer is logged in and is not the author.
type ProfileView struct {
	Author     *entities.User
	PostsCount int64
	Following  bool
	IsSelf     bool
	Page       *PostPage
}

type FollowView struct {
	Page *PostPage
}

// DetailView is a single post with its comments and an empty comment form.
type DetailView struct {
	Post       *entities.Post
	PostsCount int64
	Comments   []entities.Comment
	Form       *CommentForm
	CanEdit    bool
}

// PostFormView backs both the create and the edit page.
type PostFormView struct {
	Form   *PostForm
	Errors *PostFormErrors
	IsEdit bool
	PostID int64
	Groups []entities.Group
}

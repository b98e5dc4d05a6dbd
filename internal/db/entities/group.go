package entities

// Group is a topical category a post may optionally belong to.
type Group struct {
	ID          int64  `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Slug        string `json:"slug" db:"slug"`
	Description string `json:"description" db:"description"`
}

// MaxGroupTitleLength mirrors the column width of blog_groups.title.
const MaxGroupTitleLength = 200

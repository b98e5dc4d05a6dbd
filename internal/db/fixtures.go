package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

// UserFixtures provides sample user data for seeding
var UserFixtures = []entities.User{
	{Username: "leo", Email: "leo@example.com", FirstName: "Leo", LastName: "Tolstoy"},
	{Username: "anna", Email: "anna@example.com", FirstName: "Anna", LastName: "Akhmatova"},
	{Username: "fyodor", Email: "fyodor@example.com", FirstName: "Fyodor", LastName: "Dostoevsky"},
}

// GroupFixtures provides sample group data for seeding
var GroupFixtures = []entities.Group{
	{Title: "Prose", Slug: "prose", Description: "Long form writing."},
	{Title: "Poetry", Slug: "poetry", Description: "Verses of every size."},
}

// postFixture references users and groups by their natural keys.
type postFixture struct {
	author string
	group  string
	text   string
}

var postFixtures = []postFixture{
	{"leo", "prose", "All happy families are alike; each unhappy family is unhappy in its own way."},
	{"leo", "prose", "If you want to be happy, be."},
	{"leo", "", "The two most powerful warriors are patience and time."},
	{"anna", "poetry", "I taught myself to live simply and wisely."},
	{"anna", "poetry", "Real tenderness cannot be confused with anything."},
	{"fyodor", "prose", "Pain and suffering are always inevitable for a large intelligence."},
	{"fyodor", "", "The mystery of human existence lies not in just staying alive."},
}

// SeedResult reports how many rows Seed created.
type SeedResult struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// Seed loads the fixtures. Every user gets passwordHash. Users and groups
// that already exist are reused so Seed can be run more than once; posts
// are appended each time.
func Seed(ctx context.Context, database interfaces.Database, passwordHash string) (*SeedResult, error) {
	res := &SeedResult{}

	users := make(map[string]*entities.User, len(UserFixtures))
	for _, fixture := range UserFixtures {
		u := fixture
		u.PasswordHash = passwordHash
		err := database.Users().Create(ctx, &u)
		switch {
		case err == nil:
			res.Users++
			users[u.Username] = &u
		case errors.Is(err, interfaces.ErrUniqueConstraint):
			existing, err := database.Users().GetByUsername(ctx, u.Username)
			if err != nil {
				return nil, fmt.Errorf("load user %s: %w", u.Username, err)
			}
			users[u.Username] = existing
		default:
			return nil, fmt.Errorf("create user %s: %w", u.Username, err)
		}
	}

	groups := make(map[string]*entities.Group, len(GroupFixtures))
	for _, fixture := range GroupFixtures {
		g := fixture
		err := database.Groups().Create(ctx, &g)
		switch {
		case err == nil:
			res.Groups++
			groups[g.Slug] = &g
		case errors.Is(err, interfaces.ErrUniqueConstraint):
			existing, err := database.Groups().GetBySlug(ctx, g.Slug)
			if err != nil {
				return nil, fmt.Errorf("load group %s: %w", g.Slug, err)
			}
			groups[g.Slug] = existing
		default:
			return nil, fmt.Errorf("create group %s: %w", g.Slug, err)
		}
	}

	var lastPost *entities.Post
	for _, fixture := range postFixtures {
		p := &entities.Post{Text: fixture.text, AuthorID: users[fixture.author].ID}
		if fixture.group != "" {
			id := groups[fixture.group].ID
			p.GroupID = &id
		}
		if err := database.Posts().Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		res.Posts++
		lastPost = p
	}

	if lastPost != nil {
		c := &entities.Comment{PostID: lastPost.ID, AuthorID: users["anna"].ID, Text: "Beautifully put."}
		if err := database.Comments().Create(ctx, c); err != nil {
			return nil, fmt.Errorf("create comment: %w", err)
		}
		res.Comments++
	}

	edges := [][2]string{{"anna", "leo"}, {"fyodor", "leo"}, {"leo", "anna"}}
	for _, e := range edges {
		created, err := database.Follows().Create(ctx, users[e[0]].ID, users[e[1]].ID)
		if err != nil {
			return nil, fmt.Errorf("follow %s -> %s: %w", e[0], e[1], err)
		}
		if created {
			res.Follows++
		}
	}

	return res, nil
}

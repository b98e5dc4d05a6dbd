// Package dbtest provides conformance tests for interfaces.Database implementations
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

// DatabaseFactory returns a connected, migrated and empty database.
type DatabaseFactory func(t *testing.T) interfaces.Database

// RunConformanceTests runs all conformance tests against a Database implementation
func RunConformanceTests(t *testing.T, factory DatabaseFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, db interfaces.Database)
	}{
		{"Users", testUsers},
		{"UserUniqueUsername", testUserUniqueUsername},
		{"Groups", testGroups},
		{"GroupDeleteDetachesPosts", testGroupDeleteDetachesPosts},
		{"PostCRUD", testPostCRUD},
		{"PostForeignKeys", testPostForeignKeys},
		{"PostOrderingAndWindow", testPostOrderingAndWindow},
		{"PostFilters", testPostFilters},
		{"Comments", testComments},
		{"PostDeleteCascadesComments", testPostDeleteCascadesComments},
		{"Follows", testFollows},
		{"UserDeleteCascades", testUserDeleteCascades},
		{"ListingScenario", testListingScenario},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := factory(t)
			tt.test(t, db)
		})
	}
}

func mustUser(t *testing.T, db interfaces.Database, username string) *entities.User {
	t.Helper()
	u := &entities.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, db.Users().Create(context.Background(), u))
	return u
}

func mustGroup(t *testing.T, db interfaces.Database, title, slug string) *entities.Group {
	t.Helper()
	g := &entities.Group{Title: title, Slug: slug, Description: "about " + title}
	require.NoError(t, db.Groups().Create(context.Background(), g))
	return g
}

func mustPost(t *testing.T, db interfaces.Database, author *entities.User, group *entities.Group, text string) *entities.Post {
	t.Helper()
	p := &entities.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		id := group.ID
		p.GroupID = &id
	}
	require.NoError(t, db.Posts().Create(context.Background(), p))
	return p
}

func testUsers(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Users()

	u := &entities.User{Username: "leo", Email: "leo@example.com", FirstName: "Leo", LastName: "Tolstoy", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "leo", byID.Username)
	assert.Equal(t, "Leo Tolstoy", byID.FullName())
	assert.Equal(t, "x", byID.PasswordHash)

	byName, err := repo.GetByUsername(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	mustUser(t, db, "anna")
	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "anna", users[0].Username)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), interfaces.ErrNotFound)
}

func testUserUniqueUsername(t *testing.T, db interfaces.Database) {
	mustUser(t, db, "dup")
	err := db.Users().Create(context.Background(), &entities.User{Username: "dup"})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)
}

func testGroups(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Groups()

	b := mustGroup(t, db, "Beta", "beta")
	a := mustGroup(t, db, "Alpha", "alpha")

	got, err := repo.GetBySlug(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, "about Beta", got.Description)

	got, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Slug)

	_, err = repo.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	err = repo.Create(ctx, &entities.Group{Title: "Other", Slug: "beta"})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Alpha", groups[0].Title)
	assert.Equal(t, "Beta", groups[1].Title)
}

func testGroupDeleteDetachesPosts(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := mustUser(t, db, "author")
	group := mustGroup(t, db, "Group", "group")
	p := mustPost(t, db, author, group, "in a group")

	require.NoError(t, db.Groups().Delete(ctx, group.ID))

	got, err := db.Posts().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)
	assert.Nil(t, got.Group)
	assert.Equal(t, "in a group", got.Text)

	assert.ErrorIs(t, db.Groups().Delete(ctx, group.ID), interfaces.ErrNotFound)
}

func testPostCRUD(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := mustUser(t, db, "writer")
	group := mustGroup(t, db, "Poetry", "poetry")
	other := mustGroup(t, db, "Prose", "prose")

	p := mustPost(t, db, author, group, "first draft")
	assert.NotZero(t, p.ID)
	created := p.CreatedAt
	assert.False(t, created.IsZero())

	got, err := db.Posts().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "first draft", got.Text)
	require.NotNil(t, got.Author)
	assert.Equal(t, "writer", got.Author.Username)
	require.NotNil(t, got.Group)
	assert.Equal(t, "poetry", got.Group.Slug)
	assert.True(t, created.Equal(got.CreatedAt))

	otherID := other.ID
	got.Text = "second draft"
	got.GroupID = &otherID
	got.Image = "posts/cat.gif"
	require.NoError(t, db.Posts().Update(ctx, got))

	updated, err := db.Posts().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "second draft", updated.Text)
	require.NotNil(t, updated.GroupID)
	assert.Equal(t, other.ID, *updated.GroupID)
	assert.Equal(t, "posts/cat.gif", updated.Image)
	assert.True(t, created.Equal(updated.CreatedAt), "created_at must not change on update")
	assert.Equal(t, author.ID, updated.AuthorID)

	updated.GroupID = nil
	require.NoError(t, db.Posts().Update(ctx, updated))
	cleared, err := db.Posts().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.GroupID)

	require.NoError(t, db.Posts().Delete(ctx, p.ID))
	_, err = db.Posts().GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.ErrorIs(t, db.Posts().Update(ctx, updated), interfaces.ErrNotFound)
}

func testPostForeignKeys(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	err := db.Posts().Create(ctx, &entities.Post{Text: "orphan", AuthorID: 999999})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)

	author := mustUser(t, db, "fk")
	missing := int64(999999)
	err = db.Posts().Create(ctx, &entities.Post{Text: "bad group", AuthorID: author.ID, GroupID: &missing})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
}

func testPostOrderingAndWindow(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := mustUser(t, db, "ordered")

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, mustPost(t, db, author, nil, fmt.Sprintf("post %d", i)).ID)
	}

	all, err := db.Posts().List(ctx, interfaces.PostFilter{}, interfaces.Window{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, p := range all {
		assert.Equal(t, ids[len(ids)-1-i], p.ID, "posts must be newest first")
	}

	window, err := db.Posts().List(ctx, interfaces.PostFilter{}, interfaces.Window{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, ids[3], window[0].ID)
	assert.Equal(t, ids[2], window[1].ID)

	past, err := db.Posts().List(ctx, interfaces.PostFilter{}, interfaces.Window{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func testPostFilters(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	carol := mustUser(t, db, "carol")
	group := mustGroup(t, db, "Cats", "cats")

	mustPost(t, db, alice, group, "alice in cats")
	mustPost(t, db, alice, nil, "alice solo")
	mustPost(t, db, bob, group, "bob in cats")
	mustPost(t, db, carol, nil, "carol solo")

	count := func(f interfaces.PostFilter) int64 {
		n, err := db.Posts().Count(ctx, f)
		require.NoError(t, err)
		return n
	}

	assert.EqualValues(t, 4, count(interfaces.PostFilter{}))
	assert.EqualValues(t, 2, count(interfaces.PostFilter{AuthorID: alice.ID}))
	assert.EqualValues(t, 2, count(interfaces.PostFilter{GroupID: group.ID}))
	assert.EqualValues(t, 1, count(interfaces.PostFilter{AuthorID: alice.ID, GroupID: group.ID}))
	assert.EqualValues(t, 0, count(interfaces.PostFilter{FollowerID: carol.ID}))

	_, err := db.Follows().Create(ctx, carol.ID, alice.ID)
	require.NoError(t, err)
	_, err = db.Follows().Create(ctx, carol.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count(interfaces.PostFilter{FollowerID: carol.ID}))

	feed, err := db.Posts().List(ctx, interfaces.PostFilter{FollowerID: carol.ID}, interfaces.Window{Limit: 10})
	require.NoError(t, err)
	require.Len(t, feed, 3)
	for _, p := range feed {
		assert.NotEqual(t, carol.ID, p.AuthorID)
	}
	assert.Equal(t, "bob in cats", feed[0].Text)
}

func testComments(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := mustUser(t, db, "poster")
	reader := mustUser(t, db, "reader")
	p := mustPost(t, db, author, nil, "discuss")

	for _, text := range []string{"first", "second", "third"} {
		c := &entities.Comment{PostID: p.ID, AuthorID: reader.ID, Text: text}
		require.NoError(t, db.Comments().Create(ctx, c))
		assert.NotZero(t, c.ID)
	}

	comments, err := db.Comments().ListByPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "third", comments[2].Text)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "reader", comments[0].Author.Username)

	n, err := db.Comments().CountByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	err = db.Comments().Create(ctx, &entities.Comment{PostID: 999999, AuthorID: reader.ID, Text: "lost"})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
}

func testPostDeleteCascadesComments(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := mustUser(t, db, "cascade")
	p := mustPost(t, db, author, nil, "doomed")
	require.NoError(t, db.Comments().Create(ctx, &entities.Comment{PostID: p.ID, AuthorID: author.ID, Text: "bye"}))

	require.NoError(t, db.Posts().Delete(ctx, p.ID))

	n, err := db.Comments().CountByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testFollows(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	fan := mustUser(t, db, "fan")
	star := mustUser(t, db, "star")

	created, err := db.Follows().Create(ctx, fan.ID, star.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.Follows().Create(ctx, fan.ID, star.ID)
	require.NoError(t, err)
	assert.False(t, created, "second follow must be a no-op")

	n, err := db.Follows().CountByUser(ctx, fan.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ok, err := db.Follows().Exists(ctx, fan.ID, star.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.Follows().Exists(ctx, star.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, ok, "follow edges are directional")

	deleted, err := db.Follows().Delete(ctx, fan.ID, star.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.Follows().Delete(ctx, fan.ID, star.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = db.Follows().Create(ctx, fan.ID, 999999)
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
}

func testUserDeleteCascades(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	gone := mustUser(t, db, "gone")
	stays := mustUser(t, db, "stays")

	own := mustPost(t, db, gone, nil, "mine")
	theirs := mustPost(t, db, stays, nil, "theirs")
	require.NoError(t, db.Comments().Create(ctx, &entities.Comment{PostID: own.ID, AuthorID: stays.ID, Text: "on gone's post"}))
	require.NoError(t, db.Comments().Create(ctx, &entities.Comment{PostID: theirs.ID, AuthorID: gone.ID, Text: "by gone"}))
	_, err := db.Follows().Create(ctx, gone.ID, stays.ID)
	require.NoError(t, err)
	_, err = db.Follows().Create(ctx, stays.ID, gone.ID)
	require.NoError(t, err)

	require.NoError(t, db.Users().Delete(ctx, gone.ID))

	_, err = db.Posts().GetByID(ctx, own.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	n, err := db.Comments().CountByPost(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.Follows().CountByUser(ctx, stays.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.Posts().Count(ctx, interfaces.PostFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// testListingScenario mirrors the reference data set: group test_group,
// twelve posts by A (eleven in the group) and one by B.
func testListingScenario(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	a := mustUser(t, db, "a")
	b := mustUser(t, db, "b")
	group := mustGroup(t, db, "Test group", "test_group")

	for i := 0; i < 12; i++ {
		g := group
		if i == 0 {
			g = nil
		}
		mustPost(t, db, a, g, fmt.Sprintf("a %d", i))
	}
	mustPost(t, db, b, nil, "b 0")

	count := func(f interfaces.PostFilter) int64 {
		n, err := db.Posts().Count(ctx, f)
		require.NoError(t, err)
		return n
	}
	assert.EqualValues(t, 13, count(interfaces.PostFilter{}))
	assert.EqualValues(t, 11, count(interfaces.PostFilter{GroupID: group.ID}))
	assert.EqualValues(t, 12, count(interfaces.PostFilter{AuthorID: a.ID}))

	second, err := db.Posts().List(ctx, interfaces.PostFilter{}, interfaces.Window{Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, second, 3)
}

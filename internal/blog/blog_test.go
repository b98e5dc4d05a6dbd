package blog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yatube/yatube-backend/internal/db"
	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/media"
)

type fixture struct {
	svc    *Service
	db     interfaces.Database
	fs     afero.Fs
	author *entities.User
	reader *entities.User
	group  *entities.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	database := db.NewInMemoryDatabase()
	require.NoError(t, database.Connect(ctx))

	fs := afero.NewMemMapFs()
	f := &fixture{
		svc: NewService(database, media.NewStore(fs, 1<<20), 10, nil, nil),
		db:  database,
		fs:  fs,
	}
	f.author = f.user(t, "author")
	f.reader = f.user(t, "reader")
	f.group = &entities.Group{Title: "Test group", Slug: "test_group", Description: "about tests"}
	require.NoError(t, database.Groups().Create(ctx, f.group))
	return f
}

func (f *fixture) user(t *testing.T, username string) *entities.User {
	t.Helper()
	u := &entities.User{Username: username}
	require.NoError(t, f.db.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) post(t *testing.T, author *entities.User, group *entities.Group, text string) *entities.Post {
	t.Helper()
	p := &entities.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, f.db.Posts().Create(context.Background(), p))
	return p
}

func (f *fixture) postCount(t *testing.T) int64 {
	t.Helper()
	n, err := f.db.Posts().Count(context.Background(), interfaces.PostFilter{})
	require.NoError(t, err)
	return n
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestListingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		f.post(t, f.author, f.group, fmt.Sprintf("grouped %d", i))
	}
	f.post(t, f.author, nil, "loose")
	f.post(t, f.reader, nil, "by reader")

	index, err := f.svc.Index(ctx, "")
	require.NoError(t, err)
	assert.Len(t, index.Page.Items, 10)
	assert.Equal(t, "by reader", index.Page.Items[0].Text)
	index, err = f.svc.Index(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, index.Page.Items, 3)

	group, err := f.svc.Group(ctx, "test_group", "1")
	require.NoError(t, err)
	assert.Equal(t, f.group.ID, group.Group.ID)
	assert.Len(t, group.Page.Items, 10)
	group, err = f.svc.Group(ctx, "test_group", "2")
	require.NoError(t, err)
	assert.Len(t, group.Page.Items, 1)

	profile, err := f.svc.Profile(ctx, nil, "author", "")
	require.NoError(t, err)
	assert.Equal(t, int64(12), profile.PostsCount)
	assert.Len(t, profile.Page.Items, 10)
	profile, err = f.svc.Profile(ctx, nil, "author", "99")
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Page.Number)
	assert.Len(t, profile.Page.Items, 2)

	for _, raw := range []string{"", "abc", "2.5"} {
		page, err := f.svc.Index(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page.Number, "raw page %q", raw)
	}
	for _, raw := range []string{"0", "-3", "99999999999999999999"} {
		page, err := f.svc.Index(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Page.Number, "raw page %q", raw)
	}
}

func TestListingsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Group(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Profile(ctx, nil, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Detail(ctx, nil, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.author, f.group, "hello")
	f.post(t, f.author, nil, "second")

	_, err := f.svc.AddComment(ctx, f.reader, post.ID, &CommentForm{Text: "first"})
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, f.author, post.ID, &CommentForm{Text: "second"})
	require.NoError(t, err)

	view, err := f.svc.Detail(ctx, f.author, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", view.Post.Text)
	assert.Equal(t, "author", view.Post.Author.Username)
	assert.Equal(t, int64(2), view.PostsCount)
	require.Len(t, view.Comments, 2)
	assert.Equal(t, "first", view.Comments[0].Text)
	assert.Equal(t, "reader", view.Comments[0].Author.Username)
	assert.True(t, view.CanEdit)
	assert.NotNil(t, view.Form)

	view, err = f.svc.Detail(ctx, f.reader, post.ID)
	require.NoError(t, err)
	assert.False(t, view.CanEdit)
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, nil, &PostForm{Text: "anon"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.NewPostForm(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, f.postCount(t))

	_, err = f.svc.CreatePost(ctx, f.author, &PostForm{Text: "   ", Group: "999"})
	var errs *PostFormErrors
	require.True(t, errors.As(err, &errs))
	assert.NotEmpty(t, errs.Text)
	assert.NotEmpty(t, errs.Group)
	assert.Zero(t, f.postCount(t))

	post, err := f.svc.CreatePost(ctx, f.author, &PostForm{
		Text:  "  with picture ",
		Group: fmt.Sprint(f.group.ID),
		Image: bytes.NewReader(gifBytes(t)),
	})
	require.NoError(t, err)
	assert.Equal(t, "with picture", post.Text)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, f.group.ID, *post.GroupID)
	assert.True(t, strings.HasPrefix(post.Image, media.UploadDir+"/"))

	exists, err := afero.Exists(f.fs, "/"+post.Image)
	require.NoError(t, err)
	assert.True(t, exists)

	view, err := f.svc.NewPostForm(ctx, f.author)
	require.NoError(t, err)
	assert.False(t, view.IsEdit)
	assert.Len(t, view.Groups, 1)
}

func TestCreatePostRejectsBadImage(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePost(context.Background(), f.author, &PostForm{
		Text:  "text",
		Image: strings.NewReader("definitely not an image"),
	})
	var errs *PostFormErrors
	require.True(t, errors.As(err, &errs))
	assert.NotEmpty(t, errs.Image)
	assert.Zero(t, f.postCount(t))
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.author, f.group, "original")

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.svc.UpdatePost(ctx, nil, post.ID, &PostForm{Text: "hacked"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("non author", func(t *testing.T) {
		_, err := f.svc.EditPostForm(ctx, f.reader, post.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.svc.UpdatePost(ctx, f.reader, post.ID, &PostForm{Text: "hacked"})
		assert.ErrorIs(t, err, ErrForbidden)

		stored, err := f.db.Posts().GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "original", stored.Text)
		require.NotNil(t, stored.GroupID)
		assert.Equal(t, f.group.ID, *stored.GroupID)
	})

	t.Run("unknown post", func(t *testing.T) {
		_, err := f.svc.UpdatePost(ctx, f.author, 9999, &PostForm{Text: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("author", func(t *testing.T) {
		view, err := f.svc.EditPostForm(ctx, f.author, post.ID)
		require.NoError(t, err)
		assert.True(t, view.IsEdit)
		assert.Equal(t, "original", view.Form.Text)
		assert.True(t, view.Form.SelectedGroup(*f.group))

		updated, err := f.svc.UpdatePost(ctx, f.author, post.ID, &PostForm{Text: "edited"})
		require.NoError(t, err)
		assert.Equal(t, "edited", updated.Text)
		assert.Nil(t, updated.GroupID)

		stored, err := f.db.Posts().GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", stored.Text)
		assert.Nil(t, stored.Group)
		assert.Equal(t, post.CreatedAt, stored.CreatedAt)
	})
}

func TestUpdatePostReplacesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.author, &PostForm{Text: "pic", Image: bytes.NewReader(gifBytes(t))})
	require.NoError(t, err)
	first := post.Image

	updated, err := f.svc.UpdatePost(ctx, f.author, post.ID, &PostForm{Text: "pic", Image: bytes.NewReader(gifBytes(t))})
	require.NoError(t, err)
	assert.NotEqual(t, first, updated.Image)

	exists, err := afero.Exists(f.fs, "/"+first)
	require.NoError(t, err)
	assert.False(t, exists)

	kept, err := f.svc.UpdatePost(ctx, f.author, post.ID, &PostForm{Text: "no new file"})
	require.NoError(t, err)
	assert.Equal(t, updated.Image, kept.Image)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.author, nil, "post")

	count := func() int64 {
		n, err := f.db.Comments().CountByPost(ctx, post.ID)
		require.NoError(t, err)
		return n
	}

	_, err := f.svc.AddComment(ctx, nil, post.ID, &CommentForm{Text: "anon"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.AddComment(ctx, f.reader, post.ID, &CommentForm{Text: "  "})
	var errs *CommentFormErrors
	assert.True(t, errors.As(err, &errs))

	_, err = f.svc.AddComment(ctx, f.reader, 9999, &CommentForm{Text: "lost"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, count())

	comment, err := f.svc.AddComment(ctx, f.reader, post.ID, &CommentForm{Text: " nice "})
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Text)
	assert.Equal(t, int64(1), count())
}

func TestFollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.post(t, f.author, nil, "followed post")
	stranger := f.user(t, "stranger")
	f.post(t, stranger, nil, "not followed")

	following := func() int64 {
		n, err := f.db.Follows().CountByUser(ctx, f.reader.ID)
		require.NoError(t, err)
		return n
	}

	_, err := f.svc.Follow(ctx, nil, "author")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Follow(ctx, f.reader, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := f.svc.Follow(ctx, f.reader, "reader")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, following())

	created, err = f.svc.Follow(ctx, f.reader, "author")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = f.svc.Follow(ctx, f.reader, "author")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), following())

	profile, err := f.svc.Profile(ctx, f.reader, "author", "")
	require.NoError(t, err)
	assert.True(t, profile.Following)
	assert.False(t, profile.IsSelf)

	feed, err := f.svc.Feed(ctx, f.reader, "")
	require.NoError(t, err)
	require.Len(t, feed.Page.Items, 1)
	assert.Equal(t, "followed post", feed.Page.Items[0].Text)
	_, err = f.svc.Feed(ctx, nil, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	deleted, err := f.svc.Unfollow(ctx, f.reader, "author")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = f.svc.Unfollow(ctx, f.reader, "author")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Zero(t, following())

	profile, err = f.svc.Profile(ctx, f.reader, "author", "")
	require.NoError(t, err)
	assert.False(t, profile.Following)
}

func TestGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGroup(ctx, "", "slug", "")
	assert.ErrorIs(t, err, ErrInvalidGroup)
	_, err = f.svc.CreateGroup(ctx, "Title", "bad slug", "")
	assert.ErrorIs(t, err, ErrInvalidGroup)
	_, err = f.svc.CreateGroup(ctx, strings.Repeat("x", entities.MaxGroupTitleLength+1), "long", "")
	assert.ErrorIs(t, err, ErrInvalidGroup)
	_, err = f.svc.CreateGroup(ctx, "Dup", "test_group", "")
	assert.ErrorIs(t, err, ErrInvalidGroup)

	poetry, err := f.svc.CreateGroup(ctx, "Poetry", "poetry", "verses")
	require.NoError(t, err)
	post := f.post(t, f.author, poetry, "a verse")

	groups, err := f.svc.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	require.NoError(t, f.svc.DeleteGroup(ctx, "poetry"))
	assert.ErrorIs(t, f.svc.DeleteGroup(ctx, "poetry"), ErrNotFound)

	stored, err := f.db.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.GroupID)
}

type mockPosts struct {
	mock.Mock
	interfaces.PostRepository
}

func (m *mockPosts) Count(ctx context.Context, filter interfaces.PostFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type brokenDB struct {
	interfaces.Database
	posts *mockPosts
}

func (b *brokenDB) Posts() interfaces.PostRepository { return b.posts }

func TestStoreFailuresPropagate(t *testing.T) {
	posts := &mockPosts{}
	boom := errors.New("connection reset")
	posts.On("Count", mock.Anything, interfaces.PostFilter{}).Return(int64(0), boom)

	svc := NewService(&brokenDB{Database: db.NewInMemoryDatabase(), posts: posts}, nil, 0, nil, nil)
	_, err := svc.Index(context.Background(), "1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	posts.AssertExpectations(t)
}

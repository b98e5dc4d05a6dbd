// Package blog holds the listing, ownership and social rules of the site.
// Handlers call it with the current viewer (nil when anonymous) and map the
// sentinel errors onto redirects and error pages.
package blog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/metrics"
	"github.com/yatube/yatube-backend/internal/paginate"
)

var (
	// ErrNotFound means the referenced group, user or post does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the action needs a logged-in viewer.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means the viewer may not modify the target.
	ErrForbidden = errors.New("forbidden")
)

// ImageStore keeps uploaded post images.
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Delete(name string) error
}

type Service struct {
	db      interfaces.Database
	images  ImageStore
	perPage int
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewService wires the service. images may be nil, in which case uploads
// are rejected; logger and m may be nil.
func NewService(database interfaces.Database, images ImageStore, perPage int, logger *zap.SugaredLogger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if perPage <= 0 {
		perPage = paginate.DefaultPerPage
	}
	return &Service{
		db:      database,
		images:  images,
		perPage: perPage,
		logger:  logger,
		metrics: m,
	}
}

// notFound maps the store's ErrNotFound onto the package sentinel.
func notFound(what string, err error) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func (s *Service) postSource(filter interfaces.PostFilter) paginate.Source[entities.Post] {
	posts := s.db.Posts()
	return paginate.SourceFuncs[entities.Post]{
		CountFn: func(ctx context.Context) (int64, error) {
			return posts.Count(ctx, filter)
		},
		SliceFn: func(ctx context.Context, offset, limit int) ([]entities.Post, error) {
			return posts.List(ctx, filter, interfaces.Window{Offset: offset, Limit: limit})
		},
	}
}

func (s *Service) page(ctx context.Context, filter interfaces.PostFilter, rawPage string) (*PostPage, error) {
	page, err := paginate.New(s.postSource(filter), s.perPage).GetPage(ctx, rawPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return page, nil
}

// Index lists every post.
func (s *Service) Index(ctx context.Context, rawPage string) (*IndexView, error) {
	page, err := s.page(ctx, interfaces.PostFilter{}, rawPage)
	if err != nil {
		return nil, err
	}
	return &IndexView{Page: page}, nil
}

// Group lists the posts of the group with the given slug.
func (s *Service) Group(ctx context.Context, slug, rawPage string) (*GroupView, error) {
	group, err := s.db.Groups().GetBySlug(ctx, slug)
	if err != nil {
		return nil, notFound("group "+slug, err)
	}
	page, err := s.page(ctx, interfaces.PostFilter{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupView{Group: group, Page: page}, nil
}

// Profile lists an author's posts along with the viewer's follow state.
func (s *Service) Profile(ctx context.Context, viewer *entities.User, username, rawPage string) (*ProfileView, error) {
	author, err := s.db.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, notFound("user "+username, err)
	}
	page, err := s.page(ctx, interfaces.PostFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	view := &ProfileView{
		Author:     author,
		PostsCount: page.Count,
		Page:       page,
	}
	if viewer != nil {
		view.IsSelf = viewer.ID == author.ID
		if !view.IsSelf {
			view.Following, err = s.db.Follows().Exists(ctx, viewer.ID, author.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check follow: %w", err)
			}
		}
	}
	return view, nil
}

// Feed lists posts by the authors the viewer follows.
func (s *Service) Feed(ctx context.Context, viewer *entities.User, rawPage string) (*FollowView, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	page, err := s.page(ctx, interfaces.PostFilter{FollowerID: viewer.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &FollowView{Page: page}, nil
}

// Detail returns a post, its comments and the author's post count.
func (s *Service) Detail(ctx context.Context, viewer *entities.User, postID int64) (*DetailView, error) {
	post, err := s.db.Posts().GetByID(ctx, postID)
	if err != nil {
		return nil, notFound(fmt.Sprintf("post %d", postID), err)
	}
	count, err := s.db.Posts().Count(ctx, interfaces.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, fmt.Errorf("failed to count author posts: %w", err)
	}
	comments, err := s.db.Comments().ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return &DetailView{
		Post:       post,
		PostsCount: count,
		Comments:   comments,
		Form:       &CommentForm{},
		CanEdit:    post.IsAuthoredBy(viewer),
	}, nil
}

package blog

import (
	"context"
	"fmt"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/metrics"
)

// AddComment attaches a comment by viewer to the post. An anonymous viewer
// gets ErrUnauthorized and an empty comment *CommentFormErrors; in both
// cases nothing is stored.
func (s *Service) AddComment(ctx context.Context, viewer *entities.User, postID int64, form *CommentForm) (*entities.Comment, error) {
	if _, err := s.db.Posts().GetByID(ctx, postID); err != nil {
		return nil, notFound(fmt.Sprintf("post %d", postID), err)
	}
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	comment := &entities.Comment{
		PostID:   postID,
		AuthorID: viewer.ID,
		Text:     form.Text,
	}
	if err := s.db.Comments().Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.metrics.RecordMutation(ctx, metrics.MutationComment)
	s.logger.Debugw("Comment added", "comment_id", comment.ID, "post_id", postID, "author_id", viewer.ID)
	return comment, nil
}

// Follow makes viewer follow the author. Following yourself or an author
// you already follow changes nothing; created reports whether an edge was
// added.
func (s *Service) Follow(ctx context.Context, viewer *entities.User, username string) (created bool, err error) {
	author, err := s.followTarget(ctx, viewer, username)
	if err != nil {
		return false, err
	}
	if author.ID == viewer.ID {
		return false, nil
	}

	created, err = s.db.Follows().Create(ctx, viewer.ID, author.ID)
	if err != nil {
		return false, fmt.Errorf("failed to follow %s: %w", username, err)
	}
	if created {
		s.metrics.RecordMutation(ctx, metrics.MutationFollow)
		s.logger.Debugw("Follow added", "user_id", viewer.ID, "author_id", author.ID)
	}
	return created, nil
}

// Unfollow removes the edge from viewer to the author if there is one.
func (s *Service) Unfollow(ctx context.Context, viewer *entities.User, username string) (deleted bool, err error) {
	author, err := s.followTarget(ctx, viewer, username)
	if err != nil {
		return false, err
	}

	deleted, err = s.db.Follows().Delete(ctx, viewer.ID, author.ID)
	if err != nil {
		return false, fmt.Errorf("failed to unfollow %s: %w", username, err)
	}
	return deleted, nil
}

func (s *Service) followTarget(ctx context.Context, viewer *entities.User, username string) (*entities.User, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	author, err := s.db.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, notFound("user "+username, err)
	}
	return author, nil
}

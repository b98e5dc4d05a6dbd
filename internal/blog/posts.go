package blog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/media"
	"github.com/yatube/yatube-backend/internal/metrics"
)

// NewPostForm returns an empty create form.
func (s *Service) NewPostForm(ctx context.Context, viewer *entities.User) (*PostFormView, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	return s.FormView(ctx, &PostForm{}, nil, 0)
}

// EditPostForm returns the edit form prefilled from the post. Only the
// author may open it.
func (s *Service) EditPostForm(ctx context.Context, viewer *entities.User, postID int64) (*PostFormView, error) {
	post, err := s.editable(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	return s.FormView(ctx, PostFormFrom(post), nil, post.ID)
}

// FormView builds the create (postID 0) or edit page for form.
func (s *Service) FormView(ctx context.Context, form *PostForm, errs *PostFormErrors, postID int64) (*PostFormView, error) {
	groups, err := s.db.Groups().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return &PostFormView{
		Form:   form,
		Errors: errs,
		IsEdit: postID != 0,
		PostID: postID,
		Groups: groups,
	}, nil
}

// CreatePost publishes a post by viewer. Rejected input is returned as
// *PostFormErrors and nothing is stored.
func (s *Service) CreatePost(ctx context.Context, viewer *entities.User, form *PostForm) (*entities.Post, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}

	groupID, err := s.clean(ctx, form)
	if err != nil {
		return nil, err
	}
	image, err := s.saveImage(form)
	if err != nil {
		return nil, err
	}

	post := &entities.Post{
		Text:     form.Text,
		AuthorID: viewer.ID,
		GroupID:  groupID,
		Image:    image,
	}
	if err := s.db.Posts().Create(ctx, post); err != nil {
		s.discardImage(image)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.metrics.RecordMutation(ctx, metrics.MutationPost)
	s.logger.Infow("Post created", "post_id", post.ID, "author_id", viewer.ID)
	return post, nil
}

// UpdatePost rewrites the text, group and optionally the image of a post.
// A non-author gets ErrForbidden and the post is left untouched.
func (s *Service) UpdatePost(ctx context.Context, viewer *entities.User, postID int64, form *PostForm) (*entities.Post, error) {
	post, err := s.editable(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}

	groupID, err := s.clean(ctx, form)
	if err != nil {
		return nil, err
	}
	image, err := s.saveImage(form)
	if err != nil {
		return nil, err
	}

	previous := post.Image
	post.Text = form.Text
	post.GroupID = groupID
	if image != "" {
		post.Image = image
	}
	if err := s.db.Posts().Update(ctx, post); err != nil {
		s.discardImage(image)
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	if image != "" {
		s.discardImage(previous)
	}

	s.metrics.RecordMutation(ctx, metrics.MutationEdit)
	s.logger.Infow("Post updated", "post_id", post.ID, "author_id", viewer.ID)
	return post, nil
}

// editable loads the post and checks that viewer wrote it.
func (s *Service) editable(ctx context.Context, viewer *entities.User, postID int64) (*entities.Post, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	post, err := s.db.Posts().GetByID(ctx, postID)
	if err != nil {
		return nil, notFound(fmt.Sprintf("post %d", postID), err)
	}
	if !post.IsAuthoredBy(viewer) {
		return nil, ErrForbidden
	}
	return post, nil
}

// clean normalises the text and resolves the selected group.
func (s *Service) clean(ctx context.Context, form *PostForm) (*int64, error) {
	form.Text = strings.TrimSpace(form.Text)
	form.Group = strings.TrimSpace(form.Group)

	errs := &PostFormErrors{}
	if form.Text == "" {
		errs.Text = requiredField
	}

	var groupID *int64
	if form.Group != "" {
		id, err := strconv.ParseInt(form.Group, 10, 64)
		if err != nil {
			errs.Group = invalidChoice
		} else if _, err := s.db.Groups().GetByID(ctx, id); err != nil {
			if !errors.Is(err, interfaces.ErrNotFound) {
				return nil, fmt.Errorf("failed to load group: %w", err)
			}
			errs.Group = invalidChoice
		} else {
			groupID = &id
		}
	}

	if *errs != (PostFormErrors{}) {
		return nil, errs
	}
	return groupID, nil
}

func (s *Service) saveImage(form *PostForm) (string, error) {
	if form.Image == nil {
		return "", nil
	}
	if s.images == nil {
		return "", &PostFormErrors{Image: "Image uploads are disabled."}
	}

	name, err := s.images.Save(form.Image)
	switch {
	case errors.Is(err, media.ErrNotImage):
		return "", &PostFormErrors{Image: "Upload a valid image. The file you uploaded was either not an image or a corrupted image."}
	case errors.Is(err, media.ErrTooLarge):
		return "", &PostFormErrors{Image: "The uploaded image is too large."}
	case err != nil:
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return name, nil
}

func (s *Service) discardImage(name string) {
	if name == "" || s.images == nil {
		return
	}
	if err := s.images.Delete(name); err != nil {
		s.logger.Warnw("Failed to delete image", "image", name, "error", err)
	}
}

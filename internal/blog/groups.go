package blog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// ErrInvalidGroup is returned for a group with a bad title or slug.
var ErrInvalidGroup = errors.New("invalid group")

// CreateGroup adds a group. Groups are managed by administrators only, so
// there is no viewer check here.
func (s *Service) CreateGroup(ctx context.Context, title, slug, description string) (*entities.Group, error) {
	title, slug = strings.TrimSpace(title), strings.TrimSpace(slug)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidGroup)
	case utf8.RuneCountInString(title) > entities.MaxGroupTitleLength:
		return nil, fmt.Errorf("%w: title longer than %d characters", ErrInvalidGroup, entities.MaxGroupTitleLength)
	case !slugPattern.MatchString(slug):
		return nil, fmt.Errorf("%w: slug %q may only contain letters, numbers, underscores or hyphens", ErrInvalidGroup, slug)
	}

	group := &entities.Group{Title: title, Slug: slug, Description: description}
	if err := s.db.Groups().Create(ctx, group); err != nil {
		if errors.Is(err, interfaces.ErrUniqueConstraint) {
			return nil, fmt.Errorf("%w: slug %q is taken", ErrInvalidGroup, slug)
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	s.logger.Infow("Group created", "group_id", group.ID, "slug", slug)
	return group, nil
}

// DeleteGroup removes a group. Its posts stay, without a group.
func (s *Service) DeleteGroup(ctx context.Context, slug string) error {
	group, err := s.db.Groups().GetBySlug(ctx, slug)
	if err != nil {
		return notFound("group "+slug, err)
	}
	if err := s.db.Groups().Delete(ctx, group.ID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	s.logger.Infow("Group deleted", "group_id", group.ID, "slug", slug)
	return nil
}

func (s *Service) ListGroups(ctx context.Context) ([]entities.Group, error) {
	groups, err := s.db.Groups().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

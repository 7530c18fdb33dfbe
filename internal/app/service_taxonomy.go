package app

import (
	"context"
	"net/http"
	"strings"

	"inkwell/api/internal/policy"
	"inkwell/api/internal/store"
	"inkwell/api/internal/tags"
	"inkwell/api/internal/util"
)

func (s *Service) ListCategories(ctx context.Context) ([]map[string]any, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(categories))
	for _, category := range categories {
		items = append(items, map[string]any{
			"id":          category.ID,
			"name":        category.Name,
			"description": category.Description,
			"slug":        category.Slug,
		})
	}
	return items, nil
}

func (s *Service) ListTags(ctx context.Context) ([]map[string]any, error) {
	tagList, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(tagList))
	for _, tag := range tagList {
		items = append(items, map[string]any{
			"id":   tag.ID,
			"name": tag.Name,
			"slug": tag.Slug,
		})
	}
	return items, nil
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// CreateCategory is admin-only. The slug is derived from the name; a clash
// with an existing slug leaves the existing category untouched.
func (s *Service) CreateCategory(ctx context.Context, session Session, input CategoryInput) (map[string]any, error) {
	if policy.Normalize(session.Role) != policy.RoleAdmin {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only admins can manage categories", nil)
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	category := store.Category{
		ID:          util.NewID("cat"),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Slug:        tags.Slugify(input.Name),
	}
	if err := s.store.InsertCategory(ctx, category); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          category.ID,
		"name":        category.Name,
		"description": category.Description,
		"slug":        category.Slug,
	}, nil
}

// DeleteCategory is admin-only. Posts in the category are detached, not
// deleted.
func (s *Service) DeleteCategory(ctx context.Context, session Session, categoryID string) error {
	if policy.Normalize(session.Role) != policy.RoleAdmin {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only admins can manage categories", nil)
	}
	deleted, err := s.store.DeleteCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Category not found", nil)
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, comments, err := s.store.UserContentCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":              user.ID,
		"email":           user.Email,
		"displayName":     user.DisplayName,
		"bio":             user.Bio,
		"profileImageUrl": user.ProfileImageURL,
		"role":            user.Role,
		"createdAt":       user.CreatedAt.UTC(),
		"postCount":       posts,
		"commentCount":    comments,
	}, nil
}

type ProfileInput struct {
	DisplayName     string `json:"displayName" validate:"required,max=100"`
	Bio             string `json:"bio" validate:"max=500"`
	ProfileImageURL string `json:"profileImageUrl" validate:"omitempty,url"`
}

func (s *Service) UpdateProfile(ctx context.Context, session Session, input ProfileInput) (map[string]any, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUserProfile(ctx, session.UserID,
		strings.TrimSpace(input.DisplayName), strings.TrimSpace(input.Bio), strings.TrimSpace(input.ProfileImageURL)); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, session.UserID)
}

// DeleteUser removes an account. The caller must be the user themselves or
// an admin. Accounts that still own posts or comments cannot be removed;
// authorship records are kept intact.
func (s *Service) DeleteUser(ctx context.Context, session Session, userID string) error {
	if !policy.CanModify(session.UserID, policy.Normalize(session.Role), userID) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the account owner or an admin can delete this account", nil)
	}

	posts, comments, err := s.store.UserContentCounts(ctx, userID)
	if err != nil {
		return err
	}
	if posts > 0 || comments > 0 {
		return domainError(http.StatusConflict, "CONSTRAINT_VIOLATION", "Account still owns content and cannot be deleted", map[string]any{
			"postCount":    posts,
			"commentCount": comments,
		})
	}

	deleted, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	}
	return nil
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"inkwell/api/internal/policy"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
	"inkwell/api/internal/tags"
	"inkwell/api/internal/util"
)

// PostInput carries the writable fields of a post. Tags arrive as one
// comma-separated string, matching the editor's tag field.
type PostInput struct {
	Title            string `json:"title" validate:"required,max=200"`
	Summary          string `json:"summary" validate:"max=500"`
	Body             string `json:"body" validate:"required"`
	FeaturedImageURL string `json:"featuredImageUrl" validate:"omitempty,url"`
	CategoryID       string `json:"categoryId"`
	Tags             string `json:"tags"`
	IsPublished      bool   `json:"isPublished"`
}

func (s *Service) ListPublishedPosts(ctx context.Context, categoryID, tagSlug, searchText string) ([]map[string]any, error) {
	posts, err := s.store.ListPublished(ctx, store.PostFilter{
		CategoryID: strings.TrimSpace(categoryID),
		TagSlug:    strings.TrimSpace(tagSlug),
		SearchText: strings.TrimSpace(searchText),
	})
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(posts))
	for _, post := range posts {
		items = append(items, postSummaryPayload(post))
	}
	return items, nil
}

// GetPost returns a post in any publish state with its tags and comment
// thread. Every successful fetch counts one view. Drafts never appear in
// list or search results but are reachable by id.
func (s *Service) GetPost(ctx context.Context, postID string) (map[string]any, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	count, err := s.store.IncrementViewCount(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.ViewCount = count

	comments, err := s.store.ListPostComments(ctx, postID)
	if err != nil {
		return nil, err
	}

	payload := postPayload(post)
	payload["comments"] = commentPayloads(comments)
	return payload, nil
}

func (s *Service) CreatePost(ctx context.Context, session Session, input PostInput) (map[string]any, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	categoryID, err := s.resolveCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	tagNames := tags.Normalize(input.Tags)
	if err := validateTagNames(tagNames); err != nil {
		return nil, err
	}

	now := time.Now()
	post := store.Post{
		ID:               util.NewID("post"),
		Title:            strings.TrimSpace(input.Title),
		Summary:          strings.TrimSpace(input.Summary),
		Body:             input.Body,
		FeaturedImageURL: strings.TrimSpace(input.FeaturedImageURL),
		IsPublished:      input.IsPublished,
		AuthorID:         session.UserID,
		CategoryID:       categoryID,
		CreatedAt:        now,
	}
	if post.IsPublished {
		post.PublishedAt = &now
	}

	if err := s.store.InsertPost(ctx, post, tagNames); err != nil {
		return nil, err
	}

	created, err := s.store.GetPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.syncPostIndex(created)
	return postPayload(created), nil
}

func (s *Service) UpdatePost(ctx context.Context, session Session, postID string, input PostInput) (map[string]any, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !policy.CanModify(session.UserID, policy.Normalize(session.Role), post.AuthorID) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only the author or an admin can edit this post", nil)
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	categoryID, err := s.resolveCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	tagNames := tags.Normalize(input.Tags)
	if err := validateTagNames(tagNames); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdatePost(ctx, postID, store.PostUpdate{
		Title:            strings.TrimSpace(input.Title),
		Summary:          strings.TrimSpace(input.Summary),
		Body:             input.Body,
		FeaturedImageURL: strings.TrimSpace(input.FeaturedImageURL),
		IsPublished:      input.IsPublished,
		CategoryID:       categoryID,
	}, tagNames)
	if err != nil {
		return nil, err
	}
	s.syncPostIndex(updated)
	return postPayload(updated), nil
}

func (s *Service) DeletePost(ctx context.Context, session Session, postID string) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if !policy.CanModify(session.UserID, policy.Normalize(session.Role), post.AuthorID) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the author or an admin can delete this post", nil)
	}

	deleted, err := s.store.DeletePost(ctx, postID)
	if err != nil {
		return err
	}
	if deleted && s.search != nil {
		s.search.DeletePost(postID)
	}
	return nil
}

// ListMyPosts returns every post by the caller, drafts included.
func (s *Service) ListMyPosts(ctx context.Context, session Session) ([]map[string]any, error) {
	posts, err := s.store.ListByAuthor(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(posts))
	for _, post := range posts {
		items = append(items, postSummaryPayload(post))
	}
	return items, nil
}

func (s *Service) Search(q, filterType, categoryID string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}
	}
	return s.search.Search(search.Query{
		Text:             q,
		FilterType:       search.ResultType(filterType),
		FilterCategoryID: categoryID,
		Limit:            limit,
		Offset:           offset,
	})
}

func validateTagNames(names []string) error {
	for _, name := range names {
		if len(name) > 50 {
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Tag names are limited to 50 characters", map[string]any{
				"tag": name,
			})
		}
	}
	return nil
}

// resolveCategory validates an optional category reference. Empty input
// detaches the post from any category.
func (s *Service) resolveCategory(ctx context.Context, categoryID string) (*string, error) {
	trimmed := strings.TrimSpace(categoryID)
	if trimmed == "" {
		return nil, nil
	}
	if _, err := s.store.GetCategory(ctx, trimmed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown category", nil)
		}
		return nil, err
	}
	return &trimmed, nil
}

// syncPostIndex keeps the search index in line with the post's publish
// state. Drafts are removed so they can never surface in results.
func (s *Service) syncPostIndex(post store.Post) {
	if s.search == nil {
		return
	}
	if !post.IsPublished {
		s.search.DeletePost(post.ID)
		return
	}
	tagNames := make([]string, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tagNames = append(tagNames, tag.Name)
	}
	categoryID := ""
	if post.CategoryID != nil {
		categoryID = *post.CategoryID
	}
	s.search.IndexPost(search.PostRecord{
		ID:         post.ID,
		Title:      post.Title,
		Summary:    post.Summary,
		Body:       post.Body,
		CategoryID: categoryID,
		Tags:       tagNames,
	})
}

func postPayload(post store.Post) map[string]any {
	payload := postSummaryPayload(post)
	payload["body"] = post.Body
	return payload
}

func postSummaryPayload(post store.Post) map[string]any {
	tagItems := make([]map[string]any, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tagItems = append(tagItems, map[string]any{
			"id":   tag.ID,
			"name": tag.Name,
			"slug": tag.Slug,
		})
	}

	var categoryID any
	if post.CategoryID != nil {
		categoryID = *post.CategoryID
	}
	var updatedAt, publishedAt any
	if post.UpdatedAt != nil {
		updatedAt = post.UpdatedAt.UTC()
	}
	if post.PublishedAt != nil {
		publishedAt = post.PublishedAt.UTC()
	}

	return map[string]any{
		"id":               post.ID,
		"title":            post.Title,
		"summary":          post.Summary,
		"featuredImageUrl": post.FeaturedImageURL,
		"isPublished":      post.IsPublished,
		"viewCount":        post.ViewCount,
		"authorId":         post.AuthorID,
		"authorName":       post.AuthorName,
		"categoryId":       categoryID,
		"categoryName":     post.CategoryName,
		"tags":             tagItems,
		"createdAt":        post.CreatedAt.UTC(),
		"updatedAt":        updatedAt,
		"publishedAt":      publishedAt,
	}
}

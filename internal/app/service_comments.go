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
	"inkwell/api/internal/util"
)

type CommentInput struct {
	Body     string `json:"body" validate:"required,max=1000"`
	ParentID string `json:"parentId"`
}

// CreateComment adds a comment or a reply to a post. Replies only go one
// level deep: the parent must be a top-level comment on the same post.
func (s *Service) CreateComment(ctx context.Context, session Session, postID string, input CommentInput) (map[string]any, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	var parentID *string
	if trimmed := strings.TrimSpace(input.ParentID); trimmed != "" {
		parent, err := s.store.GetComment(ctx, trimmed)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Parent comment not found", nil)
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Parent comment belongs to a different post", nil)
		}
		if parent.ParentID != nil {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Replies to replies are not supported", nil)
		}
		parentID = &trimmed
	}

	comment := store.Comment{
		ID:        util.NewID("cmt"),
		Body:      strings.TrimSpace(input.Body),
		PostID:    postID,
		UserID:    session.UserID,
		ParentID:  parentID,
		CreatedAt: time.Now(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}

	created, err := s.store.GetComment(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	if s.search != nil {
		categoryID := ""
		if post.CategoryID != nil {
			categoryID = *post.CategoryID
		}
		s.search.IndexComment(search.CommentRecord{
			ID:         created.ID,
			Content:    created.Body,
			AuthorName: created.UserName,
			PostID:     postID,
			CategoryID: categoryID,
		})
	}

	return commentPayload(created), nil
}

func (s *Service) ListPostComments(ctx context.Context, postID string) ([]map[string]any, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListPostComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return commentPayloads(comments), nil
}

// DeleteComment removes a comment. Deleting a comment that no longer exists
// is a no-op. A comment with replies cannot be deleted; the thread below it
// would be orphaned.
func (s *Service) DeleteComment(ctx context.Context, session Session, commentID string) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	if !policy.CanModify(session.UserID, policy.Normalize(session.Role), comment.UserID) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the author or an admin can delete this comment", nil)
	}

	replies, err := s.store.CountReplies(ctx, commentID)
	if err != nil {
		return err
	}
	if replies > 0 {
		return domainError(http.StatusConflict, "CONSTRAINT_VIOLATION", "Comment has replies and cannot be deleted", map[string]any{
			"replyCount": replies,
		})
	}

	deleted, err := s.store.DeleteComment(ctx, commentID)
	if err != nil {
		return err
	}
	if deleted && s.search != nil {
		s.search.DeleteComment(commentID)
	}
	return nil
}

func commentPayloads(comments []store.Comment) []map[string]any {
	items := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		items = append(items, commentPayload(comment))
	}
	return items
}

func commentPayload(comment store.Comment) map[string]any {
	var parentID any
	if comment.ParentID != nil {
		parentID = *comment.ParentID
	}
	var updatedAt any
	if comment.UpdatedAt != nil {
		updatedAt = comment.UpdatedAt.UTC()
	}
	return map[string]any{
		"id":         comment.ID,
		"body":       comment.Body,
		"postId":     comment.PostID,
		"userId":     comment.UserID,
		"userName":   comment.UserName,
		"parentId":   parentID,
		"createdAt":  comment.CreatedAt.UTC(),
		"updatedAt":  updatedAt,
		"replyCount": comment.ReplyCount,
		"replies":    commentPayloads(comment.Replies),
	}
}

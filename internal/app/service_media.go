package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"inkwell/api/internal/policy"
)

// UploadPostImage stores a featured image for a post the caller owns and
// returns the object name plus a download URL. The client then sets the URL
// on the post through a normal edit.
func (s *Service) UploadPostImage(ctx context.Context, session Session, postID, fileName string, file io.Reader, size int64) (map[string]any, error) {
	if s.media == nil {
		return nil, domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Image storage is not configured", nil)
	}
	if size > s.cfg.MaxUploadBytes {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Image exceeds the upload size limit", map[string]any{
			"maxBytes": s.cfg.MaxUploadBytes,
		})
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !policy.CanModify(session.UserID, policy.Normalize(session.Role), post.AuthorID) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only the author or an admin can upload images for this post", nil)
	}

	objectName, err := s.media.Upload(ctx, postID, fileName, file, size)
	if err != nil {
		return nil, err
	}

	url, err := s.media.PresignedURL(ctx, objectName, 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"objectName": objectName,
		"url":        url,
	}, nil
}

// DeletePostImage removes an uploaded object. Unknown objects are a no-op.
func (s *Service) DeletePostImage(ctx context.Context, session Session, postID, objectName string) error {
	if s.media == nil {
		return domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Image storage is not configured", nil)
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if !policy.CanModify(session.UserID, policy.Normalize(session.Role), post.AuthorID) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the author or an admin can remove images for this post", nil)
	}

	return s.media.Delete(ctx, objectName)
}

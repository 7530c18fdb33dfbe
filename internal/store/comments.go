package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, body, post_id, user_id, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, comment.ID, comment.Body, comment.PostID, comment.UserID, comment.ParentID, comment.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert comment: %w: %w", ErrConstraint, err)
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var item Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.body, c.post_id, c.user_id, u.display_name, c.parent_id, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.id=$1
	`, commentID).Scan(&item.ID, &item.Body, &item.PostID, &item.UserID, &item.UserName, &item.ParentID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Comment{}, err
	}
	return item, nil
}

func (s *PostgresStore) CountReplies(ctx context.Context, commentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE parent_id=$1`, commentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count replies: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("delete comment: %w: %w", ErrConstraint, err)
		}
		return false, fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete comment rows: %w", err)
	}
	return affected > 0, nil
}

// ListPostComments returns the post's top-level comments, oldest first, each
// carrying its direct replies. The thread is loaded in one flat query and
// grouped by parent id. Only one level of nesting is surfaced, even though
// the schema would allow deeper chains.
func (s *PostgresStore) ListPostComments(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.body, c.post_id, c.user_id, u.display_name, c.parent_id, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id=$1
		ORDER BY c.created_at ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post comments: %w", err)
	}
	defer rows.Close()

	all := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.Body, &item.PostID, &item.UserID, &item.UserName, &item.ParentID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		all = append(all, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	repliesByParent := make(map[string][]Comment)
	for _, comment := range all {
		if comment.ParentID != nil {
			repliesByParent[*comment.ParentID] = append(repliesByParent[*comment.ParentID], comment)
		}
	}

	topLevel := make([]Comment, 0, len(all))
	for _, comment := range all {
		if comment.ParentID != nil {
			continue
		}
		comment.Replies = repliesByParent[comment.ID]
		comment.ReplyCount = len(comment.Replies)
		topLevel = append(topLevel, comment)
	}
	return topLevel, nil
}

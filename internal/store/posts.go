package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkwell/api/internal/tags"
	"inkwell/api/internal/util"
)

const postColumns = `
	p.id, p.title, p.summary, p.body, p.featured_image_url, p.is_published,
	p.view_count, p.author_id, u.display_name, p.category_id, COALESCE(c.name, ''),
	p.created_at, p.updated_at, p.published_at
`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var item Post
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Summary,
		&item.Body,
		&item.FeaturedImageURL,
		&item.IsPublished,
		&item.ViewCount,
		&item.AuthorID,
		&item.AuthorName,
		&item.CategoryID,
		&item.CategoryName,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.PublishedAt,
	)
	return item, err
}

// InsertPost creates a post and its tag associations in one transaction.
// publishedAt must already be set by the caller when the post is created
// published.
func (s *PostgresStore) InsertPost(ctx context.Context, post Post, tagNames []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert post: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (id, title, summary, body, featured_image_url, is_published, author_id, category_id, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, post.ID, post.Title, post.Summary, post.Body, post.FeaturedImageURL, post.IsPublished,
		post.AuthorID, post.CategoryID, post.CreatedAt, post.PublishedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	if err := replacePostTags(ctx, tx, post.ID, tagNames); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert post: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPost(ctx context.Context, postID string) (Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id=$1
	`, postID)
	item, err := scanPost(row)
	if err != nil {
		return Post{}, err
	}
	tags, err := s.ListPostTags(ctx, postID)
	if err != nil {
		return Post{}, err
	}
	item.Tags = tags
	return item, nil
}

// IncrementViewCount bumps the view counter atomically and returns the new
// value. The increment is a single UPDATE so concurrent readers never lose a
// count to a read-modify-write race.
func (s *PostgresStore) IncrementViewCount(ctx context.Context, postID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE posts SET view_count = view_count + 1
		WHERE id=$1
		RETURNING view_count
	`, postID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListPublished returns published posts matching every provided filter,
// newest first by publish time. Text matching uses ILIKE so search is
// case-insensitive.
func (s *PostgresStore) ListPublished(ctx context.Context, filter PostFilter) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.is_published
		  AND ($1='' OR p.category_id=$1)
		  AND ($2='' OR EXISTS (
				SELECT 1 FROM post_tags pt
				JOIN tags t ON t.id = pt.tag_id
				WHERE pt.post_id = p.id AND t.slug = $2))
		  AND ($3='' OR p.title ILIKE '%'||$3||'%' OR p.summary ILIKE '%'||$3||'%' OR p.body ILIKE '%'||$3||'%')
		ORDER BY COALESCE(p.published_at, p.created_at) DESC
	`, filter.CategoryID, filter.TagSlug, filter.SearchText)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ListByAuthor returns every post by the author, drafts included, newest
// created first.
func (s *PostgresStore) ListByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.author_id=$1
		ORDER BY p.created_at DESC
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

func collectPosts(rows *sql.Rows) ([]Post, error) {
	items := make([]Post, 0)
	for rows.Next() {
		item, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return items, nil
}

// UpdatePost overwrites the editable fields and fully replaces the tag set in
// one transaction. publishedAt is written exactly once: on the first
// transition to published; an already-set value is never touched. Returns
// sql.ErrNoRows when the post vanished between read and write.
func (s *PostgresStore) UpdatePost(ctx context.Context, postID string, update PostUpdate, tagNames []string) (Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Post{}, fmt.Errorf("begin update post: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var publishedAt *time.Time
	err = tx.QueryRowContext(ctx, `SELECT published_at FROM posts WHERE id=$1 FOR UPDATE`, postID).Scan(&publishedAt)
	if err != nil {
		return Post{}, err
	}

	now := time.Now()
	if update.IsPublished && publishedAt == nil {
		publishedAt = &now
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE posts
		SET title=$2, summary=$3, body=$4, featured_image_url=$5, category_id=$6,
			is_published=$7, published_at=$8, updated_at=$9
		WHERE id=$1
	`, postID, update.Title, update.Summary, update.Body, update.FeaturedImageURL,
		update.CategoryID, update.IsPublished, publishedAt, now)
	if err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}

	if err := replacePostTags(ctx, tx, postID, tagNames); err != nil {
		return Post{}, err
	}

	if err := tx.Commit(); err != nil {
		return Post{}, fmt.Errorf("commit update post: %w", err)
	}
	return s.GetPost(ctx, postID)
}

// DeletePost removes a post; comments and tag associations go with it via
// the schema's cascade rules.
func (s *PostgresStore) DeletePost(ctx context.Context, postID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, postID)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete post rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListPostTags(ctx context.Context, postID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug
		FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id=$1
		ORDER BY t.name ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post tags: %w", err)
	}
	defer rows.Close()

	items := make([]Tag, 0)
	for rows.Next() {
		var item Tag
		if err := rows.Scan(&item.ID, &item.Name, &item.Slug); err != nil {
			return nil, fmt.Errorf("scan post tag: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post tags: %w", err)
	}
	return items, nil
}

// replacePostTags drops every existing association for the post and inserts
// the new set. Full replace, no diffing. Missing tags are created with
// first-seen casing; the lookup is case-insensitive.
func replacePostTags(ctx context.Context, tx *sql.Tx, postID string, tagNames []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id=$1`, postID); err != nil {
		return fmt.Errorf("clear post tags: %w", err)
	}

	for _, name := range tagNames {
		tagID, err := ensureTag(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO post_tags (post_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT (post_id, tag_id) DO NOTHING
		`, postID, tagID); err != nil {
			return fmt.Errorf("insert post tag: %w", err)
		}
	}
	return nil
}

func ensureTag(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	var tagID string
	err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE LOWER(name)=LOWER($1)`, name).Scan(&tagID)
	if err == nil {
		return tagID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup tag: %w", err)
	}

	tagID = util.NewID("tag")
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tags (id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, tagID, name, tags.Slugify(name)); err != nil {
		return "", fmt.Errorf("insert tag: %w", err)
	}

	// A concurrent writer may have won the insert; read back whichever row
	// holds the name now.
	if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE LOWER(name)=LOWER($1)`, name).Scan(&tagID); err != nil {
		return "", fmt.Errorf("reread tag: %w", err)
	}
	return tagID, nil
}

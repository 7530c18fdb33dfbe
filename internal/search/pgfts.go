package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across posts and comments using
// plainto_tsquery and ts_rank, with ts_headline for snippets. Drafts and
// their comments never match.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Posts sub-query
	if q.FilterType == "" || q.FilterType == ResultPost {
		postWhere := "p.fts @@ " + tsQuery + " AND p.is_published = TRUE"
		if q.FilterCategoryID != "" {
			postWhere += fmt.Sprintf(" AND p.category_id = $%d", argN)
			args = append(args, q.FilterCategoryID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'post'::text AS type, p.id, p.title,
				ts_headline('english', coalesce(p.summary, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				p.id AS post_id, coalesce(p.category_id, '') AS category_id,
				ts_rank(p.fts, %s) AS rank
			FROM posts p
			WHERE %s`, tsQuery, tsQuery, postWhere))
	}

	// Comments sub-query
	if q.FilterType == "" || q.FilterType == ResultComment {
		commentWhere := "c.fts @@ " + tsQuery + " AND p.is_published = TRUE"
		if q.FilterCategoryID != "" {
			commentWhere += fmt.Sprintf(" AND p.category_id = $%d", argN)
			args = append(args, q.FilterCategoryID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'comment'::text AS type, c.id, u.display_name AS title,
				ts_headline('english', coalesce(c.body, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				c.post_id, coalesce(p.category_id, '') AS category_id,
				ts_rank(c.fts, %s) AS rank
			FROM comments c
			JOIN posts p ON p.id = c.post_id
			JOIN users u ON u.id = c.user_id
			WHERE %s`, tsQuery, tsQuery, commentWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, post_id, category_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.PostID, &r.CategoryID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]PostRecord, []CommentRecord, error) {
	postRows, err := p.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.summary, p.body, coalesce(p.category_id, ''),
			coalesce(array_to_string(array(
				SELECT t.name FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
				WHERE pt.post_id = p.id ORDER BY t.name
			), ','), '')
		FROM posts p
		WHERE p.is_published = TRUE
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load posts: %w", err)
	}
	defer postRows.Close()

	posts := make([]PostRecord, 0)
	for postRows.Next() {
		var rec PostRecord
		var joinedTags string
		if err := postRows.Scan(&rec.ID, &rec.Title, &rec.Summary, &rec.Body, &rec.CategoryID, &joinedTags); err != nil {
			return nil, nil, fmt.Errorf("scan post: %w", err)
		}
		if joinedTags != "" {
			rec.Tags = strings.Split(joinedTags, ",")
		}
		posts = append(posts, rec)
	}
	if err := postRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate posts: %w", err)
	}

	commentRows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.body, u.display_name, c.post_id, coalesce(p.category_id, '')
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		JOIN users u ON u.id = c.user_id
		WHERE p.is_published = TRUE
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load comments: %w", err)
	}
	defer commentRows.Close()

	comments := make([]CommentRecord, 0)
	for commentRows.Next() {
		var rec CommentRecord
		if err := commentRows.Scan(&rec.ID, &rec.Content, &rec.AuthorName, &rec.PostID, &rec.CategoryID); err != nil {
			return nil, nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, rec)
	}
	if err := commentRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate comments: %w", err)
	}

	return posts, comments, nil
}

package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultPost    ResultType = "post"
	ResultComment ResultType = "comment"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	PostID     string     `json:"postId"`
	CategoryID string     `json:"categoryId,omitempty"`
}

// Query describes a search request. Only published posts and their comments
// are ever searchable.
type Query struct {
	Text             string
	FilterType       ResultType // empty = all types
	FilterCategoryID string
	Limit            int
	Offset           int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexPost(p PostRecord) error
	IndexComment(c CommentRecord) error
	DeletePost(id string) error
	DeleteComment(id string) error
}

// PostRecord is the data we index for a published post.
type PostRecord struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Body       string   `json:"body"`
	CategoryID string   `json:"categoryId"`
	Tags       []string `json:"tags"`
}

// CommentRecord is the data we index for a comment on a published post.
type CommentRecord struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	AuthorName string `json:"authorName"`
	PostID     string `json:"postId"`
	CategoryID string `json:"categoryId"`
}

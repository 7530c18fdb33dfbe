package store

import "time"

type User struct {
	ID              string
	Email           string
	DisplayName     string
	Bio             string
	ProfileImageURL string
	PasswordHash    string
	Role            string
	CreatedAt       time.Time
}

type Category struct {
	ID          string
	Name        string
	Description string
	Slug        string
}

type Tag struct {
	ID   string
	Name string
	Slug string
}

type Post struct {
	ID               string
	Title            string
	Summary          string
	Body             string
	FeaturedImageURL string
	IsPublished      bool
	ViewCount        int
	AuthorID         string
	AuthorName       string
	CategoryID       *string
	CategoryName     string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	PublishedAt      *time.Time
	Tags             []Tag
}

// PostFilter narrows ListPublished; zero values mean "no filter" and all
// provided filters combine with AND.
type PostFilter struct {
	CategoryID string
	TagSlug    string
	SearchText string
}

// PostUpdate carries the editable fields for a post. PublishedAt is managed
// by the store: it is set on the first transition to published and never
// overwritten afterwards.
type PostUpdate struct {
	Title            string
	Summary          string
	Body             string
	FeaturedImageURL string
	IsPublished      bool
	CategoryID       *string
}

type Comment struct {
	ID         string
	Body       string
	PostID     string
	UserID     string
	UserName   string
	ParentID   *string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	Replies    []Comment
	ReplyCount int
}

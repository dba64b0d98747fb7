package models

import "time"

// Post is ordinary community content, used as input to the recommendation
// heuristics. Content is immutable after creation.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Quartier  string    `json:"quartier"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

type PostLike struct {
	ID        string
	PostID    string
	UserID    string
	CreatedAt time.Time
}

type PostComment struct {
	ID        string
	PostID    string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// Package api is the REST client for the blogify HTTP API.
package api

import (
	"slices"
	"time"
)

// Author is the author reference embedded in posts and comments.
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Comment is a single comment on a post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	ParentID   *string   `json:"parent_id,omitempty"`
	Author     Author    `json:"author"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Likes      []string  `json:"likes"`
	LikesCount int       `json:"likes_count"`
}

// Clone returns a deep copy of c.
func (c Comment) Clone() Comment {
	out := c
	if c.ParentID != nil {
		parent := *c.ParentID
		out.ParentID = &parent
	}
	out.Likes = slices.Clone(c.Likes)
	return out
}

// Image describes an uploaded cover image. An empty URL means no image.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format,omitempty"`
}

// Post is a blog post as returned by the API.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Image     Image     `json:"image"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Likes     []string  `json:"likes"`
}

// Clone returns a deep copy of p.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	out := *p
	out.Likes = slices.Clone(p.Likes)
	return &out
}

// LikedBy reports whether userID is in the post's liker set.
func (p *Post) LikedBy(userID string) bool {
	return userID != "" && slices.Contains(p.Likes, userID)
}

// PostInput is the writable part of a post.
type PostInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Image    *Image `json:"image,omitempty"`
}

// User is an account as returned by the API.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats aggregates a user's authored content.
type Stats struct {
	PostCount    int64 `json:"post_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ProfileUpdate carries the optional fields of a profile update.
type ProfileUpdate struct {
	Name     *string
	Password *string
	Avatar   *File
}

// File is an in-memory upload.
type File struct {
	Name    string
	Content []byte
}

package models

// User represents a registered blog author or reader.
type User struct {
	Base
	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Avatar   string `json:"avatar"`
}

// AuthorSummary is the author reference embedded in post and comment responses.
type AuthorSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Summary returns the public author reference for u.
func (u User) Summary() AuthorSummary {
	return AuthorSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

// UserStats aggregates a user's authored content.
type UserStats struct {
	PostCount    int64 `json:"post_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
}

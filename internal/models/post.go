package models

import (
	"gorm.io/gorm"
)

// PostImage describes an uploaded cover image.
type PostImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format,omitempty"`
}

// Post represents a blog post.
type Post struct {
	Base
	Title    string     `gorm:"not null" json:"title"`
	Content  string     `gorm:"type:text;not null" json:"content"`
	Category string     `gorm:"index" json:"category"`
	Image    PostImage  `gorm:"embedded;embeddedPrefix:image_" json:"image"`
	UserID   string     `gorm:"type:varchar(36);not null;index" json:"-"`
	User     User       `gorm:"foreignKey:UserID" json:"-"`
	Likes    []PostLike `gorm:"foreignKey:PostID" json:"-"`

	// Author and LikerIDs are derived after load.
	Author   AuthorSummary `gorm:"-" json:"author"`
	LikerIDs []string      `gorm:"-" json:"likes"`
}

// AfterFind derives the response fields from preloaded associations.
func (p *Post) AfterFind(_ *gorm.DB) error {
	p.Derive()
	return nil
}

// Derive fills Author and LikerIDs from User and Likes.
func (p *Post) Derive() {
	if p.User.ID != "" {
		p.Author = p.User.Summary()
	}
	p.LikerIDs = make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		p.LikerIDs = append(p.LikerIDs, l.UserID)
	}
}

// PostLike records one user's like on a post.
// The combination of UserID and PostID must be unique.
type PostLike struct {
	Base
	UserID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_like_user_post" json:"user_id"`
	PostID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_like_user_post" json:"post_id"`
}

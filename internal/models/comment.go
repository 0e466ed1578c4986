package models

import (
	"gorm.io/gorm"
)

// Comment represents a comment on a post, optionally replying to another comment.
type Comment struct {
	Base
	Content  string        `gorm:"type:text;not null" json:"content"`
	PostID   string        `gorm:"type:varchar(36);not null;index" json:"post_id"`
	ParentID *string       `gorm:"type:varchar(36);index" json:"parent_id,omitempty"`
	UserID   string        `gorm:"type:varchar(36);not null" json:"-"`
	User     User          `gorm:"foreignKey:UserID" json:"-"`
	Likes    []CommentLike `gorm:"foreignKey:CommentID" json:"-"`

	Author     AuthorSummary `gorm:"-" json:"author"`
	LikerIDs   []string      `gorm:"-" json:"likes"`
	LikesCount int           `gorm:"-" json:"likes_count"`
}

// AfterFind derives the response fields from preloaded associations.
func (c *Comment) AfterFind(_ *gorm.DB) error {
	c.Derive()
	return nil
}

// Derive fills Author, LikerIDs and LikesCount from User and Likes.
func (c *Comment) Derive() {
	if c.User.ID != "" {
		c.Author = c.User.Summary()
	}
	c.LikerIDs = make([]string, 0, len(c.Likes))
	for _, l := range c.Likes {
		c.LikerIDs = append(c.LikerIDs, l.UserID)
	}
	c.LikesCount = len(c.LikerIDs)
}

// CommentLike records one user's like on a comment.
type CommentLike struct {
	Base
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:idx_comment_like_user_comment" json:"user_id"`
	CommentID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_comment_like_user_comment" json:"comment_id"`
}

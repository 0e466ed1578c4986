package repository

import (
	"context"
	"errors"

	"blogify/internal/models"
	"blogify/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, userID, commentID string) (int64, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogWrite(ctx, "create", "comment_id", comment.ID, "post_id", comment.PostID)
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	defer observability.TrackQuery("get", "comments")()
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").Preload("Likes").Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns a post's comments newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	defer observability.TrackQuery("list_by_post", "comments")()
	comments := make([]*models.Comment, 0)
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Likes").
		Where("post_id = ?", postID).
		Order("created_at desc").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("update", "comments")()
	if err := r.db.WithContext(ctx).Model(comment).Select("content", "updated_at").Updates(comment).Error; err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogWrite(ctx, "update", "comment_id", comment.ID)
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "comments")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("comment_id = ?", id).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Comment{}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogWrite(ctx, "delete", "comment_id", id)
	return nil
}

// ToggleLike adds userID's like on the comment, or removes it if present,
// and returns the resulting like count.
func (r *commentRepository) ToggleLike(ctx context.Context, userID, commentID string) (int64, error) {
	defer observability.TrackQuery("toggle_like", "comment_likes")()
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommentLike
		err := tx.Where("user_id = ? AND comment_id = ?", userID, commentID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.CommentLike{UserID: userID, CommentID: commentID}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Unscoped().Delete(&existing).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error
	})
	return count, err
}

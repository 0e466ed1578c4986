package repository

import (
	"context"

	"blogify/internal/models"
	"blogify/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, limit, offset int, category string) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, userID, postID string) error
	Unlike(ctx context.Context, userID, postID string) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("User").Preload("Likes", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc")
	})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogWrite(ctx, "create", "post_id", post.ID)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	if err := r.withDetails(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, category string) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()
	posts := make([]*models.Post, 0)
	q := r.withDetails(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("list_by_user", "posts")()
	posts := make([]*models.Post, 0)
	err := r.withDetails(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	err := r.db.WithContext(ctx).Model(post).Select("title", "content", "category", "image_url", "image_width", "image_height", "image_format", "updated_at").
		Updates(post).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogWrite(ctx, "update", "post_id", post.ID)
	return nil
}

// Delete removes the post with its likes and comments.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "posts")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Unscoped().Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Post{}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogWrite(ctx, "delete", "post_id", id)
	return nil
}

// Like records userID's like on postID. Liking twice is a no-op.
func (r *postRepository) Like(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery("like", "post_likes")()
	like := models.PostLike{UserID: userID, PostID: postID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like).Error
}

// Unlike removes userID's like on postID. Unliking a post that is not liked is a no-op.
func (r *postRepository) Unlike(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery("unlike", "post_likes")()
	return r.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.PostLike{}).Error
}

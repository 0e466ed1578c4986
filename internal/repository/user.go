// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"blogify/internal/models"
	"blogify/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Stats(ctx context.Context, userID string) (*models.UserStats, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("create", "users")()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogWrite(ctx, "create", "user_id", user.ID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer observability.TrackQuery("get", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer observability.TrackQuery("get_by_email", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("update", "users")()
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogWrite(ctx, "update", "user_id", user.ID)
	return nil
}

// Stats counts the user's posts, likes received on those posts, and comments written.
func (r *userRepository) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	defer observability.TrackQuery("stats", "users")()
	db := r.db.WithContext(ctx)
	var stats models.UserStats

	if err := db.Model(&models.Post{}).Where("user_id = ?", userID).Count(&stats.PostCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PostLike{}).
		Joins("JOIN posts ON posts.id = post_likes.post_id AND posts.deleted_at IS NULL").
		Where("posts.user_id = ?", userID).
		Count(&stats.LikeCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Comment{}).Where("user_id = ?", userID).Count(&stats.CommentCount).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

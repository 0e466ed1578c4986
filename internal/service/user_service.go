package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"blogify/internal/cache"
	"blogify/internal/models"
	"blogify/internal/repository"
	"blogify/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const statsTTL = 5 * time.Minute

// UserService handles accounts, credentials and profile data.
type UserService struct {
	users  repository.UserRepository
	images *ImageService
	redis  *redis.Client
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateProfileInput carries optional profile changes; nil fields are left untouched.
type UpdateProfileInput struct {
	UserID   string
	Name     *string
	Password *string
	Avatar   *UploadImageInput
}

func NewUserService(users repository.UserRepository, images *ImageService, rdb *redis.Client) *UserService {
	return &UserService{users: users, images: images, redis: rdb}
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, models.NewConflictError("User already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// Authenticate returns the user whose credentials match.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, models.NewInternalError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "User", id)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if err := validation.ValidateName(*in.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Password != nil && *in.Password != "" {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = string(hashed)
	}
	if in.Avatar != nil {
		if s.images == nil {
			return nil, models.NewInternalError(errors.New("image service not configured"))
		}
		avatar := *in.Avatar
		avatar.UserID = user.ID
		avatar.Kind = ImageKindAvatar
		img, err := s.images.Upload(ctx, avatar)
		if err != nil {
			return nil, err
		}
		user.Avatar = img.URL
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// Stats returns the user's counters, cached in Redis when available.
func (s *UserService) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := cache.Remember(ctx, s.redis, cache.UserStatsKey(userID), statsTTL, func(ctx context.Context) (*models.UserStats, error) {
		return s.users.Stats(ctx, userID)
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}

// InvalidateStats drops the cached counters for the given users.
func (s *UserService) InvalidateStats(ctx context.Context, userIDs ...string) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			keys = append(keys, cache.UserStatsKey(id))
		}
	}
	cache.Invalidate(ctx, s.redis, keys...)
}

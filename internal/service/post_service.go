package service

import (
	"context"
	"strings"

	"blogify/internal/models"
	"blogify/internal/observability"
	"blogify/internal/repository"
	"blogify/internal/validation"
)

// PostService implements post authoring and likes.
type PostService struct {
	posts repository.PostRepository
}

type PostInput struct {
	Title    string
	Content  string
	Category string
	Image    *models.PostImage
}

type CreatePostInput struct {
	UserID string
	PostInput
}

type UpdatePostInput struct {
	UserID string
	PostID string
	PostInput
}

func NewPostService(posts repository.PostRepository) *PostService {
	return &PostService{posts: posts}
}

func (s *PostService) List(ctx context.Context, limit, offset int, category string) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx, limit, offset, category)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (s *PostService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error) {
	posts, err := s.posts.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "Post", id)
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, end := observability.StartServiceSpan(ctx, "PostService", "Create")
	defer func() { end(err) }()

	if err := validation.ValidatePost(in.Title, in.Content, in.Category); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	created := &models.Post{
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		Category: strings.TrimSpace(in.Category),
		UserID:   in.UserID,
	}
	if in.Image != nil {
		created.Image = *in.Image
	}
	if err := s.posts.Create(ctx, created); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.Get(ctx, created.ID)
}

func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, end := observability.StartServiceSpan(ctx, "PostService", "Update")
	defer func() { end(err) }()

	existing, err := s.owned(ctx, in.PostID, in.UserID, "edit")
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePost(in.Title, in.Content, in.Category); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing.Title = strings.TrimSpace(in.Title)
	existing.Content = in.Content
	existing.Category = strings.TrimSpace(in.Category)
	if in.Image != nil {
		existing.Image = *in.Image
	}
	if err := s.posts.Update(ctx, existing); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.Get(ctx, existing.ID)
}

func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	if _, err := s.owned(ctx, postID, userID, "delete"); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Like adds userID to the post's likers and returns the refreshed post.
func (s *PostService) Like(ctx context.Context, postID, userID string) (*models.Post, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.posts.Like(ctx, userID, postID); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.Get(ctx, postID)
}

// Unlike removes userID from the post's likers and returns the refreshed post.
func (s *PostService) Unlike(ctx context.Context, postID, userID string) (*models.Post, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.posts.Unlike(ctx, userID, postID); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.Get(ctx, postID)
}

func (s *PostService) owned(ctx context.Context, postID, userID, action string) (*models.Post, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("Only the author can " + action + " this post")
	}
	return post, nil
}
